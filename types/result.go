package types

import (
	"sort"
	"time"
)

// ResolutionResult maps every partition where an equivalent image was found
// to that image's identifier. The home partition is always present.
// Absence of a key means "not found"; there are no empty values.
type ResolutionResult struct {
	// ResolutionID identifies this invocation in logs and downstream records.
	ResolutionID string `json:"resolution_id" yaml:"resolution_id" msgpack:"resolution_id"`
	// Home is the partition the seed was resolved in.
	Home PartitionID `json:"home" yaml:"home" msgpack:"home"`
	// Seed is the descriptor resolved in the home partition.
	Seed ArtifactDescriptor `json:"seed" yaml:"seed" msgpack:"seed"`
	// Images maps partition to matched image identifier.
	Images map[PartitionID]string `json:"images" yaml:"images" msgpack:"images"`
	// Failures maps partitions whose lookup errored to the error message.
	// Errored partitions are treated as misses and never appear in Images.
	Failures map[PartitionID]string `json:"failures,omitempty" yaml:"failures,omitempty" msgpack:"failures,omitempty"`
	// PartitionsTotal is the number of distinct partitions enumerated.
	PartitionsTotal int `json:"partitions_total" yaml:"partitions_total" msgpack:"partitions_total"`
	// Duration is the wall-clock time spent resolving.
	Duration time.Duration `json:"duration" yaml:"duration" msgpack:"duration"`
	// ResolvedAt is when resolution completed.
	ResolvedAt time.Time `json:"resolved_at" yaml:"resolved_at" msgpack:"resolved_at"`
}

// Regions returns the partitions present in Images, sorted.
func (r *ResolutionResult) Regions() []PartitionID {
	regions := make([]PartitionID, 0, len(r.Images))
	for p := range r.Images {
		regions = append(regions, p)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })
	return regions
}

// FailedRegions returns the partitions present in Failures, sorted.
func (r *ResolutionResult) FailedRegions() []PartitionID {
	regions := make([]PartitionID, 0, len(r.Failures))
	for p := range r.Failures {
		regions = append(regions, p)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i] < regions[j] })
	return regions
}
