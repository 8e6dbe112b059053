// Package archive persists resolution results as a Lode dataset.
//
// Each resolution becomes one snapshot of JSONL records, one record per
// region, Hive-partitioned by home_region/day/resolution_id.
package archive

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/amiresolve/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "amiresolve"

// Partition keys, in layout order.
var partitionKeys = []string{"home_region", "day", "resolution_id"}

// Record statuses.
const (
	StatusResolved = "resolved"
	StatusFailed   = "failed"
)

// Archive writes resolution results to a Lode dataset.
type Archive struct {
	dataset  lode.Dataset
	location string
}

// New creates an archive over the given store factory.
// Use lode.NewMemoryFactory() for testing.
func New(dataset string, factory lode.StoreFactory, location string) (*Archive, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	ds, err := NewDataset(dataset, factory)
	if err != nil {
		return nil, wrapError("init", dataset, err)
	}
	return &Archive{dataset: ds, location: location}, nil
}

// NewDataset opens a dataset with the archive's layout and codec.
func NewDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// NewFS creates an archive rooted at a local directory.
func NewFS(dataset, root string) (*Archive, error) {
	return New(dataset, lode.NewFSFactory(root), root)
}

// Location describes where the archive stores data.
func (a *Archive) Location() string {
	return a.location
}

// Write stores one snapshot for result and returns the partition path
// it was written under.
func (a *Archive) Write(ctx context.Context, result *types.ResolutionResult) (string, error) {
	if result == nil {
		return "", errors.New("archive: nil result")
	}
	if result.ResolutionID == "" {
		return "", errors.New("archive: result has no resolution id")
	}

	partition := PartitionPath(result)
	if _, err := a.dataset.Write(ctx, Records(result), lode.Metadata{}); err != nil {
		return "", wrapError("write", partition, err)
	}
	return partition, nil
}

// Close releases archive resources.
func (a *Archive) Close() error {
	return nil
}

// Day returns the day partition value for result (YYYY-MM-DD, UTC).
func Day(result *types.ResolutionResult) string {
	return result.ResolvedAt.UTC().Format("2006-01-02")
}

// PartitionPath returns the Hive partition path for result.
func PartitionPath(result *types.ResolutionResult) string {
	return path.Join(
		"home_region="+string(result.Home),
		"day="+Day(result),
		"resolution_id="+result.ResolutionID,
	)
}

// Records converts result into archive records: one per resolved region
// followed by one per failed region, each in sorted region order.
func Records(result *types.ResolutionResult) []any {
	base := func(region types.PartitionID, status string) map[string]any {
		return map[string]any{
			"home_region":   string(result.Home),
			"day":           Day(result),
			"resolution_id": result.ResolutionID,
			"region":        string(region),
			"status":        status,
			"image_name":    result.Seed.Name,
			"seed_image_id": result.Seed.ID,
			"resolved_at":   result.ResolvedAt.UTC().Format(time.RFC3339),
		}
	}

	regions := result.Regions()
	failed := result.FailedRegions()
	records := make([]any, 0, len(regions)+len(failed))
	for _, r := range regions {
		rec := base(r, StatusResolved)
		rec["image_id"] = result.Images[r]
		records = append(records, rec)
	}
	for _, r := range failed {
		rec := base(r, StatusFailed)
		rec["error"] = result.Failures[r]
		records = append(records, rec)
	}
	return records
}
