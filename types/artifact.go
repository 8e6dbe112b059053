// Package types defines core domain types for amiresolve.
//
//nolint:revive // types is a common Go package naming convention
package types

// PartitionID identifies one searchable partition of the image inventory.
// For EC2 this is a region name such as "eu-west-1".
type PartitionID string

// String returns the partition name.
func (p PartitionID) String() string { return string(p) }

// ArtifactDescriptor describes one machine image as returned by a lookup.
// Descriptors are immutable once fetched.
type ArtifactDescriptor struct {
	// ID is the opaque image identifier (e.g. "ami-0abc...").
	ID string `json:"id" yaml:"id" msgpack:"id"`
	// Name is the image display name, used as the cross-partition search key.
	Name string `json:"name" yaml:"name" msgpack:"name"`
	// Description is the optional human description.
	Description string `json:"description,omitempty" yaml:"description,omitempty" msgpack:"description,omitempty"`
	// Architecture is an optional classification tag (e.g. "x86_64").
	Architecture string `json:"architecture,omitempty" yaml:"architecture,omitempty" msgpack:"architecture,omitempty"`
	// VirtualizationType is an optional classification tag (e.g. "hvm").
	VirtualizationType string `json:"virtualization_type,omitempty" yaml:"virtualization_type,omitempty" msgpack:"virtualization_type,omitempty"`
	// CreationDate is the RFC 3339 creation timestamp reported by the inventory.
	CreationDate string `json:"creation_date,omitempty" yaml:"creation_date,omitempty" msgpack:"creation_date,omitempty"`
	// OwnerID is the account that owns the image.
	OwnerID string `json:"owner_id,omitempty" yaml:"owner_id,omitempty" msgpack:"owner_id,omitempty"`
}

// DisplayName returns Name, or a placeholder when the inventory reported none.
func (a *ArtifactDescriptor) DisplayName() string {
	if a.Name == "" {
		return "Unknown name"
	}
	return a.Name
}

// DisplayDescription returns Description, or a placeholder when empty.
func (a *ArtifactDescriptor) DisplayDescription() string {
	if a.Description == "" {
		return "No Description"
	}
	return a.Description
}
