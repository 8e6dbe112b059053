package types

import (
	"errors"
	"fmt"
)

// ErrMalformedRequest is returned when a ResolutionRequest violates its
// preconditions. No lookups are attempted for a malformed request.
var ErrMalformedRequest = errors.New("malformed request")

// ResolutionRequest names the seed image and the partition it lives in.
// Exactly one of ArtifactID and ArtifactName must be set.
type ResolutionRequest struct {
	HomePartition PartitionID
	ArtifactID    string
	ArtifactName  string
}

// ByID reports whether the seed is addressed by identifier.
func (r ResolutionRequest) ByID() bool {
	return r.ArtifactID != ""
}

// SeedKey returns whichever seed field is set.
func (r ResolutionRequest) SeedKey() string {
	if r.ByID() {
		return r.ArtifactID
	}
	return r.ArtifactName
}

// Validate checks the request preconditions.
// Returned errors wrap ErrMalformedRequest.
func (r ResolutionRequest) Validate() error {
	if r.HomePartition == "" {
		return fmt.Errorf("%w: home partition is required", ErrMalformedRequest)
	}
	hasID := r.ArtifactID != ""
	hasName := r.ArtifactName != ""
	switch {
	case hasID && hasName:
		return fmt.Errorf("%w: image id and image name are mutually exclusive", ErrMalformedRequest)
	case !hasID && !hasName:
		return fmt.Errorf("%w: one of image id or image name is required", ErrMalformedRequest)
	}
	return nil
}

// ResolutionMeta carries the identity of one resolution for logging and
// downstream records.
type ResolutionMeta struct {
	ResolutionID  string
	HomePartition PartitionID
}
