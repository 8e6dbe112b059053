// Package adapter defines the notification boundary for completed resolutions.
//
// Adapters publish resolution completion notifications to downstream systems
// (e.g. a launch-template updater waiting for a new image map).
// The CLI owns adapter lifecycle; users provide configuration only.
package adapter

import (
	"context"
	"time"

	"github.com/justapithecus/amiresolve/types"
)

// EventTypeResolutionCompleted is the event_type of every published event.
const EventTypeResolutionCompleted = "resolution_completed"

// ResolutionCompletedEvent is the payload published when a resolution finishes.
type ResolutionCompletedEvent struct {
	ContractVersion string            `json:"contract_version"`
	EventType       string            `json:"event_type"` // always "resolution_completed"
	ResolutionID    string            `json:"resolution_id"`
	HomeRegion      string            `json:"home_region"`
	SeedImageID     string            `json:"seed_image_id"`
	ImageName       string            `json:"image_name"`
	Images          map[string]string `json:"images"`
	RegionsTotal    int               `json:"regions_total"`
	RegionsResolved int               `json:"regions_resolved"`
	RegionsFailed   []string          `json:"regions_failed,omitempty"`
	ArchivePath     string            `json:"archive_path,omitempty"`
	Cached          bool              `json:"cached"`
	Timestamp       string            `json:"timestamp"` // ISO 8601
	DurationMs      int64             `json:"duration_ms"`
}

// NewResolutionCompletedEvent builds the event payload for result.
// archivePath is empty when the result was not archived.
func NewResolutionCompletedEvent(result *types.ResolutionResult, archivePath string, cached bool) *ResolutionCompletedEvent {
	images := make(map[string]string, len(result.Images))
	for p, id := range result.Images {
		images[string(p)] = id
	}

	var failed []string
	for _, p := range result.FailedRegions() {
		failed = append(failed, string(p))
	}

	return &ResolutionCompletedEvent{
		ContractVersion: types.Version,
		EventType:       EventTypeResolutionCompleted,
		ResolutionID:    result.ResolutionID,
		HomeRegion:      string(result.Home),
		SeedImageID:     result.Seed.ID,
		ImageName:       result.Seed.Name,
		Images:          images,
		RegionsTotal:    result.PartitionsTotal,
		RegionsResolved: len(result.Images),
		RegionsFailed:   failed,
		ArchivePath:     archivePath,
		Cached:          cached,
		Timestamp:       result.ResolvedAt.UTC().Format(time.RFC3339),
		DurationMs:      result.Duration.Milliseconds(),
	}
}

// Adapter publishes resolution completion events to a downstream system.
type Adapter interface {
	// Publish sends a resolution completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *ResolutionCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
