package resolver

import (
	"sync"

	"github.com/justapithecus/amiresolve/types"
)

// Aggregator collects per-partition fan-out outcomes.
//
// Record is safe for concurrent use. Each fan-out task writes a distinct
// partition key, so a single mutex held for one insert is sufficient.
// The aggregator is read only after the pool barrier.
type Aggregator struct {
	mu       sync.Mutex
	images   map[types.PartitionID]string
	failures map[types.PartitionID]string
}

// NewAggregator creates an aggregator seeded with the home partition entry.
func NewAggregator(home types.PartitionID, seedID string) *Aggregator {
	return &Aggregator{
		images:   map[types.PartitionID]string{home: seedID},
		failures: make(map[types.PartitionID]string),
	}
}

// Record stores a match for partition. The first write for a key wins;
// a second write for the same key is ignored.
func (a *Aggregator) Record(partition types.PartitionID, id string) {
	if id == "" {
		return
	}
	a.mu.Lock()
	if _, exists := a.images[partition]; !exists {
		a.images[partition] = id
	}
	a.mu.Unlock()
}

// RecordFailure notes that the lookup for partition errored.
// The partition is treated as a miss and never appears in Images.
func (a *Aggregator) RecordFailure(partition types.PartitionID, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	a.mu.Lock()
	a.failures[partition] = msg
	a.mu.Unlock()
}

// Snapshot returns copies of the recorded images and failures.
func (a *Aggregator) Snapshot() (images, failures map[types.PartitionID]string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	images = make(map[types.PartitionID]string, len(a.images))
	for k, v := range a.images {
		images[k] = v
	}
	failures = make(map[types.PartitionID]string, len(a.failures))
	for k, v := range a.failures {
		failures[k] = v
	}
	return images, failures
}
