// Package metrics provides per-resolution metrics collection.
//
// The Collector accumulates counters during a single resolution. It is a leaf
// package with no internal dependencies. Pool counters are absorbed once after
// the fan-out barrier rather than recorded live.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all resolution metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Resolution lifecycle
	ResolutionsStarted   int64
	ResolutionsCompleted int64
	ResolutionsFailed    int64

	// Lookups
	SeedLookups          int64
	PartitionsEnumerated int64
	LookupsStarted       int64
	LookupsHit           int64
	LookupsMissed        int64
	LookupsFailed        int64

	// Pool (absorbed after the barrier)
	PeakInFlight  int64
	TasksPanicked int64

	// Downstream
	CacheHits       int64
	CacheMisses     int64
	ArchiveWrites   int64
	ArchiveFailures int64
	PublishSuccess  int64
	PublishFailure  int64

	// Dimensions (informational, set at construction)
	HomePartition string
	Concurrency   int
	ResolutionID  string
}

// Collector accumulates metrics during a single resolution.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	resolutionsStarted   int64
	resolutionsCompleted int64
	resolutionsFailed    int64

	seedLookups          int64
	partitionsEnumerated int64
	lookupsStarted       int64
	lookupsHit           int64
	lookupsMissed        int64
	lookupsFailed        int64

	peakInFlight  int64
	tasksPanicked int64

	cacheHits       int64
	cacheMisses     int64
	archiveWrites   int64
	archiveFailures int64
	publishSuccess  int64
	publishFailure  int64

	homePartition string
	concurrency   int
	resolutionID  string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(homePartition string, concurrency int, resolutionID string) *Collector {
	return &Collector{
		homePartition: homePartition,
		concurrency:   concurrency,
		resolutionID:  resolutionID,
	}
}

// add increments a counter under the lock.
func (c *Collector) add(counter *int64, n int64) {
	c.mu.Lock()
	*counter += n
	c.mu.Unlock()
}

// --- Resolution lifecycle ---

// IncResolutionStarted records a resolution start.
func (c *Collector) IncResolutionStarted() {
	if c == nil {
		return
	}
	c.add(&c.resolutionsStarted, 1)
}

// IncResolutionCompleted records a successful resolution.
func (c *Collector) IncResolutionCompleted() {
	if c == nil {
		return
	}
	c.add(&c.resolutionsCompleted, 1)
}

// IncResolutionFailed records a fatal resolution failure.
func (c *Collector) IncResolutionFailed() {
	if c == nil {
		return
	}
	c.add(&c.resolutionsFailed, 1)
}

// --- Lookups ---

// IncSeedLookup records a seed lookup in the home partition.
func (c *Collector) IncSeedLookup() {
	if c == nil {
		return
	}
	c.add(&c.seedLookups, 1)
}

// SetPartitionsEnumerated records the number of distinct partitions listed.
func (c *Collector) SetPartitionsEnumerated(n int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.partitionsEnumerated = int64(n)
	c.mu.Unlock()
}

// IncLookupStarted records a fan-out lookup start.
func (c *Collector) IncLookupStarted() {
	if c == nil {
		return
	}
	c.add(&c.lookupsStarted, 1)
}

// IncLookupHit records a fan-out lookup that found a match.
func (c *Collector) IncLookupHit() {
	if c == nil {
		return
	}
	c.add(&c.lookupsHit, 1)
}

// IncLookupMissed records a fan-out lookup that found nothing.
func (c *Collector) IncLookupMissed() {
	if c == nil {
		return
	}
	c.add(&c.lookupsMissed, 1)
}

// IncLookupFailed records a fan-out lookup that errored.
func (c *Collector) IncLookupFailed() {
	if c == nil {
		return
	}
	c.add(&c.lookupsFailed, 1)
}

// AbsorbPoolStats copies pool counters into the collector.
// Called once after the fan-out barrier. Plain integers keep this package
// free of a dependency on the pool package.
func (c *Collector) AbsorbPoolStats(peakInFlight, panicked int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.peakInFlight = peakInFlight
	c.tasksPanicked = panicked
	c.mu.Unlock()
}

// --- Downstream ---

// IncCacheHit records a result served from the local cache.
func (c *Collector) IncCacheHit() {
	if c == nil {
		return
	}
	c.add(&c.cacheHits, 1)
}

// IncCacheMiss records a cache lookup that fell through to resolution.
func (c *Collector) IncCacheMiss() {
	if c == nil {
		return
	}
	c.add(&c.cacheMisses, 1)
}

// IncArchiveWrite records a successful archive write (per call).
func (c *Collector) IncArchiveWrite() {
	if c == nil {
		return
	}
	c.add(&c.archiveWrites, 1)
}

// IncArchiveFailure records a failed archive write (per call).
func (c *Collector) IncArchiveFailure() {
	if c == nil {
		return
	}
	c.add(&c.archiveFailures, 1)
}

// IncPublishSuccess records a delivered completion notification.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.add(&c.publishSuccess, 1)
}

// IncPublishFailure records a completion notification that could not be delivered.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.add(&c.publishFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ResolutionsStarted:   c.resolutionsStarted,
		ResolutionsCompleted: c.resolutionsCompleted,
		ResolutionsFailed:    c.resolutionsFailed,

		SeedLookups:          c.seedLookups,
		PartitionsEnumerated: c.partitionsEnumerated,
		LookupsStarted:       c.lookupsStarted,
		LookupsHit:           c.lookupsHit,
		LookupsMissed:        c.lookupsMissed,
		LookupsFailed:        c.lookupsFailed,

		PeakInFlight:  c.peakInFlight,
		TasksPanicked: c.tasksPanicked,

		CacheHits:       c.cacheHits,
		CacheMisses:     c.cacheMisses,
		ArchiveWrites:   c.archiveWrites,
		ArchiveFailures: c.archiveFailures,
		PublishSuccess:  c.publishSuccess,
		PublishFailure:  c.publishFailure,

		HomePartition: c.homePartition,
		Concurrency:   c.concurrency,
		ResolutionID:  c.resolutionID,
	}
}

// Fields returns the snapshot as a flat map for structured log events.
func (s Snapshot) Fields() map[string]any {
	return map[string]any{
		"resolutions_started":   s.ResolutionsStarted,
		"resolutions_completed": s.ResolutionsCompleted,
		"resolutions_failed":    s.ResolutionsFailed,
		"seed_lookups":          s.SeedLookups,
		"partitions_enumerated": s.PartitionsEnumerated,
		"lookups_started":       s.LookupsStarted,
		"lookups_hit":           s.LookupsHit,
		"lookups_missed":        s.LookupsMissed,
		"lookups_failed":        s.LookupsFailed,
		"peak_in_flight":        s.PeakInFlight,
		"tasks_panicked":        s.TasksPanicked,
		"cache_hits":            s.CacheHits,
		"cache_misses":          s.CacheMisses,
		"archive_writes":        s.ArchiveWrites,
		"archive_failures":      s.ArchiveFailures,
		"publish_success":       s.PublishSuccess,
		"publish_failure":       s.PublishFailure,
		"home_partition":        s.HomePartition,
		"concurrency":           s.Concurrency,
		"resolution_id":         s.ResolutionID,
	}
}
