// Package resolver resolves a machine image from its home partition into
// every other partition of the inventory.
//
// Resolution runs in two phases. Phase 1 resolves the seed image in the home
// partition and fails fast. Phase 2 lists all partitions and fans out one
// lookup by name per remaining partition through a bounded pool. Fan-out
// lookups fail soft: a miss or an error leaves the partition out of the
// result without failing the resolution.
package resolver

import (
	"context"
	"slices"
	"time"

	"github.com/justapithecus/amiresolve/metrics"
	"github.com/justapithecus/amiresolve/pool"
	"github.com/justapithecus/amiresolve/types"
)

// PartitionEnumerator lists every partition to search.
type PartitionEnumerator interface {
	ListPartitions(ctx context.Context) ([]types.PartitionID, error)
}

// LookupClient finds images within a single partition.
type LookupClient interface {
	// GetByID returns the image with the given id, or nil if absent.
	GetByID(ctx context.Context, partition types.PartitionID, id string) (*types.ArtifactDescriptor, error)
	// FindByName returns every image whose name equals name exactly.
	// The result may be empty.
	FindByName(ctx context.Context, partition types.PartitionID, name string) ([]types.ArtifactDescriptor, error)
}

// Logger receives informational resolution events.
// Logging never blocks or fails a resolution.
type Logger interface {
	Info(message string, fields map[string]any)
	Warn(message string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) Info(string, map[string]any) {}
func (nopLogger) Warn(string, map[string]any) {}

// Resolver drives seed resolution and fan-out.
// A Resolver holds no per-resolution state and may be reused.
type Resolver struct {
	enumerator   PartitionEnumerator
	lookup       LookupClient
	concurrency  int
	logger       Logger
	metrics      *metrics.Collector
	now          func() time.Time
	resolutionID string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithConcurrency sets the maximum number of concurrent fan-out lookups.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(r *Resolver) { r.concurrency = n }
}

// WithLogger sets the event logger. A nil logger suppresses logging.
func WithLogger(l Logger) Option {
	return func(r *Resolver) {
		if l == nil {
			r.logger = nopLogger{}
			return
		}
		r.logger = l
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Resolver) { r.metrics = c }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithResolutionID stamps results with the given id.
func WithResolutionID(id string) Option {
	return func(r *Resolver) { r.resolutionID = id }
}

// New creates a Resolver with injected collaborators.
func New(enumerator PartitionEnumerator, lookup LookupClient, opts ...Option) *Resolver {
	r := &Resolver{
		enumerator:  enumerator,
		lookup:      lookup,
		concurrency: pool.DefaultSize,
		logger:      nopLogger{},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves req.
//
// On success the result always maps the home partition to the seed id, plus
// one entry per other partition where an image with the seed's exact name
// exists. Any returned error is fatal and no partial result is produced:
// ErrMalformedRequest (before any lookup), ErrNotFound or ErrLookup (seed),
// ErrEnumeration (partition listing).
//
// Once fan-out begins every lookup runs to completion. ctx is passed to the
// lookup client for transport deadlines only.
func (r *Resolver) Resolve(ctx context.Context, req types.ResolutionRequest) (*types.ResolutionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := r.now()
	r.metrics.IncResolutionStarted()

	seed, err := r.resolveSeed(ctx, req)
	if err != nil {
		r.metrics.IncResolutionFailed()
		return nil, err
	}

	result, err := r.fanOut(ctx, req.HomePartition, seed)
	if err != nil {
		r.metrics.IncResolutionFailed()
		return nil, err
	}

	end := r.now()
	result.ResolvedAt = end
	result.Duration = end.Sub(start)
	r.metrics.IncResolutionCompleted()
	return result, nil
}

// resolveSeed performs phase 1.
//
// When the lookup by name returns several images, the first one returned by
// the client is used. Which one that is depends on the client's ordering and
// is not otherwise specified.
func (r *Resolver) resolveSeed(ctx context.Context, req types.ResolutionRequest) (*types.ArtifactDescriptor, error) {
	home := req.HomePartition
	r.metrics.IncSeedLookup()

	var seed *types.ArtifactDescriptor
	if req.ByID() {
		found, err := r.lookup.GetByID(ctx, home, req.ArtifactID)
		if err != nil {
			return nil, lookupFailed("describe image", home, req.ArtifactID, err)
		}
		if found == nil {
			return nil, notFound("describe image", home, req.ArtifactID)
		}
		seed = found
	} else {
		matches, err := r.lookup.FindByName(ctx, home, req.ArtifactName)
		if err != nil {
			return nil, lookupFailed("find image by name", home, req.ArtifactName, err)
		}
		if len(matches) == 0 {
			return nil, notFound("find image by name", home, req.ArtifactName)
		}
		seed = &matches[0]
		if len(matches) > 1 {
			r.logger.Warn("multiple images share the seed name, using the first", map[string]any{
				"name":    req.ArtifactName,
				"matches": len(matches),
				"chosen":  seed.ID,
			})
		}
	}

	r.logger.Info("resolved seed image", map[string]any{
		"image_id":            seed.ID,
		"name":                seed.DisplayName(),
		"description":         seed.DisplayDescription(),
		"architecture":        seed.Architecture,
		"virtualization_type": seed.VirtualizationType,
		"region":              string(home),
	})
	return seed, nil
}

// fanOut performs phase 2.
func (r *Resolver) fanOut(ctx context.Context, home types.PartitionID, seed *types.ArtifactDescriptor) (*types.ResolutionResult, error) {
	listed, err := r.enumerator.ListPartitions(ctx)
	if err != nil {
		return nil, enumerationFailed(home, err)
	}

	others := remotePartitions(home, listed)
	total := len(others) + 1
	if !slices.Contains(listed, home) {
		// The home entry is always reported, so it still counts.
		r.logger.Warn("home region missing from region list", map[string]any{
			"region":  string(home),
			"listed":  len(listed),
			"counted": total,
		})
	}
	r.metrics.SetPartitionsEnumerated(total)

	agg := NewAggregator(home, seed.ID)

	if seed.Name == "" {
		// Nothing to search by; only the home entry can be known.
		r.logger.Warn("seed image has no name, skipping fan-out", map[string]any{
			"image_id": seed.ID,
		})
		others = nil
	}

	workers := pool.New(r.concurrency)
	r.logger.Info("searching image across regions", map[string]any{
		"name":        seed.Name,
		"regions":     total,
		"concurrency": workers.Size(),
	})

	for _, partition := range others {
		workers.Enqueue(func() {
			r.lookupPartition(ctx, partition, seed.Name, agg)
		})
	}
	workers.Wait()

	stats := workers.Stats()
	r.metrics.AbsorbPoolStats(stats.PeakInFlight, stats.Panicked)

	images, failures := agg.Snapshot()
	r.logger.Info("resolution complete", map[string]any{
		"resolved": len(images),
		"regions":  total,
		"failed":   len(failures),
	})

	result := &types.ResolutionResult{
		ResolutionID:    r.resolutionID,
		Home:            home,
		Seed:            *seed,
		Images:          images,
		PartitionsTotal: total,
	}
	if len(failures) > 0 {
		result.Failures = failures
	}
	return result, nil
}

// lookupPartition runs inside a pool slot. It never propagates an error:
// misses and failures simply leave the partition out of the result.
func (r *Resolver) lookupPartition(ctx context.Context, partition types.PartitionID, name string, agg *Aggregator) {
	r.metrics.IncLookupStarted()

	matches, err := r.lookup.FindByName(ctx, partition, name)
	if err != nil {
		r.metrics.IncLookupFailed()
		agg.RecordFailure(partition, err)
		r.logger.Warn("lookup failed, treating region as a miss", map[string]any{
			"region": string(partition),
			"name":   name,
			"error":  err.Error(),
		})
		return
	}
	if len(matches) == 0 {
		r.metrics.IncLookupMissed()
		return
	}

	r.metrics.IncLookupHit()
	agg.Record(partition, matches[0].ID)
}

// remotePartitions returns the distinct enumerated partitions other than home,
// preserving enumeration order.
func remotePartitions(home types.PartitionID, listed []types.PartitionID) []types.PartitionID {
	seen := map[types.PartitionID]struct{}{home: {}}
	others := make([]types.PartitionID, 0, len(listed))
	for _, p := range listed {
		if p == "" {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		others = append(others, p)
	}
	return others
}
