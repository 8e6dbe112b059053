// Package cache stores resolution results on local disk so repeated
// resolutions of the same seed can skip the fan-out.
//
// Entries are msgpack-encoded and expire after a fixed TTL.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/amiresolve/iox"
	"github.com/justapithecus/amiresolve/types"
)

// DefaultTTL is used when no TTL is configured.
const DefaultTTL = 15 * time.Minute

const fileExt = ".msgpack"

// entry is the on-disk representation.
type entry struct {
	Key      string                 `msgpack:"key"`
	StoredAt time.Time              `msgpack:"stored_at"`
	Result   types.ResolutionResult `msgpack:"result"`
}

// Cache is a directory of result entries.
// It is safe for use by multiple processes: writes are atomic renames.
type Cache struct {
	dir   string
	ttl   time.Duration
	scope string
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithScope mixes s into every key. Use it for inputs that change
// lookup results without being part of the request (owners, profile).
func WithScope(s string) Option {
	return func(c *Cache) { c.scope = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache rooted at dir, creating it if needed.
// A ttl <= 0 selects DefaultTTL.
func New(dir string, ttl time.Duration, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	c := &Cache{dir: dir, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Key returns the cache key for req.
func (c *Cache) Key(req types.ResolutionRequest) string {
	kind := "name"
	if req.ByID() {
		kind = "id"
	}
	return fmt.Sprintf("%s|%s|%s=%s", c.scope, req.HomePartition, kind, req.SeedKey())
}

func (c *Cache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+fileExt)
}

// Get returns the cached result for req. The boolean is false on a miss,
// including when the entry has expired or belongs to a different key.
func (c *Cache) Get(req types.ResolutionRequest) (*types.ResolutionResult, bool, error) {
	key := c.Key(req)
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cache entry: %w", err)
	}

	var e entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	if e.Key != key {
		return nil, false, nil
	}
	if c.now().Sub(e.StoredAt) >= c.ttl {
		return nil, false, nil
	}
	return &e.Result, true, nil
}

// Put stores result under req's key.
func (c *Cache) Put(req types.ResolutionRequest, result *types.ResolutionResult) error {
	if result == nil {
		return errors.New("cache: nil result")
	}
	key := c.Key(req)
	data, err := msgpack.Marshal(&entry{Key: key, StoredAt: c.now(), Result: *result})
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		iox.DiscardClose(tmp)
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("commit cache entry: %w", err)
	}
	return nil
}

// Prune removes expired and unreadable entries and returns how many
// were removed.
func (c *Cache) Prune() (int, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*"+fileExt))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range matches {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var e entry
		if msgpack.Unmarshal(data, &e) == nil && c.now().Sub(e.StoredAt) < c.ttl {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}
