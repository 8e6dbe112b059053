// Package redis implements a Redis notification adapter.
//
// Publishes resolution completion events as JSON to a configurable pub/sub
// channel and, optionally, stores the latest event for each image name under
// a key so late subscribers can read the current region map.
// Retries with exponential backoff on connection errors.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justapithecus/amiresolve/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "amiresolve:resolution_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// Config configures the Redis adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: amiresolve:resolution_completed).
	Channel string
	// LatestKeyPrefix, when set, stores each event under "<prefix><image name>".
	LatestKeyPrefix string
	// LatestTTL expires stored events (0 keeps them indefinitely).
	LatestTTL time.Duration
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure (default 3).
	Retries int
}

// Adapter publishes resolution completion events via Redis.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis adapter from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// LatestKey returns the key the event for imageName is stored under,
// or "" when latest-event storage is disabled.
func (a *Adapter) LatestKey(imageName string) string {
	if a.config.LatestKeyPrefix == "" {
		return ""
	}
	return a.config.LatestKeyPrefix + imageName
}

// Publish sends the event to the configured channel in one pipeline,
// together with the latest-event SET when enabled.
func (a *Adapter) Publish(ctx context.Context, event *adapter.ResolutionCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	key := a.LatestKey(event.ImageName)

	return adapter.Deliver(ctx, "redis", a.config.Retries, nil, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()

		_, err := a.client.Pipelined(publishCtx, func(pipe goredis.Pipeliner) error {
			pipe.Publish(publishCtx, a.config.Channel, body)
			if key != "" {
				pipe.Set(publishCtx, key, body, a.config.LatestTTL)
			}
			return nil
		})
		return err
	})
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

// Verify Adapter implements the adapter interface.
var _ adapter.Adapter = (*Adapter)(nil)
