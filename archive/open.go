package archive

import (
	"context"
	"fmt"
)

// Backends.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Config selects and configures an archive backend.
type Config struct {
	Dataset string
	Backend string
	// Path is a directory for fs, or "bucket/prefix" for s3.
	Path string
	S3   S3Config
}

// Enabled reports whether an archive backend is configured.
func (c Config) Enabled() bool {
	return c.Backend != ""
}

// Open creates an archive for cfg.
func Open(ctx context.Context, cfg Config) (*Archive, error) {
	switch cfg.Backend {
	case BackendFS:
		if cfg.Path == "" {
			return nil, fmt.Errorf("archive backend %q requires a path", cfg.Backend)
		}
		return NewFS(cfg.Dataset, cfg.Path)
	case BackendS3:
		s3cfg := cfg.S3
		if cfg.Path != "" {
			s3cfg.Bucket, s3cfg.Prefix = ParseS3Path(cfg.Path)
		}
		return NewS3(ctx, cfg.Dataset, s3cfg)
	default:
		return nil, fmt.Errorf("unknown archive backend %q (want %s or %s)", cfg.Backend, BackendFS, BackendS3)
	}
}
