package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/amiresolve/adapter"
	"github.com/justapithecus/amiresolve/archive"
	"github.com/justapithecus/amiresolve/cache"
	amiconfig "github.com/justapithecus/amiresolve/cli/config"
	"github.com/justapithecus/amiresolve/cli/render"
	"github.com/justapithecus/amiresolve/cli/tui"
	"github.com/justapithecus/amiresolve/inventory"
	"github.com/justapithecus/amiresolve/iox"
	"github.com/justapithecus/amiresolve/log"
	"github.com/justapithecus/amiresolve/metrics"
	"github.com/justapithecus/amiresolve/pool"
	"github.com/justapithecus/amiresolve/resolver"
	"github.com/justapithecus/amiresolve/types"
)

// Exit codes.
const (
	exitSuccess        = 0
	exitResolveFailure = 1
	exitUsage          = 2
)

// Inventory is what resolve needs from the image inventory.
type Inventory interface {
	resolver.PartitionEnumerator
	resolver.LookupClient
}

// newInventory builds the EC2 inventory. Tests replace it.
var newInventory = func(ctx context.Context, cfg inventory.Config) (Inventory, error) {
	return inventory.New(ctx, cfg)
}

// ResolveCommand returns the resolve command.
func ResolveCommand() *cli.Command {
	flags := append(awsFlags(), outputFlags()...)
	flags = append(flags, suppressLogsFlag(),
		&cli.StringFlag{
			Name:    "ami",
			Aliases: []string{"a"},
			Usage:   "Image ID to resolve (mutually exclusive with --ami-name)",
		},
		&cli.StringFlag{
			Name:    "ami-name",
			Aliases: []string{"n"},
			Usage:   "Image name to resolve (mutually exclusive with --ami)",
		},
		&cli.BoolFlag{
			Name:  "tui",
			Usage: "Show the result in an interactive view",
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "Maximum concurrent region lookups",
			Value:   pool.DefaultSize,
		},
		&cli.StringSliceFlag{
			Name:  "owner",
			Usage: "Restrict lookups to image owners (self, amazon, account id); repeatable",
		},
		&cli.BoolFlag{
			Name:  "include-deprecated",
			Usage: "Include deprecated images in lookups",
		},
		// Cache flags
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Directory for cached results (disabled when empty)",
		},
		&cli.DurationFlag{
			Name:  "cache-ttl",
			Usage: "How long cached results stay valid",
			Value: cache.DefaultTTL,
		},
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "Ignore cached results (the fresh result is still cached)",
		},
		// Archive flags
		&cli.StringFlag{
			Name:  "archive-backend",
			Usage: "Archive backend: fs or s3 (disabled when empty)",
		},
		&cli.StringFlag{
			Name:  "archive-path",
			Usage: "Archive path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "archive-s3-region",
			Usage: "AWS region for the S3 archive (optional, uses default chain)",
		},
		// Adapter flags
		&cli.StringFlag{
			Name:  "adapter",
			Usage: "Completion notification adapter: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "adapter-url",
			Usage: "Adapter endpoint (webhook URL or redis://host:port/db)",
		},
		&cli.StringFlag{
			Name:  "adapter-channel",
			Usage: "Redis pub/sub channel",
		},
		&cli.StringSliceFlag{
			Name:  "adapter-header",
			Usage: "Webhook header as key=value; repeatable",
		},
		&cli.DurationFlag{
			Name:  "adapter-timeout",
			Usage: "Per-attempt adapter timeout",
			Value: 10 * time.Second,
		},
		&cli.IntFlag{
			Name:  "adapter-retries",
			Usage: "Adapter retry attempts",
			Value: 3,
		},
	)

	return &cli.Command{
		Name:   "resolve",
		Usage:  "Find the equivalent of an image in every region",
		Flags:  flags,
		Action: resolveAction,
	}
}

// resolveChoice holds the merged settings for one resolve invocation.
type resolveChoice struct {
	request           types.ResolutionRequest
	profile           string
	endpoint          string
	owners            []string
	includeDeprecated bool
	concurrency       int
	output            string
	noColor           bool
	suppressLogs      bool
	tui               bool
	cacheDir          string
	cacheTTL          time.Duration
	refresh           bool
	archive           archive.Config
	adapter           *adapterChoice
}

// adapterChoice holds parsed adapter configuration.
type adapterChoice struct {
	adapterType     string
	url             string
	channel         string
	headers         map[string]string
	secret          string
	timeout         time.Duration
	retries         int
	latestKeyPrefix string
	latestTTL       time.Duration
}

func parseResolveChoice(c *cli.Context, cfg *amiconfig.Config) (*resolveChoice, error) {
	choice := &resolveChoice{
		request: types.ResolutionRequest{
			HomePartition: types.PartitionID(resolveString(c, "region", configVal(cfg, func(c *amiconfig.Config) string { return c.Region }))),
			ArtifactID:    c.String("ami"),
			ArtifactName:  c.String("ami-name"),
		},
		profile:           resolveString(c, "profile", configVal(cfg, func(c *amiconfig.Config) string { return c.Profile })),
		endpoint:          resolveString(c, "endpoint", configVal(cfg, func(c *amiconfig.Config) string { return c.Endpoint })),
		owners:            resolveStringSlice(c, "owner", configVal(cfg, func(c *amiconfig.Config) []string { return c.Owners })),
		includeDeprecated: resolveBool(c, "include-deprecated", configVal(cfg, func(c *amiconfig.Config) bool { return c.IncludeDeprecated })),
		concurrency:       resolveInt(c, "concurrency", configVal(cfg, func(c *amiconfig.Config) int { return c.Concurrency })),
		output:            resolveString(c, "output", configVal(cfg, func(c *amiconfig.Config) string { return c.Output })),
		noColor:           c.Bool("no-color"),
		suppressLogs:      resolveBool(c, "suppress-logs", configVal(cfg, func(c *amiconfig.Config) bool { return c.SuppressLogs })),
		tui:               c.Bool("tui"),
		cacheDir:          resolveString(c, "cache-dir", configVal(cfg, func(c *amiconfig.Config) string { return c.Cache.Dir })),
		cacheTTL:          resolveDuration(c, "cache-ttl", configVal(cfg, func(c *amiconfig.Config) time.Duration { return c.Cache.TTL.Duration })),
		refresh:           c.Bool("refresh"),
	}

	if choice.request.HomePartition == "" {
		return nil, errors.New("--region is required (or set region in config)")
	}
	if err := choice.request.Validate(); err != nil {
		return nil, fmt.Errorf("%w (use exactly one of --ami or --ami-name)", err)
	}
	if choice.concurrency < 1 {
		return nil, fmt.Errorf("--concurrency must be >= 1, got %d", choice.concurrency)
	}
	if _, err := render.ParseFormat(choice.output); err != nil {
		return nil, err
	}

	archiveCfg, err := parseArchiveConfig(c, cfg, choice.profile)
	if err != nil {
		return nil, err
	}
	choice.archive = archiveCfg

	if adapterType := resolveString(c, "adapter", configVal(cfg, func(c *amiconfig.Config) string { return c.Adapter.Type })); adapterType != "" {
		ac, err := parseAdapterConfigWithPrecedence(c, cfg, adapterType)
		if err != nil {
			return nil, err
		}
		choice.adapter = ac
	}

	return choice, nil
}

func parseArchiveConfig(c *cli.Context, cfg *amiconfig.Config, profile string) (archive.Config, error) {
	ac := archive.Config{
		Dataset: configVal(cfg, func(c *amiconfig.Config) string { return c.Archive.Dataset }),
		Backend: resolveString(c, "archive-backend", configVal(cfg, func(c *amiconfig.Config) string { return c.Archive.Backend })),
		Path:    resolveString(c, "archive-path", configVal(cfg, func(c *amiconfig.Config) string { return c.Archive.Path })),
		S3: archive.S3Config{
			Region:       resolveString(c, "archive-s3-region", configVal(cfg, func(c *amiconfig.Config) string { return c.Archive.Region })),
			Profile:      profile,
			Endpoint:     configVal(cfg, func(c *amiconfig.Config) string { return c.Archive.Endpoint }),
			UsePathStyle: configVal(cfg, func(c *amiconfig.Config) bool { return c.Archive.S3PathStyle }),
		},
	}
	if !ac.Enabled() {
		return ac, nil
	}

	switch ac.Backend {
	case archive.BackendFS, archive.BackendS3:
	default:
		return ac, fmt.Errorf("unknown --archive-backend %q (must be fs or s3)", ac.Backend)
	}
	if ac.Path == "" {
		return ac, fmt.Errorf("--archive-path is required when --archive-backend=%s", ac.Backend)
	}
	return ac, nil
}

// parseAdapterConfigWithPrecedence merges adapter flags over config values.
func parseAdapterConfigWithPrecedence(c *cli.Context, cfg *amiconfig.Config, adapterType string) (*adapterChoice, error) {
	switch adapterType {
	case "webhook", "redis":
	default:
		return nil, fmt.Errorf("unknown adapter type %q (must be webhook or redis)", adapterType)
	}

	ac := &adapterChoice{
		adapterType:     adapterType,
		url:             resolveString(c, "adapter-url", configVal(cfg, func(c *amiconfig.Config) string { return c.Adapter.URL })),
		channel:         resolveString(c, "adapter-channel", configVal(cfg, func(c *amiconfig.Config) string { return c.Adapter.Channel })),
		timeout:         resolveDuration(c, "adapter-timeout", configVal(cfg, func(c *amiconfig.Config) time.Duration { return c.Adapter.Timeout.Duration })),
		retries:         c.Int("adapter-retries"),
		secret:          configVal(cfg, func(c *amiconfig.Config) string { return c.Adapter.Secret }),
		latestKeyPrefix: configVal(cfg, func(c *amiconfig.Config) string { return c.Adapter.LatestKeyPrefix }),
		latestTTL:       configVal(cfg, func(c *amiconfig.Config) time.Duration { return c.Adapter.LatestTTL.Duration }),
	}
	if !c.IsSet("adapter-retries") {
		if r := configVal(cfg, func(c *amiconfig.Config) *int { return c.Adapter.Retries }); r != nil {
			ac.retries = *r
		}
	}

	headers, err := parseHeaders(c.StringSlice("adapter-header"))
	if err != nil {
		return nil, err
	}
	if len(headers) == 0 {
		headers = configVal(cfg, func(c *amiconfig.Config) map[string]string { return c.Adapter.Headers })
	}
	ac.headers = headers

	if ac.url == "" {
		return nil, fmt.Errorf("--adapter-url is required when --adapter=%s", adapterType)
	}
	if ac.retries < 0 {
		return nil, fmt.Errorf("--adapter-retries must be >= 0, got %d", ac.retries)
	}
	return ac, nil
}

// parseHeaders parses key=value pairs.
func parseHeaders(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid --adapter-header %q (want key=value)", p)
		}
		headers[strings.TrimSpace(k)] = v
	}
	return headers, nil
}

// cacheScope is the part of the cache key not covered by the request.
func (rc *resolveChoice) cacheScope() string {
	owners := append([]string(nil), rc.owners...)
	sort.Strings(owners)
	return fmt.Sprintf("profile=%s;endpoint=%s;owners=%s;deprecated=%t",
		rc.profile, rc.endpoint, strings.Join(owners, ","), rc.includeDeprecated)
}

func resolveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	choice, err := parseResolveChoice(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	out := writerOr(c.App.Writer, os.Stdout)
	renderer, err := render.NewRenderer(choice.output, choice.noColor, out)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolutionID := uuid.NewString()
	logger := log.NewNop()
	if !choice.suppressLogs {
		logger = log.NewLogger(&types.ResolutionMeta{
			ResolutionID:  resolutionID,
			HomePartition: choice.request.HomePartition,
		}).WithOutput(writerOr(c.App.ErrWriter, os.Stderr))
	}
	defer logger.Sync()

	collector := metrics.NewCollector(string(choice.request.HomePartition), choice.concurrency, resolutionID)

	result, cached, err := resolveWithCache(ctx, choice, resolutionID, logger, collector)
	if err != nil {
		return cli.Exit(fmt.Sprintf("resolution failed: %v", err), exitCodeFor(err))
	}

	archivePath := archiveResult(ctx, choice.archive, result, logger, collector)
	publishResult(ctx, choice.adapter, result, archivePath, cached, logger, collector)

	snap := collector.Snapshot()
	logger.Debug("resolution metrics", snap.Fields())

	if choice.tui {
		return tui.Run(result, &snap)
	}
	if err := renderer.RenderResult(result); err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	return nil
}

// resolveWithCache serves the request from the cache when possible and
// resolves it otherwise. The boolean reports a cache hit.
func resolveWithCache(ctx context.Context, choice *resolveChoice, resolutionID string, logger *log.Logger, collector *metrics.Collector) (*types.ResolutionResult, bool, error) {
	var store *cache.Cache
	if choice.cacheDir != "" {
		s, err := cache.New(choice.cacheDir, choice.cacheTTL, cache.WithScope(choice.cacheScope()))
		if err != nil {
			logger.Warn("cache unavailable, resolving without it", map[string]any{"error": err.Error()})
		} else {
			store = s
			if removed, err := store.Prune(); err != nil {
				logger.Warn("cache prune failed", map[string]any{"error": err.Error()})
			} else if removed > 0 {
				logger.Debug("pruned expired cache entries", map[string]any{"removed": removed})
			}
		}
	}

	if store != nil && !choice.refresh {
		hit, ok, err := store.Get(choice.request)
		if err != nil {
			logger.Warn("cache read failed", map[string]any{"error": err.Error()})
		}
		if ok {
			collector.IncCacheHit()
			logger.Info("using cached result", map[string]any{
				"cached_resolution_id": hit.ResolutionID,
				"resolved_at":          hit.ResolvedAt.UTC().Format(time.RFC3339),
			})
			return hit, true, nil
		}
		collector.IncCacheMiss()
	}

	inv, err := newInventory(ctx, inventory.Config{
		Region:            string(choice.request.HomePartition),
		Profile:           choice.profile,
		Endpoint:          choice.endpoint,
		Owners:            choice.owners,
		IncludeDeprecated: choice.includeDeprecated,
	})
	if err != nil {
		return nil, false, err
	}

	res := resolver.New(inv, inv,
		resolver.WithConcurrency(choice.concurrency),
		resolver.WithLogger(logger),
		resolver.WithMetrics(collector),
		resolver.WithResolutionID(resolutionID),
	)
	result, err := res.Resolve(ctx, choice.request)
	if err != nil {
		return nil, false, err
	}

	if store != nil {
		cacheResult(ctx, store, choice.request, result, logger)
	}
	return result, false, nil
}

// cacheResult stores result unless it may be incomplete: some region lookup
// errored, or ctx was canceled during fan-out.
func cacheResult(ctx context.Context, store *cache.Cache, req types.ResolutionRequest, result *types.ResolutionResult, logger *log.Logger) {
	if err := ctx.Err(); err != nil {
		logger.Warn("not caching result, resolution was interrupted", map[string]any{"error": err.Error()})
		return
	}
	if len(result.Failures) > 0 {
		failed := make([]string, 0, len(result.Failures))
		for _, p := range result.FailedRegions() {
			failed = append(failed, string(p))
		}
		logger.Warn("not caching partial result", map[string]any{"failed_regions": failed})
		return
	}
	if err := store.Put(req, result); err != nil {
		logger.Warn("cache write failed", map[string]any{"error": err.Error()})
	}
}

// archiveResult writes result to the configured archive. Failures are
// logged and never fail the command. Returns the partition path written.
func archiveResult(ctx context.Context, cfg archive.Config, result *types.ResolutionResult, logger *log.Logger, collector *metrics.Collector) string {
	if !cfg.Enabled() {
		return ""
	}

	a, err := archive.Open(ctx, cfg)
	if err != nil {
		collector.IncArchiveFailure()
		logger.Warn("archive unavailable", map[string]any{"error": err.Error()})
		return ""
	}
	defer iox.DiscardClose(a)

	partition, err := a.Write(ctx, result)
	if err != nil {
		collector.IncArchiveFailure()
		logger.Warn("archive write failed", map[string]any{"error": err.Error()})
		return ""
	}

	collector.IncArchiveWrite()
	logger.Info("archived result", map[string]any{
		"location":  a.Location(),
		"partition": partition,
	})
	return partition
}

// publishResult notifies the configured adapter. Failures are logged and
// never fail the command.
func publishResult(ctx context.Context, ac *adapterChoice, result *types.ResolutionResult, archivePath string, cached bool, logger *log.Logger, collector *metrics.Collector) {
	if ac == nil {
		return
	}

	a, err := buildAdapter(ac)
	if err != nil {
		collector.IncPublishFailure()
		logger.Warn("adapter unavailable", map[string]any{"adapter": ac.adapterType, "error": err.Error()})
		return
	}
	defer iox.DiscardClose(a)

	event := adapter.NewResolutionCompletedEvent(result, archivePath, cached)
	if err := a.Publish(ctx, event); err != nil {
		collector.IncPublishFailure()
		logger.Warn("publish failed", map[string]any{"adapter": ac.adapterType, "error": err.Error()})
		return
	}

	collector.IncPublishSuccess()
	logger.Info("published completion event", map[string]any{"adapter": ac.adapterType})
}

// exitCodeFor maps a resolution error to a process exit code.
func exitCodeFor(err error) int {
	if errors.Is(err, resolver.ErrMalformedRequest) {
		return exitUsage
	}
	return exitResolveFailure
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
