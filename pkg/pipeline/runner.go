package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/procmeta/pkg/bpmn"
	"github.com/matzehuels/procmeta/pkg/cache"
	"github.com/matzehuels/procmeta/pkg/io"
	"github.com/matzehuels/procmeta/pkg/observability"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeMetadata = "metadata"
	keyTypeRender   = "render"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration // metadata entry lifetime; 0 uses cache.TTLMetadata
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete resolve → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: Resolve
	resolveStart := time.Now()
	meta, hit, err := r.ResolveWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	result.Metadata = meta
	result.Stats.ResolveTime = time.Since(resolveStart)
	result.Stats.ProcessCount = len(meta.Processes)
	result.Stats.NodeCount = meta.NodeCount()
	result.CacheInfo.ResolveHit = hit

	r.Logger.Info("resolved metadata",
		"file", meta.Filename,
		"processes", result.Stats.ProcessCount,
		"nodes", result.Stats.NodeCount,
		"cached", hit,
		"duration", result.Stats.ResolveTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, meta, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ResolveWithCacheInfo resolves metadata with caching and returns cache hit info.
// Integrity errors are never cached.
func (r *Runner) ResolveWithCacheInfo(ctx context.Context, opts Options) (*bpmn.DocumentMetadata, bool, error) {
	if err := opts.ValidateForResolve(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	data, err := opts.load()
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.MetadataKey(cache.Hash(data), opts.MetadataKeyOpts())
	hooks := observability.Cache()

	if !opts.Refresh {
		if cached, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			if meta, err := io.Unmarshal(cached); err == nil {
				hooks.OnCacheHit(ctx, keyTypeMetadata)
				meta.Filename = opts.Filename
				return meta, true, nil
			}
			// Undecodable entry: fall through and overwrite it.
		} else if err != nil {
			r.Logger.Warn("cache read failed", "err", err)
		}
		hooks.OnCacheMiss(ctx, keyTypeMetadata)
	}

	meta, err := Resolve(ctx, data, opts)
	if err != nil {
		return nil, false, err
	}

	if encoded, err := io.Marshal(meta); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, encoded, r.ttl()); err != nil {
			r.Logger.Warn("cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, keyTypeMetadata, len(encoded))
		}
	}
	return meta, false, nil
}

// Resolve is a convenience wrapper that calls ResolveWithCacheInfo and discards the cache hit info.
func (r *Runner) Resolve(ctx context.Context, opts Options) (*bpmn.DocumentMetadata, error) {
	meta, _, err := r.ResolveWithCacheInfo(ctx, opts)
	return meta, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
// The JSON format is cheap and always encoded directly.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, meta *bpmn.DocumentMetadata, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)
	hooks := observability.Cache()

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if format == FormatJSON {
			missing = append(missing, format)
			continue
		}
		if !opts.Refresh {
			key := r.Keyer.RenderKey(meta.Hash, opts.RenderKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				hooks.OnCacheHit(ctx, keyTypeRender)
				artifacts[format] = data
				continue
			}
			hooks.OnCacheMiss(ctx, keyTypeRender)
		}
		missing = append(missing, format)
	}
	allCached := len(missing) == 0
	if allCached {
		return artifacts, true, nil
	}

	renderOpts := opts
	renderOpts.Formats = missing
	rendered, err := Render(ctx, meta, renderOpts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		if format == FormatJSON {
			continue
		}
		key := r.Keyer.RenderKey(meta.Hash, opts.RenderKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLRender); err == nil {
			hooks.OnCacheSet(ctx, keyTypeRender, len(data))
		}
	}
	return artifacts, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, meta *bpmn.DocumentMetadata, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, meta, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) ttl() time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return cache.TTLMetadata
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
