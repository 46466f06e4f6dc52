package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/procmeta/pkg/buildinfo"
	"github.com/matzehuels/procmeta/pkg/cache"
	"github.com/matzehuels/procmeta/pkg/config"
	"github.com/matzehuels/procmeta/pkg/pipeline"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any subcommand runs.
	Config *config.Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "procmeta",
		Short: "procmeta extracts node metadata from BPMN process models",
		Long: `procmeta reads BPMN 2.0 documents and resolves the static metadata of every
flow node: lane, canvas position, enclosing group, documentation, vendor
extension properties and data object inputs and outputs.`,
		Version:      buildinfo.Resolve().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(c.parseCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads --config, or the default path when it exists.
func (c *CLI) loadConfig() error {
	if c.configPath != "" {
		cfg, err := config.Load(c.configPath)
		if err != nil {
			return err
		}
		c.Config = cfg
		return nil
	}
	cfg, err := config.LoadOrDefault(config.DefaultPath())
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, c.newKeyer(), c.Logger)
	r.TTL = c.Config.Cache.TTL.Duration
	return r, nil
}

// newKeyer scopes cache keys when a Redis key prefix is configured.
func (c *CLI) newKeyer() cache.Keyer {
	keyer := cache.NewDefaultKeyer()
	if c.Config.Cache.Backend == config.BackendRedis && c.Config.Redis.KeyPrefix != "" {
		return cache.NewScopedKeyer(keyer, c.Config.Redis.KeyPrefix)
	}
	return keyer
}

// newCache opens the configured cache backend. An unreachable Redis falls
// back to no caching rather than failing the command.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, c.Config.Redis.Addr)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, caching disabled", "addr", c.Config.Redis.Addr, "err", err)
			return cache.NewNullCache(), nil
		}
		return rc, nil
	default:
		return cache.NewFileCache(c.Config.Cache.Dir)
	}
}

// =============================================================================
// Options Helpers
// =============================================================================

// resolveOptions builds pipeline options for path from the shared flags and
// the loaded config.
func (c *CLI) resolveOptions(path string, f *resolveFlags) pipeline.Options {
	opts := pipeline.Options{
		Path:            path,
		VendorNamespace: c.Config.Namespaces.Vendor,
		Workers:         c.Config.Resolve.Workers,
		Process:         f.process,
		Refresh:         f.refresh,
		Logger:          c.Logger,
	}
	if f.vendor != "" {
		opts.VendorNamespace = f.vendor
	}
	if f.workers > 0 {
		opts.Workers = f.workers
	}
	return opts
}

// resolveFlags are shared by every command that reads a BPMN file.
type resolveFlags struct {
	process string
	vendor  string
	workers int
	refresh bool
	noCache bool
}

func (f *resolveFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.process, "process", "p", "", "only resolve the process with this id")
	cmd.Flags().StringVar(&f.vendor, "vendor", "", "namespace URI bound to the camunda: extension prefix")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "concurrent node resolution (default from config)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "bypass cached results")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
