package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/procmeta/pkg/observability/metrics"
	"github.com/matzehuels/procmeta/pkg/server"
	"github.com/matzehuels/procmeta/pkg/store"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metadata HTTP API",
		Long: `Serve the metadata HTTP API.

Resolved documents are kept in MongoDB when store.mongo_uri is configured and
in memory otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr, !noMetrics)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the /metrics endpoint")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, withMetrics bool) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return err
	}
	defer runner.Close()

	st, err := c.newStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := server.Options{
		Workers:         c.Config.Resolve.Workers,
		VendorNamespace: c.Config.Namespaces.Vendor,
	}
	if withMetrics {
		m := metrics.New()
		m.Install()
		opts.Metrics = m.Handler()
	}

	logger.Info("starting server", "addr", addr, "cache", c.Config.Cache.Backend)
	return server.New(runner, st, logger, opts).ListenAndServe(ctx, addr)
}

func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if c.Config.Store.MongoURI == "" {
		c.Logger.Warn("store.mongo_uri not set, documents are kept in memory")
		return store.NewMemoryStore(), nil
	}
	return store.NewMongoStore(ctx, c.Config.Store.MongoURI, c.Config.Store.Database)
}
