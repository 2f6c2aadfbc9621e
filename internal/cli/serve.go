package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/server"
	"github.com/matzehuels/xwire/pkg/watch"
)

// serveCommand creates the serve command, which runs the HTTP API used by
// the diagram editor.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		watchPath string
		noWatch   bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for the diagram editor",
		Long: `Serve the xwire HTTP API.

The stored diagram is loaded at startup and saved after every import. When a
networks file is configured (or passed with --watch) it is watched for changes
and pushed to /api/xlights/stream subscribers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			if watchPath == "" && !noWatch {
				watchPath = c.cfg.Import.Networks
			}
			return c.runServe(cmd.Context(), addr, watchPath, noCache)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, :3001)")
	cmd.Flags().StringVarP(&watchPath, "watch", "w", "", "xlights_networks.xml to watch (default from config)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the configured networks file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, watchPath string, noCache bool) error {
	persist, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer persist.Close()

	d, err := persist.Load(ctx)
	if err != nil {
		return err
	}
	store := diagram.NewStore()
	store.Load(d)

	runner := c.newRunner(ctx, noCache)
	defer runner.Close()

	watcher := watch.New(c.Logger)
	defer watcher.Close()
	if watchPath != "" {
		if err := watcher.Watch(watchPath); err != nil {
			c.Logger.Warn("not watching networks file", "path", watchPath, "err", err)
		}
	}

	srv := server.New(server.Options{
		Runner:         runner,
		Store:          store,
		Persister:      persist,
		Watcher:        watcher,
		Logger:         c.Logger,
		Defaults:       c.cfg.Import,
		AllowedOrigins: c.cfg.Server.AllowedOrigins,
	})

	printSuccess("Serving on %s", addr)
	printDetail("%d nodes loaded from %s", d.NodeCount(), c.storeLocation())
	err = srv.ListenAndServe(ctx, addr)
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
