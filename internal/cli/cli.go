// Package cli implements the xwire command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/xwire/pkg/buildinfo"
	"github.com/matzehuels/xwire/pkg/cache"
	"github.com/matzehuels/xwire/pkg/config"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

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

	errOut     io.Writer // spinner output, shared with the logger
	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger and the built-in
// configuration. The config file is read before each command runs.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		errOut: w,
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "xwire plans the wiring of xLights pixel controllers",
		Long: `xwire reads an xLights show (xlights_networks.xml and xlights_rgbeffects.xml),
groups each controller's models onto remote receivers, distributes them over
differential ports and draws the resulting wiring diagram.`,
		Version:           buildinfo.Get().Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/xwire/config.toml)")

	root.AddCommand(c.controllersCommand())
	root.AddCommand(c.modelsCommand())
	root.AddCommand(c.allocateCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and attaches a logger prefixed with the
// command name to the command context.
func (c *CLI) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	cmd.SetContext(withLogger(cmd.Context(), c.Logger.WithPrefix(cmd.Name())))
	c.Logger.Debug("configuration loaded", "path", c.configPath, "store", cfg.Store.Backend, "cache", cfg.Cache.Dir)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) *pipeline.Runner {
	return pipeline.NewRunner(c.newCache(ctx, noCache), nil, c.Logger)
}

// newCache opens the configured cache. An unavailable backend disables
// caching instead of failing the command.
func (c *CLI) newCache(ctx context.Context, noCache bool) cache.Cache {
	if noCache {
		return cache.NewNullCache()
	}
	ch, err := c.cfg.Cache.OpenCache(ctx)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "err", err)
		return cache.NewNullCache()
	}
	return ch
}

// openStore opens the configured diagram persister.
func (c *CLI) openStore(ctx context.Context) (diagram.Persister, error) {
	return c.cfg.Store.OpenStore(ctx)
}

// =============================================================================
// Options Helpers
// =============================================================================

// importDefaults fills empty pipeline options from the [import] section.
func (c *CLI) importDefaults(opts *pipeline.Options) {
	d := c.cfg.Import
	if opts.NetworksPath == "" {
		opts.NetworksPath = d.Networks
	}
	if opts.RGBEffectsPath == "" {
		opts.RGBEffectsPath = d.RGBEffects
	}
	if opts.Strategy == "" {
		opts.Strategy = d.Strategy
	}
	if opts.Rule == "" {
		opts.Rule = d.LogicalPortRule
	}
	if len(opts.DifferentialTypes) == 0 {
		opts.DifferentialTypes = d.DifferentialTypes
	}
}
