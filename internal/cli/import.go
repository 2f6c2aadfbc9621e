package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/xwire/pkg/config"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/pipeline"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// importOpts holds the command-line flags for the import command.
type importOpts struct {
	pipeline pipeline.Options
	selectUI bool // pick controllers interactively
	merge    bool // add to the stored diagram instead of replacing it
	noCache  bool
}

// importCommand creates the import command.
func (c *CLI) importCommand() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import [xlights_networks.xml] [xlights_rgbeffects.xml]",
		Short: "Import an xLights show into the wiring diagram",
		Long: `Import controllers and models from an xLights show directory, allocate
receivers for every controller and store the resulting diagram.

Paths default to the [import] config section. Without --merge the stored
diagram is replaced.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.pipeline.NetworksPath = args[0]
			}
			if len(args) > 1 {
				opts.pipeline.RGBEffectsPath = args[1]
			}
			return c.runImport(cmd.Context(), opts)
		},
	}

	p := &opts.pipeline
	cmd.Flags().StringVarP(&p.NetworksPath, "networks", "n", "", "xlights_networks.xml (default from config)")
	cmd.Flags().StringVarP(&p.RGBEffectsPath, "rgbeffects", "r", "", "xlights_rgbeffects.xml (default from config)")
	cmd.Flags().StringSliceVarP(&p.Controllers, "controllers", "c", nil, "controllers to import (default all)")
	cmd.Flags().BoolVar(&opts.selectUI, "select", false, "choose controllers interactively")
	cmd.Flags().StringVarP(&p.Strategy, "strategy", "s", "", "grouping strategy: port-grouping (default), sequential")
	cmd.Flags().StringVar(&p.Rule, "rule", "", "logical port rule: port-range, universe (default follows the strategy)")
	cmd.Flags().StringSliceVar(&p.DifferentialTypes, "differential-types", nil, "controller types that drive differential boards (default hinkspix)")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "merge into the stored diagram")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&p.Refresh, "refresh", false, "recompute cached allocations")
	_ = cmd.RegisterFlagCompletionFunc("controllers", c.completeControllers)

	return cmd
}

func (c *CLI) runImport(ctx context.Context, opts importOpts) error {
	popts := opts.pipeline
	popts.Logger = c.Logger
	c.importDefaults(&popts)
	if popts.NetworksPath == "" {
		return errors.New(errors.ErrCodeInvalidInput, "no networks file: pass a path or set import.networks in the config")
	}
	if err := popts.ValidateAndSetDefaults(); err != nil {
		return err
	}

	runner := c.newRunner(ctx, opts.noCache)
	defer runner.Close()

	if opts.selectUI {
		names, err := c.selectControllers(ctx, runner, popts)
		if err != nil {
			return err
		}
		if names == nil {
			printInfo("Import cancelled")
			return nil
		}
		popts.Controllers = names
	}

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, c.errOut, "Reading xLights files...")
	untrack := trackImport(spinner, len(popts.Controllers))
	spinner.Start()
	res, err := runner.Import(ctx, popts)
	untrack()
	if err != nil {
		spinner.StopWithError("Import failed")
		return err
	}
	spinner.Stop()
	prog.stage("pipeline")

	saved, err := c.saveImport(ctx, res.Diagram, opts.merge)
	if err != nil {
		return err
	}
	prog.stage("save")
	prog.done("imported", "controllers", len(res.Controllers), "receivers", res.Summary.Receivers)

	printSuccess("Imported %s", joinLimit(controllerNames(res), 4))
	printStats(res.Summary, res.CacheInfo.AllocationMisses == 0)
	for _, w := range res.Warnings {
		printWarning("%s", w)
	}
	printKeyValue("Store", saved)
	fmt.Fprintln(stdout)
	printNextStep("Render the diagram", appName+" render -f svg,pdf")
	return nil
}

// selectControllers extracts the show and lets the user pick controllers.
func (c *CLI) selectControllers(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) ([]string, error) {
	ex, err := runner.Extract(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(ex.Controllers) == 0 {
		return nil, errors.New(errors.ErrCodeNoControllers, "no controllers found")
	}
	var models *xlights.ModelSet
	if ex.HasModels() {
		models = ex.Models
	}
	return pickControllers(ex.Controllers, models)
}

// saveImport writes the imported diagram to the configured store, merging
// with its current content when merge is set. It returns a description of
// where the diagram went.
func (c *CLI) saveImport(ctx context.Context, d diagram.Diagram, merge bool) (string, error) {
	persist, err := c.openStore(ctx)
	if err != nil {
		return "", err
	}
	defer persist.Close()

	store := diagram.NewStore()
	if merge {
		cur, err := persist.Load(ctx)
		if err != nil {
			return "", err
		}
		store.Load(cur)
		store.Merge(d)
	} else {
		store.Load(d)
	}

	if err := persist.Save(ctx, store.Snapshot()); err != nil {
		return "", errors.Wrap(errors.ErrCodeStorage, err, "save diagram")
	}
	return c.storeLocation(), nil
}

func (c *CLI) storeLocation() string {
	s := c.cfg.Store
	if s.Backend == config.BackendMongo {
		return strings.TrimSpace("mongo " + s.MongoDatabase + " " + s.MongoCollection)
	}
	return s.Path
}

func controllerNames(res *pipeline.ImportResult) []string {
	names := make([]string, len(res.Controllers))
	for i, ca := range res.Controllers {
		names[i] = ca.Controller.Name
	}
	return names
}
