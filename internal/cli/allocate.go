package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/pipeline"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// allocateOpts holds the command-line flags for the allocate command.
type allocateOpts struct {
	networks     string // optional xlights_networks.xml to resolve the controller type
	controller   string // controller whose models are allocated
	strategy     string // port-grouping or sequential
	rule         string // logical port rule for differential controllers
	differential bool   // force differential distribution
	format       string // table, json or yaml
	output       string // output file, stdout when empty
	noCache      bool
	refresh      bool
}

// allocateCommand creates the allocate command. It prints the receiver plan
// for one controller without touching the stored diagram.
func (c *CLI) allocateCommand() *cobra.Command {
	var opts allocateOpts

	cmd := &cobra.Command{
		Use:   "allocate [xlights_rgbeffects.xml]",
		Short: "Plan the receivers of one controller",
		Long: `Group one controller's models onto remote receivers and print the plan.

The controller is looked up in --networks (or the configured networks file) to
decide whether it drives differential boards; pass --differential to force it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.cfg.Import.RGBEffects
			if len(args) > 0 {
				path = args[0]
			}
			return c.runAllocate(cmd.Context(), path, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.controller, "controller", "c", "", "controller name (required)")
	cmd.Flags().StringVarP(&opts.networks, "networks", "n", "", "xlights_networks.xml used to look up the controller")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "grouping strategy: port-grouping (default), sequential")
	cmd.Flags().StringVar(&opts.rule, "rule", "", "logical port rule: port-range, universe (default follows the strategy)")
	cmd.Flags().BoolVar(&opts.differential, "differential", false, "distribute receivers over differential ports")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table, json, yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute cached allocations")
	_ = cmd.MarkFlagRequired("controller")
	_ = cmd.RegisterFlagCompletionFunc("controller", c.completeControllers)

	return cmd
}

func (c *CLI) runAllocate(ctx context.Context, path string, opts allocateOpts) error {
	format, err := parseReportFormat(opts.format)
	if err != nil {
		return err
	}
	if err := errors.ValidateControllerName(opts.controller); err != nil {
		return err
	}
	if err := errors.ValidateFilePath(path); err != nil {
		return err
	}

	popts := pipeline.Options{
		NetworksPath:   opts.networks,
		RGBEffectsPath: path,
		Strategy:       opts.strategy,
		Rule:           opts.rule,
		Differential:   opts.differential,
		Refresh:        opts.refresh,
		Logger:         c.Logger,
	}
	c.importDefaults(&popts)

	ctl, err := c.lookupController(popts.NetworksPath, opts.controller)
	if err != nil {
		return err
	}

	set, err := xlights.ParseRGBEffectsFile(path)
	if err != nil {
		return err
	}
	models := set.ForController(ctl.Name)
	if len(models) == 0 {
		return errors.New(errors.ErrCodeControllerNotFound, "no models connected to controller %q", ctl.Name)
	}

	runner := c.newRunner(ctx, opts.noCache)
	defer runner.Close()

	ca, hit, err := runner.Allocate(ctx, ctl, models, popts)
	if err != nil {
		return err
	}
	rep := render.NewReport(ctl.Name, ca.Result, ca.Distribution)

	var buf bytes.Buffer
	if format == render.FormatTable {
		buf.WriteString(reportText(rep))
	} else if err := render.Encode(&buf, rep, format); err != nil {
		return err
	}

	if opts.output == "" {
		fmt.Fprint(stdout, buf.String())
		if format == render.FormatTable {
			printStats(ca.Summary, hit)
		}
		return nil
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
		return err
	}
	printSuccess("Allocated %s", ctl.Name)
	printFile(opts.output)
	printStats(ca.Summary, hit)
	return nil
}

// lookupController finds name in the networks file. Without a networks file
// a bare controller is returned, which is allocated as a direct controller.
func (c *CLI) lookupController(networks, name string) (xlights.Controller, error) {
	if networks == "" {
		return xlights.Controller{Name: name}, nil
	}
	controllers, err := xlights.ParseNetworksFile(networks)
	if err != nil {
		return xlights.Controller{}, err
	}
	ctl, ok := xlights.FindController(controllers, name)
	if !ok {
		return xlights.Controller{}, errors.New(errors.ErrCodeControllerNotFound, "controller %q not found in %s", name, networks)
	}
	return ctl, nil
}
