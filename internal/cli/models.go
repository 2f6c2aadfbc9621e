package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// modelsCommand creates the models command.
func (c *CLI) modelsCommand() *cobra.Command {
	var (
		format     string
		controller string
	)

	cmd := &cobra.Command{
		Use:   "models [xlights_rgbeffects.xml]",
		Short: "List the controller-connected models of an xLights show",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.cfg.Import.RGBEffects
			if len(args) > 0 {
				path = args[0]
			}
			f, err := parseReportFormat(format)
			if err != nil {
				return err
			}
			return c.runModels(path, controller, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, yaml")
	cmd.Flags().StringVarP(&controller, "controller", "c", "", "only list models of this controller")
	_ = cmd.RegisterFlagCompletionFunc("controller", c.completeControllers)

	return cmd
}

func (c *CLI) runModels(path, controller string, format render.Format) error {
	if err := errors.ValidateFilePath(path); err != nil {
		return err
	}
	set, err := xlights.ParseRGBEffectsFile(path)
	if err != nil {
		return err
	}

	models := set.Models
	if controller != "" {
		models = set.ForController(controller)
		if len(models) == 0 {
			return errors.New(errors.ErrCodeControllerNotFound, "no models connected to controller %q", controller)
		}
	}

	if format != render.FormatTable {
		if controller != "" {
			return render.Encode(stdout, models, format)
		}
		return render.Encode(stdout, set, format)
	}
	if len(models) == 0 {
		printWarning("%s", errors.MsgNoModelData)
		return nil
	}
	fmt.Fprintln(stdout, modelsTable(models))
	printDetail("%d models on %d controllers, %d without a controller", len(models), len(set.Controllers), set.Ignored)
	return nil
}
