package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// controllersCommand creates the controllers command.
func (c *CLI) controllersCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "controllers [xlights_networks.xml]",
		Short: "List the controllers of an xLights show",
		Long: `List the controllers defined in xlights_networks.xml.

Without an argument the networks file from the [import] config section is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.cfg.Import.Networks
			if len(args) > 0 {
				path = args[0]
			}
			f, err := parseReportFormat(format)
			if err != nil {
				return err
			}
			return c.runControllers(path, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table, json, yaml")

	return cmd
}

func (c *CLI) runControllers(path string, format render.Format) error {
	if err := errors.ValidateFilePath(path); err != nil {
		return err
	}
	controllers, err := xlights.ParseNetworksFile(path)
	if err != nil {
		return err
	}
	c.Logger.Debug("parsed networks", "path", path, "controllers", len(controllers))

	if format != render.FormatTable {
		return render.Encode(stdout, controllers, format)
	}
	if len(controllers) == 0 {
		printWarning("No controllers in %s", path)
		return nil
	}
	fmt.Fprintln(stdout, controllersTable(controllers, c.cfg.Import.DifferentialTypes))
	return nil
}

// parseReportFormat accepts exactly one of table, json or yaml.
func parseReportFormat(s string) (render.Format, error) {
	formats, err := render.ParseFormats(s, render.ReportFormats)
	if err != nil {
		return "", err
	}
	if len(formats) != 1 {
		return "", errors.New(errors.ErrCodeInvalidFormat, "choose one output format, got %d", len(formats))
	}
	return formats[0], nil
}
