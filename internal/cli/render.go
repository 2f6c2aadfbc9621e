package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/pipeline"
	"github.com/matzehuels/xwire/pkg/render"
)

// defaultRenderBase names output files when neither an input file nor
// --output is given.
const defaultRenderBase = "wiring"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file (single format) or base path (multiple)
	formats  string // comma-separated: svg, png, pdf, dot, json
	detailed bool   // draw differential ports and port fill
	noCache  bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [diagram.json]",
		Short: "Render the wiring diagram to SVG, PNG, PDF or DOT",
		Long: `Render a saved wiring diagram.

Without an argument the diagram is read from the configured store.
PNG and PDF output need rsvg-convert on the PATH.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) > 0 {
				input = args[0]
			}
			return c.runRender(cmd.Context(), input, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "svg", "output format(s): svg, png, pdf, dot, json (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "draw differential ports and per-port fill")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	formats, err := render.ParseFormats(opts.formats, render.DiagramFormats)
	if err != nil {
		return err
	}

	d, err := c.loadDiagram(ctx, input)
	if err != nil {
		return err
	}
	if d.NodeCount() == 0 {
		printWarning("Diagram is empty")
		printNextStep("Import a show first", appName+" import xlights_networks.xml xlights_rgbeffects.xml")
		return nil
	}

	runner := c.newRunner(ctx, opts.noCache)
	defer runner.Close()

	prog := newProgress(loggerFromContext(ctx))
	artifacts, hit, err := runner.RenderWithCacheInfo(ctx, d, pipeline.RenderOptions{
		Formats:  formats,
		Detailed: opts.detailed,
	})
	if err != nil {
		return err
	}
	prog.stage("render")

	paths := outputPaths(opts.output, input, formats)
	for _, f := range formats {
		if err := os.WriteFile(paths[f], artifacts[f], 0o644); err != nil {
			return err
		}
	}
	prog.done("rendered", "formats", len(formats), "cached", hit)

	printSuccess("Rendered %d nodes", d.NodeCount())
	for _, f := range formats {
		printFile(paths[f])
	}
	if hit {
		printDetail("served from cache")
	}
	return nil
}

// loadDiagram reads input when given, otherwise the configured store.
func (c *CLI) loadDiagram(ctx context.Context, input string) (diagram.Diagram, error) {
	if input != "" {
		if _, err := os.Stat(input); err != nil {
			return diagram.Diagram{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "diagram %s", input)
		}
		return diagram.NewFileStore(input).Load(ctx)
	}
	persist, err := c.openStore(ctx)
	if err != nil {
		return diagram.Diagram{}, err
	}
	defer persist.Close()
	return persist.Load(ctx)
}

// outputPaths maps each format to its file. A single format writes to
// output as given; several formats share a base path with per-format
// extensions.
func outputPaths(output, input string, formats []render.Format) map[render.Format]string {
	paths := make(map[render.Format]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, input)
	for _, f := range formats {
		paths[f] = base + "." + string(f)
	}
	return paths
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .pdf, etc.), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		if input == "" {
			return defaultRenderBase
		}
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if render.DiagramFormats[render.Format(strings.TrimPrefix(ext, "."))] {
		return strings.TrimSuffix(output, ext)
	}
	return output
}
