// Package render turns diagrams and allocations into files.
//
//   - [ToPDF] and [ToPNG] convert SVG with the external rsvg-convert tool.
//   - [Report] summarizes an allocation per receiver and logical port and
//     encodes as JSON or YAML.
//   - The [nodelink] subpackage draws the wiring diagram with Graphviz.
//
//	dot := nodelink.ToDOT(d, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//
// [nodelink]: github.com/matzehuels/xwire/pkg/render/nodelink
package render
