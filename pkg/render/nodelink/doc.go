// Package nodelink renders wiring diagrams as Graphviz node-link graphs.
//
// # Overview
//
// Every diagram node becomes a Graphviz node and every wire an edge drawn
// in the wire's color. Controllers and receivers are drawn as tables with
// one cell per port, filled by utilization:
//
//   - yellow: within capacity
//   - orange: above 80% of capacity
//   - red: over capacity
//
// Empty ports stay white.
//
// # Usage
//
//	dot := nodelink.ToDOT(d, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)  // 2x scale
//
// # Options
//
//   - Detailed: list model names in each port cell and draw the sixteen
//     differential ports with their shared budgets.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
