package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/xwire/pkg/alloc"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/render"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed lists models per port and includes differential ports.
	Detailed bool
}

// Port fill colors by utilization status.
var statusFill = map[alloc.Status]string{
	alloc.StatusOK:        "#fde68a",
	alloc.StatusNearLimit: "#fdba74",
	alloc.StatusOver:      "#fca5a5",
}

const emptyFill = "#ffffff"

// ToDOT converts a diagram to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Wires whose endpoints are not nodes of d are skipped.
func ToDOT(d diagram.Diagram, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [penwidth=2, arrowsize=0.7, fontname=\"Helvetica\", fontsize=11];\n")
	buf.WriteString("  ranksep=0.8;\n")
	buf.WriteString("  nodesep=0.4;\n")
	buf.WriteString("\n")

	nodes := make(map[string]bool)
	node := func(id string, attrs ...string) {
		nodes[id] = true
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
	}

	for _, c := range d.Controllers {
		node(c.ID, "shape=plain", htmlLabel(portTable(c.Name, c.Type, c.Ports, "#e0e7ff", opts.Detailed)))
	}
	for _, b := range d.Differentials {
		node(b.ID, fmt.Sprintf("label=%q", fmt.Sprintf("%s\nboard %d", b.Name, b.BoardNumber)), "fillcolor=\"#dbeafe\"")
	}
	if opts.Detailed {
		for _, p := range d.DifferentialPorts {
			node(p.ID, "shape=plain", htmlLabel(portTable(p.Name, fmt.Sprintf("%d receivers", len(p.ConnectedReceivers)), p.SharedPorts, "#ede9fe", false)))
		}
	}
	for _, r := range d.Receivers {
		node(r.ID, "shape=plain", htmlLabel(portTable(r.DisplayName(), "DIP "+r.DipSwitch, r.Ports, "#dcfce7", opts.Detailed)))
	}
	for _, s := range d.EthernetSwitches {
		node(s.ID, fmt.Sprintf("label=%q", fmt.Sprintf("%s\n%d ports", s.Name, s.PortCount)), "shape=box3d", "style=filled", "fillcolor=\"#f3f4f6\"")
	}
	for _, p := range d.PowerSupplies {
		node(p.ID, fmt.Sprintf("label=%q", fmt.Sprintf("%s\n%gV %gA (%gW)", p.Name, p.Voltage, p.Amperage, p.Watts())), "fillcolor=\"#fee2e2\"")
	}
	for _, l := range d.Labels {
		attrs := []string{fmt.Sprintf("label=%q", l.Text), "shape=plaintext", "style=\"\""}
		if l.Style == diagram.LabelDivider {
			attrs = append(attrs, "fontsize=20", "fontname=\"Helvetica-Bold\"")
		}
		node(l.ID, attrs...)
	}

	buf.WriteString("\n")
	for _, w := range d.Wires {
		if !nodes[w.From.NodeID] || !nodes[w.To.NodeID] {
			continue
		}
		attrs := []string{fmt.Sprintf("color=%q", w.Color.Hex())}
		if w.Label != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", w.Label))
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", w.From.NodeID, w.To.NodeID, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func htmlLabel(table string) string {
	return "label=<" + table + ">"
}

// portTable draws a titled table with one cell per port.
func portTable(title, subtitle string, ports []diagram.Port, header string, detailed bool) string {
	var b strings.Builder
	span := max(len(ports), 1)
	b.WriteString(`<TABLE BORDER="1" CELLBORDER="1" CELLSPACING="0" CELLPADDING="6" STYLE="ROUNDED">`)
	fmt.Fprintf(&b, `<TR><TD COLSPAN="%d" BGCOLOR="%s"><B>%s</B><BR/><FONT POINT-SIZE="10">%s</FONT></TD></TR>`,
		span, header, html.EscapeString(title), html.EscapeString(subtitle))
	if len(ports) > 0 {
		b.WriteString("<TR>")
		for _, p := range ports {
			fmt.Fprintf(&b, `<TD BGCOLOR="%s">%s</TD>`, portFill(p), portCell(p, detailed))
		}
		b.WriteString("</TR>")
	}
	b.WriteString("</TABLE>")
	return b.String()
}

func portCell(p diagram.Port, detailed bool) string {
	u := p.Utilization()
	lines := []string{
		"<B>" + html.EscapeString(p.Name) + "</B>",
		fmt.Sprintf("%d/%d (%d%%)", u.Used, u.Capacity, u.Percent),
	}
	if detailed {
		for _, m := range p.Models {
			lines = append(lines, fmt.Sprintf(`<FONT POINT-SIZE="9">%s (%d)</FONT>`, html.EscapeString(m.Name), m.Pixels))
		}
	}
	return strings.Join(lines, "<BR/>")
}

func portFill(p diagram.Port) string {
	if p.CurrentPixels == 0 {
		return emptyFill
	}
	return statusFill[p.Utilization().Status()]
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
