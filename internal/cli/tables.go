package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/xwire/pkg/alloc"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/xlights"
)

var headerStyle = lipgloss.NewStyle().Foreground(colorGray).Bold(true)

// newTable returns a rounded table with the shared header style. cell styles
// data cells; it may be nil.
func newTable(headers []string, rows [][]string, cell func(row, col int) lipgloss.Style) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if cell == nil {
				return lipgloss.NewStyle().Padding(0, 1)
			}
			return cell(row, col).Padding(0, 1)
		})
}

// controllersTable lists controllers and their outputs.
func controllersTable(cs []xlights.Controller, differentialTypes []string) string {
	rows := make([][]string, 0, len(cs))
	for _, c := range cs {
		kind := "direct"
		if c.IsDifferential(differentialTypes) {
			kind = "differential"
		}
		model := strings.TrimSpace(c.Vendor + " " + c.Model)
		if model == "" {
			model = "—"
		}
		rows = append(rows, []string{
			c.Name,
			c.Type,
			model,
			c.Protocol,
			strconv.Itoa(len(c.Outputs)),
			strconv.Itoa(c.Channels()),
			kind,
		})
	}
	return newTable([]string{"Controller", "Type", "Model", "Protocol", "Outputs", "Channels", "Wiring"}, rows, nil).Render()
}

// modelsTable lists models with their channel, port and pixel count.
func modelsTable(models []alloc.Model) string {
	rows := make([][]string, 0, len(models))
	for _, m := range models {
		start := "—"
		if m.Valid() {
			start = strconv.Itoa(m.Start())
		}
		rows = append(rows, []string{
			m.Name,
			m.Controller,
			start,
			optInt(m.SourcePort),
			optInt(m.SmartRemote),
			strconv.Itoa(m.PixelCount),
		})
	}
	return newTable([]string{"Model", "Controller", "Start", "Port", "Remote", "Pixels"}, rows, func(row, col int) lipgloss.Style {
		if row < len(models) && !models[row].Valid() {
			return StyleDim
		}
		return lipgloss.NewStyle()
	}).Render()
}

func optInt(v *int) string {
	if v == nil {
		return "—"
	}
	return strconv.Itoa(*v)
}

// receiversTable shows each receiver with the fill of its four ports.
func receiversTable(rep render.Report) string {
	headers := []string{"Receiver", "DIP", "LP"}
	for i := 1; i <= alloc.PortsPerReceiver; i++ {
		headers = append(headers, fmt.Sprintf("Port %d", i))
	}
	headers = append(headers, "Total")

	rows := make([][]string, 0, len(rep.Receivers))
	for _, r := range rep.Receivers {
		lp := "—"
		if r.LogicalPort > 0 {
			lp = fmt.Sprintf("%d.%d", r.LogicalPort, r.ChainPosition)
		}
		row := []string{r.Name, r.Address, lp}
		for _, p := range r.Ports {
			cell := formatUtilization(p.Utilization)
			if len(p.Models) > 0 {
				cell += " " + joinLimit(p.Models, 2)
			}
			row = append(row, cell)
		}
		row = append(row, formatUtilization(r.Utilization))
		rows = append(rows, row)
	}

	return newTable(headers, rows, func(row, col int) lipgloss.Style {
		if row >= len(rep.Receivers) {
			return lipgloss.NewStyle()
		}
		r := rep.Receivers[row]
		switch {
		case col >= 3 && col < 3+len(r.Ports):
			return statusStyle(r.Ports[col-3].Status)
		case col == len(headers)-1:
			return statusStyle(r.Utilization.Status())
		}
		return lipgloss.NewStyle()
	}).Render()
}

// logicalPortsTable shows the receiver chain, shared budget and pixels
// still free on each occupied logical port.
func logicalPortsTable(rep render.Report) string {
	rows := make([][]string, 0, len(rep.LogicalPorts))
	for _, lp := range rep.LogicalPorts {
		shared := make([]string, len(lp.Shared))
		for i, u := range lp.Shared {
			shared[i] = strconv.Itoa(u.Used)
		}
		rows = append(rows, []string{
			strconv.Itoa(lp.Number),
			strconv.Itoa(lp.Board),
			strings.Join(lp.Chain, " → "),
			strings.Join(shared, " / "),
			formatUtilization(lp.Utilization),
			strconv.Itoa(lp.Utilization.Free()),
		})
	}
	return newTable([]string{"LP", "Board", "Chain", "Shared ports", "Total", "Free"}, rows, func(row, col int) lipgloss.Style {
		if row < len(rep.LogicalPorts) && col >= 3 {
			return statusStyle(rep.LogicalPorts[row].Status)
		}
		return lipgloss.NewStyle()
	}).Render()
}

// reportText renders a full allocation report for the terminal.
func reportText(rep render.Report) string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(rep.Controller))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s · %d pixels · %d channels", rep.Strategy, rep.Pixels, rep.Channels)))
	b.WriteString("\n")
	b.WriteString(receiversTable(rep))
	b.WriteString("\n")
	if len(rep.LogicalPorts) > 0 {
		b.WriteString(StyleDim.Render("differential ports (rule " + rep.Rule + ")"))
		b.WriteString("\n")
		b.WriteString(logicalPortsTable(rep))
		b.WriteString("\n")
	}
	for _, line := range []struct {
		label string
		names []string
	}{
		{"skipped, no start channel", rep.Excluded},
		{"not placed, no xLights port", rep.Unplaced},
		{"beyond logical port 16", rep.Unmapped},
	} {
		if len(line.names) > 0 {
			b.WriteString(StyleWarning.Render(fmt.Sprintf("%s %s: %s", iconWarning, line.label, joinLimit(line.names, 8))))
			b.WriteString("\n")
		}
	}
	return b.String()
}
