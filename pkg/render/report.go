package render

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/xwire/pkg/alloc"
	"github.com/matzehuels/xwire/pkg/errors"
)

// Report is the printable summary of one controller's allocation.
type Report struct {
	Controller   string           `json:"controller" yaml:"controller"`
	Strategy     alloc.Strategy   `json:"strategy" yaml:"strategy"`
	Rule         string           `json:"rule,omitempty" yaml:"rule,omitempty"`
	Pixels       int              `json:"pixels" yaml:"pixels"`
	Channels     int              `json:"channels" yaml:"channels"`
	Receivers    []ReceiverRow    `json:"receivers" yaml:"receivers"`
	LogicalPorts []LogicalPortRow `json:"logicalPorts,omitempty" yaml:"logicalPorts,omitempty"`
	Excluded     []string         `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Unplaced     []string         `json:"unplaced,omitempty" yaml:"unplaced,omitempty"`
	Unmapped     []string         `json:"unmapped,omitempty" yaml:"unmapped,omitempty"`
}

// ReceiverRow describes one receiver and its four ports.
type ReceiverRow struct {
	ID            string            `json:"id" yaml:"id"`
	Name          string            `json:"name" yaml:"name"`
	Address       string            `json:"address" yaml:"address"`
	LogicalPort   int               `json:"logicalPort,omitempty" yaml:"logicalPort,omitempty"`
	ChainPosition int               `json:"chainPosition" yaml:"chainPosition"`
	Ports         []PortRow         `json:"ports" yaml:"ports"`
	Utilization   alloc.Utilization `json:"utilization" yaml:"utilization"`
}

// PortRow describes one physical port.
type PortRow struct {
	Name        string            `json:"name" yaml:"name"`
	SourcePort  int               `json:"sourcePort,omitempty" yaml:"sourcePort,omitempty"`
	Models      []string          `json:"models" yaml:"models"`
	Utilization alloc.Utilization `json:"utilization" yaml:"utilization"`
	Status      alloc.Status      `json:"status" yaml:"status"`
}

// LogicalPortRow describes an occupied logical port and its chain.
type LogicalPortRow struct {
	Number      int                 `json:"number" yaml:"number"`
	Board       int                 `json:"board" yaml:"board"`
	Chain       []string            `json:"chain" yaml:"chain"`
	Shared      []alloc.Utilization `json:"shared" yaml:"shared"`
	Utilization alloc.Utilization   `json:"utilization" yaml:"utilization"`
	Status      alloc.Status        `json:"status" yaml:"status"`
}

// NewReport builds a report. dist is nil for direct controllers.
func NewReport(controller string, res alloc.Result, dist *alloc.Distribution) Report {
	r := Report{
		Controller: controller,
		Strategy:   res.Strategy,
		Pixels:     res.PixelCount(),
		Channels:   res.PixelCount() * alloc.ChannelsPerPixel,
		Receivers:  make([]ReceiverRow, 0, len(res.Receivers)),
		Excluded:   modelNames(res.Excluded),
		Unplaced:   modelNames(res.Unplaced),
	}

	for _, rc := range res.Receivers {
		row := ReceiverRow{
			ID:            rc.ID,
			Name:          rc.Name,
			Address:       rc.Address(),
			LogicalPort:   rc.LogicalPort,
			ChainPosition: rc.ChainPosition,
			Utilization:   rc.Utilization(),
		}
		for _, p := range rc.Ports {
			u := p.Utilization()
			row.Ports = append(row.Ports, PortRow{
				Name:        p.Name,
				SourcePort:  p.SourcePort,
				Models:      modelNames(p.Models),
				Utilization: u,
				Status:      u.Status(),
			})
		}
		r.Receivers = append(r.Receivers, row)
	}

	if dist == nil {
		return r
	}
	r.Rule = dist.Rule.String()
	for _, lp := range dist.LogicalPorts {
		if len(lp.Chain) == 0 {
			continue
		}
		row := LogicalPortRow{
			Number:      lp.Number,
			Board:       lp.Board,
			Utilization: lp.Utilization(),
		}
		row.Status = row.Utilization.Status()
		for _, rc := range lp.Chain {
			row.Chain = append(row.Chain, rc.ID)
		}
		for _, p := range lp.Shared {
			row.Shared = append(row.Shared, p.Utilization())
		}
		r.LogicalPorts = append(r.LogicalPorts, row)
	}
	for _, rc := range dist.Unmapped {
		r.Unmapped = append(r.Unmapped, rc.ID)
	}
	return r
}

func modelNames(models []alloc.Model) []string {
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	return names
}

// Encode writes reports as JSON or YAML.
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "cannot encode as %s", format)
	}
}
