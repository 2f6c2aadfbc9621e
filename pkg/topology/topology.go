// Package topology turns an allocation into diagram entities: the controller
// node, differential boards and ports, receivers and the wires between them,
// laid out on the editor canvas.
package topology

import (
	"fmt"

	"github.com/matzehuels/xwire/pkg/alloc"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// Canvas layout, in canvas pixels.
const (
	centerX = 1500
	centerY = 1000

	boardSpacing = 1200
	boardStartX  = centerX - (alloc.BoardCount-1)*boardSpacing/2
	boardY       = centerY + 300

	columnSpacing  = 450
	columnsStartX  = centerX - (alloc.LogicalPortCount-1)*columnSpacing/2
	columnsStartY  = boardY + 400
	receiverHeight = 120
	modelOffset    = 200
	modelSpacing   = 90
	receiverGap    = 50

	directRowY = centerY + 400
)

// Wire handles on the editor's node components.
const (
	handleReceiverIn  = "receiver-input"
	handleReceiverOut = "receiver-output-1"
)

// Options configures Materialize.
type Options struct {
	// Sequence issues entity IDs. Pass the sequence used for allocation so
	// receiver and wire IDs come from one counter. Nil uses a fresh one.
	Sequence *alloc.Sequence

	// DifferentialTypes overrides xlights.DefaultDifferentialTypes.
	DifferentialTypes []string
}

// Summary counts what an import produced.
type Summary struct {
	Receivers int `json:"receiverCount" yaml:"receivers"`
	Pixels    int `json:"pixelCount" yaml:"pixels"`
	Channels  int `json:"channelCount" yaml:"channels"`
}

// Summarize counts the receivers and placed pixels of an allocation.
func Summarize(res alloc.Result) Summary {
	px := res.PixelCount()
	return Summary{
		Receivers: len(res.Receivers),
		Pixels:    px,
		Channels:  px * alloc.ChannelsPerPixel,
	}
}

// Add returns the sum of two summaries.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		Receivers: s.Receivers + o.Receivers,
		Pixels:    s.Pixels + o.Pixels,
		Channels:  s.Channels + o.Channels,
	}
}

// Materialize builds the diagram entities for one controller.
//
// Differential controllers get all 16 differential ports and 4 boards, with
// receivers stacked in one column per logical port and chained in creation
// order. If dist is nil it is computed with the strategy's default rule.
// Direct controllers get one port per output and their receivers in a row
// below the controller.
func Materialize(ctl xlights.Controller, res alloc.Result, dist *alloc.Distribution, opts Options) diagram.Diagram {
	seq := opts.Sequence
	if seq == nil {
		seq = alloc.NewSequence("")
	}
	b := &builder{d: diagram.Empty(), seq: seq}

	if ctl.IsDifferential(opts.DifferentialTypes) {
		if dist == nil {
			dist = alloc.Distribute(res.Receivers, res.Strategy.DefaultRule())
		}
		ctrlID := b.controller(ctl, nil)
		b.differential(ctrlID, dist)
		return b.d
	}

	ports := make([]diagram.Port, 0, len(ctl.Outputs))
	for _, o := range ctl.Outputs {
		ports = append(ports, diagram.Port{
			ID:        fmt.Sprintf("u%d", o.Number),
			Name:      fmt.Sprintf("Universe %d", o.Number),
			MaxPixels: o.MaxPixels(),
			Universe:  o.Number,
		})
	}
	ctrlID := b.controller(ctl, ports)
	b.direct(ctrlID, ports, res.Receivers)
	return b.d
}

type builder struct {
	d   diagram.Diagram
	seq *alloc.Sequence
}

func (b *builder) controller(ctl xlights.Controller, ports []diagram.Port) string {
	if ports == nil {
		ports = []diagram.Port{}
	}
	typ := ctl.Type
	if typ == "" {
		typ = "Unknown"
	}
	c := diagram.Controller{
		ID:       b.seq.ID("controller"),
		Name:     ctl.Name,
		Type:     typ,
		Ports:    ports,
		Position: diagram.Position{X: centerX, Y: centerY},
	}
	b.d.Controllers = append(b.d.Controllers, c)
	return c.ID
}

func (b *builder) wire(from, fromPort, to, toPort string) {
	b.d.Wires = append(b.d.Wires, diagram.Wire{
		ID:    b.seq.ID("wire"),
		Color: diagram.WireNetwork,
		From:  diagram.Endpoint{NodeID: from, PortID: fromPort},
		To:    diagram.Endpoint{NodeID: to, PortID: toPort},
	})
}

func (b *builder) differential(ctrlID string, dist *alloc.Distribution) {
	portIDs := make([]string, alloc.LogicalPortCount)
	for i := range dist.LogicalPorts {
		lp := &dist.LogicalPorts[i]
		dp := diagram.DifferentialPort{
			ID:                   b.seq.ID("diff-port"),
			Name:                 fmt.Sprintf("Diff Port %d", lp.Number),
			PortNumber:           lp.Number,
			ControllerConnection: ctrlID,
			SharedPorts:          make([]diagram.Port, 0, alloc.PortsPerReceiver),
			ConnectedReceivers:   make([]string, 0, len(lp.Chain)),
		}
		for _, p := range lp.Shared {
			dp.SharedPorts = append(dp.SharedPorts, diagram.PortFromAlloc(p))
		}
		for _, r := range lp.Chain {
			dp.ConnectedReceivers = append(dp.ConnectedReceivers, r.ID)
		}
		portIDs[i] = dp.ID
		b.d.DifferentialPorts = append(b.d.DifferentialPorts, dp)
	}

	boardIDs := make([]string, alloc.BoardCount)
	for i, board := range dist.Boards {
		ids := make([]string, 0, alloc.PortsPerBoard)
		for _, n := range board.LogicalPorts {
			ids = append(ids, portIDs[n-1])
		}
		d := diagram.Differential{
			ID:                   b.seq.ID("board"),
			Name:                 fmt.Sprintf("Differential %d", board.Number),
			ControllerConnection: ctrlID,
			BoardNumber:          board.Number,
			DifferentialPorts:    ids,
			Position:             diagram.Position{X: float64(boardStartX + i*boardSpacing), Y: boardY},
		}
		boardIDs[i] = d.ID
		b.d.Differentials = append(b.d.Differentials, d)
		b.wire(ctrlID, "", d.ID, "")
	}

	for i := range dist.LogicalPorts {
		lp := &dist.LogicalPorts[i]
		x := float64(columnsStartX + i*columnSpacing)
		y := columnsStartY
		boardID := boardIDs[lp.Board-1]
		for pos, r := range lp.Chain {
			rec := receiverNode(r, fmt.Sprintf("%04d", pos), x, float64(y))
			rec.ControllerConnection = ctrlID
			rec.DifferentialConnection = boardID
			rec.DifferentialPortNumber = lp.Number
			b.d.Receivers = append(b.d.Receivers, rec)
			y += columnHeight(r)
		}
	}

	for _, l := range dist.Links {
		if l.IsHead() {
			b.wire(boardIDs[l.Board-1], fmt.Sprintf("port-%d", l.Connector), l.To.ID, handleReceiverIn)
			continue
		}
		b.wire(l.From.ID, handleReceiverOut, l.To.ID, handleReceiverIn)
	}

	// Receivers outside the 16 logical ports get their own unwired column.
	x := float64(columnsStartX + alloc.LogicalPortCount*columnSpacing)
	y := columnsStartY
	for _, r := range dist.Unmapped {
		rec := receiverNode(r, r.Address(), x, float64(y))
		rec.ControllerConnection = ctrlID
		b.d.Receivers = append(b.d.Receivers, rec)
		y += columnHeight(r)
	}
}

func (b *builder) direct(ctrlID string, ports []diagram.Port, receivers []*alloc.Receiver) {
	n := len(receivers)
	startX := centerX - (n-1)*columnSpacing/2
	for k, r := range receivers {
		rec := receiverNode(r, r.Address(), float64(startX+k*columnSpacing), directRowY)
		rec.ControllerConnection = ctrlID
		b.d.Receivers = append(b.d.Receivers, rec)

		from := ""
		if k < len(ports) {
			from = ports[k].ID
		}
		b.wire(ctrlID, from, r.ID, handleReceiverIn)
	}
}

func receiverNode(r *alloc.Receiver, dip string, x, y float64) diagram.Receiver {
	ports := make([]diagram.Port, 0, alloc.PortsPerReceiver)
	for _, p := range r.Ports {
		ports = append(ports, diagram.PortFromAlloc(p))
	}
	return diagram.Receiver{
		ID:        r.ID,
		Name:      r.Name,
		DipSwitch: dip,
		Ports:     ports,
		Position:  diagram.Position{X: x, Y: y},
	}
}

// columnHeight is the vertical space a receiver and its model stack take.
func columnHeight(r *alloc.Receiver) int {
	return receiverHeight + modelOffset + r.MaxModelsPerPort()*modelSpacing + receiverGap
}
