package diagram

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/xwire/pkg/alloc"
)

// ===== Geometry =====

// Position is a canvas coordinate in pixels.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// ===== Wires =====

// WireColor is the semantic color of a wire.
type WireColor string

const (
	WirePower   WireColor = "red"
	WireData    WireColor = "black"
	WireNetwork WireColor = "blue"
)

var wireHex = map[WireColor]string{
	WirePower:   "#dc2626",
	WireData:    "#1f2937",
	WireNetwork: "#2563eb",
}

// Valid reports whether c is one of the known wire colors.
func (c WireColor) Valid() bool {
	_, ok := wireHex[c]
	return ok
}

// Color returns the display color. Unknown colors render as data wires.
func (c WireColor) Color() colorful.Color {
	hex, ok := wireHex[c]
	if !ok {
		hex = wireHex[WireData]
	}
	col, _ := colorful.Hex(hex)
	return col
}

// Hex returns the display color as #rrggbb.
func (c WireColor) Hex() string { return c.Color().Hex() }

// Endpoint is one end of a wire. PortID is empty when the wire attaches to
// the node itself.
type Endpoint struct {
	NodeID string `json:"nodeId" bson:"node_id"`
	PortID string `json:"portId,omitempty" bson:"port_id,omitempty"`
}

// Wire connects two nodes.
type Wire struct {
	ID    string    `json:"id" bson:"id"`
	Color WireColor `json:"color" bson:"color"`
	From  Endpoint  `json:"from" bson:"from"`
	To    Endpoint  `json:"to" bson:"to"`
	Label string    `json:"label" bson:"label"`
}

// Touches reports whether either end of the wire is on node id.
func (w Wire) Touches(id string) bool {
	return w.From.NodeID == id || w.To.NodeID == id
}

// ===== Ports =====

// PortModel is a model listed on a port.
type PortModel struct {
	Name   string `json:"name" bson:"name"`
	Pixels int    `json:"pixels" bson:"pixels"`
}

// Port is a pixel output shown on a node.
type Port struct {
	ID            string      `json:"id" bson:"id"`
	Name          string      `json:"name" bson:"name"`
	MaxPixels     int         `json:"maxPixels" bson:"max_pixels"`
	CurrentPixels int         `json:"currentPixels" bson:"current_pixels"`
	Universe      int         `json:"universe,omitempty" bson:"universe,omitempty"`
	SourcePort    int         `json:"xlPort,omitempty" bson:"xl_port,omitempty"`
	Models        []PortModel `json:"models,omitempty" bson:"models,omitempty"`
}

// Utilization reports how full the port is.
func (p Port) Utilization() alloc.Utilization {
	return alloc.Measure(p.CurrentPixels, p.MaxPixels)
}

// PortFromAlloc converts an allocated port for display.
func PortFromAlloc(p alloc.Port) Port {
	out := Port{
		ID:            p.ID,
		Name:          p.Name,
		MaxPixels:     p.Capacity,
		CurrentPixels: p.Used,
		SourcePort:    p.SourcePort,
	}
	if len(p.Models) > 0 {
		out.Models = make([]PortModel, len(p.Models))
		for i, m := range p.Models {
			out.Models[i] = PortModel{Name: m.Name, Pixels: m.PixelCount}
		}
	}
	return out
}

// ===== Nodes =====

// Controller is a pixel controller.
type Controller struct {
	ID          string   `json:"id" bson:"id"`
	Name        string   `json:"name" bson:"name"`
	Type        string   `json:"type" bson:"type"`
	Ports       []Port   `json:"ports" bson:"ports"`
	Position    Position `json:"position" bson:"position"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
}

// Receiver is a remote pixel receiver.
type Receiver struct {
	ID                     string   `json:"id" bson:"id"`
	Name                   string   `json:"name" bson:"name"`
	CustomName             string   `json:"customName,omitempty" bson:"custom_name,omitempty"`
	DipSwitch              string   `json:"dipSwitch" bson:"dip_switch"`
	DifferentialPortNumber int      `json:"differentialPortNumber,omitempty" bson:"differential_port_number,omitempty"`
	Ports                  []Port   `json:"ports" bson:"ports"`
	Position               Position `json:"position" bson:"position"`
	ControllerConnection   string   `json:"controllerConnection,omitempty" bson:"controller_connection,omitempty"`
	DifferentialConnection string   `json:"differentialConnection,omitempty" bson:"differential_connection,omitempty"`
}

// DisplayName returns the custom name if set.
func (r Receiver) DisplayName() string {
	if r.CustomName != "" {
		return r.CustomName
	}
	return r.Name
}

// DifferentialPort is one of the sixteen logical ports of a differential
// controller. Its shared ports carry the budget of every receiver chained
// behind it.
type DifferentialPort struct {
	ID                   string   `json:"id" bson:"id"`
	Name                 string   `json:"name" bson:"name"`
	PortNumber           int      `json:"portNumber" bson:"port_number"`
	ControllerConnection string   `json:"controllerConnection,omitempty" bson:"controller_connection,omitempty"`
	SharedPorts          []Port   `json:"sharedPorts" bson:"shared_ports"`
	ConnectedReceivers   []string `json:"connectedReceivers" bson:"connected_receivers"`
	Position             Position `json:"position" bson:"position"`
}

// Differential is an expansion board carrying four differential ports.
type Differential struct {
	ID                   string   `json:"id" bson:"id"`
	Name                 string   `json:"name" bson:"name"`
	ControllerConnection string   `json:"controllerConnection,omitempty" bson:"controller_connection,omitempty"`
	BoardNumber          int      `json:"boardNumber" bson:"board_number"`
	DifferentialPorts    []string `json:"differentialPorts" bson:"differential_ports"`
	Position             Position `json:"position" bson:"position"`
}

// EthernetSwitch is a network switch.
type EthernetSwitch struct {
	ID        string   `json:"id" bson:"id"`
	Name      string   `json:"name" bson:"name"`
	PortCount int      `json:"portCount" bson:"port_count"`
	Position  Position `json:"position" bson:"position"`
}

// PowerSupply is a DC power supply.
type PowerSupply struct {
	ID       string   `json:"id" bson:"id"`
	Name     string   `json:"name" bson:"name"`
	Voltage  float64  `json:"voltage" bson:"voltage"`
	Amperage float64  `json:"amperage" bson:"amperage"`
	Position Position `json:"position" bson:"position"`
}

// Watts returns the supply's rated power.
func (p PowerSupply) Watts() float64 { return p.Voltage * p.Amperage }

// LabelStyle selects how a label is drawn.
type LabelStyle string

const (
	LabelDefault LabelStyle = "default"
	LabelDivider LabelStyle = "divider"
)

// Label is free text on the canvas.
type Label struct {
	ID       string     `json:"id" bson:"id"`
	Text     string     `json:"text" bson:"text"`
	Position Position   `json:"position" bson:"position"`
	Width    float64    `json:"width,omitempty" bson:"width,omitempty"`
	Height   float64    `json:"height,omitempty" bson:"height,omitempty"`
	Style    LabelStyle `json:"style,omitempty" bson:"style,omitempty"`
}

// ===== Diagram =====

// Diagram is the complete canvas state.
type Diagram struct {
	Controllers       []Controller       `json:"controllers" bson:"controllers"`
	Receivers         []Receiver         `json:"receivers" bson:"receivers"`
	Differentials     []Differential     `json:"differentials" bson:"differentials"`
	DifferentialPorts []DifferentialPort `json:"differentialPorts" bson:"differential_ports"`
	EthernetSwitches  []EthernetSwitch   `json:"ethernetSwitches" bson:"ethernet_switches"`
	PowerSupplies     []PowerSupply      `json:"powerSupplies" bson:"power_supplies"`
	Wires             []Wire             `json:"wires" bson:"wires"`
	Labels            []Label            `json:"labels" bson:"labels"`
}

// Empty returns a diagram with every collection non-nil, so it encodes as
// empty JSON arrays.
func Empty() Diagram {
	var d Diagram
	d.normalize()
	return d
}

// NodeCount returns the number of non-wire entities.
func (d Diagram) NodeCount() int {
	return len(d.Controllers) + len(d.Receivers) + len(d.Differentials) +
		len(d.DifferentialPorts) + len(d.EthernetSwitches) + len(d.PowerSupplies) + len(d.Labels)
}

// HasNode reports whether any node has the given ID.
func (d Diagram) HasNode(id string) bool {
	for _, c := range d.Controllers {
		if c.ID == id {
			return true
		}
	}
	for _, r := range d.Receivers {
		if r.ID == id {
			return true
		}
	}
	for _, b := range d.Differentials {
		if b.ID == id {
			return true
		}
	}
	for _, p := range d.DifferentialPorts {
		if p.ID == id {
			return true
		}
	}
	for _, s := range d.EthernetSwitches {
		if s.ID == id {
			return true
		}
	}
	for _, p := range d.PowerSupplies {
		if p.ID == id {
			return true
		}
	}
	for _, l := range d.Labels {
		if l.ID == id {
			return true
		}
	}
	return false
}

// Append adds every entity of o to d. IDs are not checked for collisions.
func (d *Diagram) Append(o Diagram) {
	d.Controllers = append(d.Controllers, o.Controllers...)
	d.Receivers = append(d.Receivers, o.Receivers...)
	d.Differentials = append(d.Differentials, o.Differentials...)
	d.DifferentialPorts = append(d.DifferentialPorts, o.DifferentialPorts...)
	d.EthernetSwitches = append(d.EthernetSwitches, o.EthernetSwitches...)
	d.PowerSupplies = append(d.PowerSupplies, o.PowerSupplies...)
	d.Wires = append(d.Wires, o.Wires...)
	d.Labels = append(d.Labels, o.Labels...)
}

// Shift moves every node by (dx, dy).
func (d *Diagram) Shift(dx, dy float64) {
	move := func(p *Position) {
		p.X += dx
		p.Y += dy
	}
	for i := range d.Controllers {
		move(&d.Controllers[i].Position)
	}
	for i := range d.Receivers {
		move(&d.Receivers[i].Position)
	}
	for i := range d.Differentials {
		move(&d.Differentials[i].Position)
	}
	for i := range d.DifferentialPorts {
		move(&d.DifferentialPorts[i].Position)
	}
	for i := range d.EthernetSwitches {
		move(&d.EthernetSwitches[i].Position)
	}
	for i := range d.PowerSupplies {
		move(&d.PowerSupplies[i].Position)
	}
	for i := range d.Labels {
		move(&d.Labels[i].Position)
	}
}

func (d *Diagram) normalize() {
	if d.Controllers == nil {
		d.Controllers = []Controller{}
	}
	if d.Receivers == nil {
		d.Receivers = []Receiver{}
	}
	if d.Differentials == nil {
		d.Differentials = []Differential{}
	}
	if d.DifferentialPorts == nil {
		d.DifferentialPorts = []DifferentialPort{}
	}
	if d.EthernetSwitches == nil {
		d.EthernetSwitches = []EthernetSwitch{}
	}
	if d.PowerSupplies == nil {
		d.PowerSupplies = []PowerSupply{}
	}
	if d.Wires == nil {
		d.Wires = []Wire{}
	}
	if d.Labels == nil {
		d.Labels = []Label{}
	}
}

// clone deep-copies d so the result shares no backing arrays with it.
func (d Diagram) clone() Diagram {
	out := Diagram{
		Controllers:       append([]Controller{}, d.Controllers...),
		Receivers:         append([]Receiver{}, d.Receivers...),
		Differentials:     append([]Differential{}, d.Differentials...),
		DifferentialPorts: append([]DifferentialPort{}, d.DifferentialPorts...),
		EthernetSwitches:  append([]EthernetSwitch{}, d.EthernetSwitches...),
		PowerSupplies:     append([]PowerSupply{}, d.PowerSupplies...),
		Wires:             append([]Wire{}, d.Wires...),
		Labels:            append([]Label{}, d.Labels...),
	}
	for i := range out.Controllers {
		out.Controllers[i].Ports = clonePorts(out.Controllers[i].Ports)
	}
	for i := range out.Receivers {
		out.Receivers[i].Ports = clonePorts(out.Receivers[i].Ports)
	}
	for i := range out.Differentials {
		out.Differentials[i].DifferentialPorts = append([]string(nil), out.Differentials[i].DifferentialPorts...)
	}
	for i := range out.DifferentialPorts {
		dp := &out.DifferentialPorts[i]
		dp.SharedPorts = clonePorts(dp.SharedPorts)
		dp.ConnectedReceivers = append([]string(nil), dp.ConnectedReceivers...)
	}
	return out
}

func clonePorts(ports []Port) []Port {
	if ports == nil {
		return nil
	}
	out := make([]Port, len(ports))
	for i, p := range ports {
		p.Models = append([]PortModel(nil), p.Models...)
		out[i] = p
	}
	return out
}
