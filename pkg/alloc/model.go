package alloc

import (
	"fmt"
	"sort"
)

// Hardware limits.
const (
	PortCapacity        = 1024 // pixels per physical port
	PortsPerReceiver    = 4
	LogicalPortCount    = 16 // logical ports per differential controller
	BoardCount          = 4
	PortsPerBoard       = LogicalPortCount / BoardCount
	ChannelsPerUniverse = 510
	ChannelsPerPixel    = 3
)

// Model is a single lighting prop as exported by xLights.
// A model without a positive StartChannel is invalid and never allocated.
type Model struct {
	Name         string `json:"name" yaml:"name" bson:"name"`
	Controller   string `json:"controller,omitempty" yaml:"controller,omitempty" bson:"controller,omitempty"`
	StartChannel *int   `json:"startChannel" yaml:"startChannel" bson:"start_channel"`
	PixelCount   int    `json:"pixelCount" yaml:"pixelCount" bson:"pixel_count"`
	SourcePort   *int   `json:"port" yaml:"port" bson:"port"`
	SmartRemote  *int   `json:"smartRemote" yaml:"smartRemote" bson:"smart_remote"`
}

// Valid reports whether the model has a usable start channel.
func (m Model) Valid() bool {
	return m.StartChannel != nil && *m.StartChannel > 0
}

// Start returns the start channel, or 0 for invalid models.
func (m Model) Start() int {
	if !m.Valid() {
		return 0
	}
	return *m.StartChannel
}

// Universe returns the 1-based 510-channel universe the model starts in.
func (m Model) Universe() int {
	if !m.Valid() {
		return 0
	}
	return (*m.StartChannel-1)/ChannelsPerUniverse + 1
}

// Ptr returns a pointer to v. It keeps model literals short.
func Ptr(v int) *int { return &v }

// sortByStart orders models by ascending start channel, keeping input order
// for equal channels.
func sortByStart(models []Model) {
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Start() < models[j].Start()
	})
}

// Port is one physical pixel output of a receiver.
type Port struct {
	ID         string  `json:"id" yaml:"id" bson:"id"`
	Name       string  `json:"name" yaml:"name" bson:"name"`
	Capacity   int     `json:"capacity" yaml:"capacity" bson:"capacity"`
	Used       int     `json:"used" yaml:"used" bson:"used"`
	SourcePort int     `json:"sourcePort,omitempty" yaml:"sourcePort,omitempty" bson:"source_port,omitempty"`
	Models     []Model `json:"models" yaml:"models" bson:"models"`
}

func newPort(id string, slot int) Port {
	return Port{
		ID:       fmt.Sprintf("%s-p%d", id, slot+1),
		Name:     fmt.Sprintf("Port %d", slot+1),
		Capacity: PortCapacity,
		Models:   []Model{},
	}
}

func (p *Port) add(m Model) {
	p.Models = append(p.Models, m)
	p.Used += m.PixelCount
}

// fits reports whether pixels more pixels stay within capacity.
func (p *Port) fits(pixels int) bool {
	return p.Used+pixels <= p.Capacity
}

// Empty reports whether no model is assigned to the port.
func (p Port) Empty() bool { return len(p.Models) == 0 }

// Utilization reports how full the port is.
func (p Port) Utilization() Utilization { return Measure(p.Used, p.Capacity) }

// Receiver is a remote with four pixel ports.
//
// AddressIndex is the creation order within one allocation. LogicalPort and
// ChainPosition are only set by [Distribute].
type Receiver struct {
	ID             string                 `json:"id" yaml:"id" bson:"id"`
	Name           string                 `json:"name" yaml:"name" bson:"name"`
	AddressIndex   int                    `json:"addressIndex" yaml:"addressIndex" bson:"address_index"`
	Ports          [PortsPerReceiver]Port `json:"ports" yaml:"ports" bson:"ports"`
	PortRangeStart int                    `json:"portRangeStart,omitempty" yaml:"portRangeStart,omitempty" bson:"port_range_start,omitempty"`
	PortRangeEnd   int                    `json:"portRangeEnd,omitempty" yaml:"portRangeEnd,omitempty" bson:"port_range_end,omitempty"`
	SmartRemote    *int                   `json:"smartRemote,omitempty" yaml:"smartRemote,omitempty" bson:"smart_remote,omitempty"`
	LogicalPort    int                    `json:"logicalPort,omitempty" yaml:"logicalPort,omitempty" bson:"logical_port,omitempty"`
	ChainPosition  int                    `json:"chainPosition" yaml:"chainPosition" bson:"chain_position"`
}

func newReceiver(seq *Sequence, index int) *Receiver {
	r := &Receiver{
		ID:           seq.ID("receiver"),
		Name:         fmt.Sprintf("Receiver %d", index+1),
		AddressIndex: index,
	}
	for i := range r.Ports {
		r.Ports[i] = newPort(r.ID, i)
	}
	return r
}

// Address renders the address index as the 4-digit DIP switch code.
func (r *Receiver) Address() string {
	return fmt.Sprintf("%04d", r.AddressIndex)
}

// Used returns the pixels assigned across all four ports.
func (r *Receiver) Used() int {
	total := 0
	for _, p := range r.Ports {
		total += p.Used
	}
	return total
}

// Models returns all assigned models, port by port.
func (r *Receiver) Models() []Model {
	var out []Model
	for _, p := range r.Ports {
		out = append(out, p.Models...)
	}
	return out
}

// ModelCount returns the number of assigned models.
func (r *Receiver) ModelCount() int {
	n := 0
	for _, p := range r.Ports {
		n += len(p.Models)
	}
	return n
}

// MaxModelsPerPort returns the model count of the busiest port.
func (r *Receiver) MaxModelsPerPort() int {
	busiest := 0
	for _, p := range r.Ports {
		busiest = max(busiest, len(p.Models))
	}
	return busiest
}

// FirstModel returns the assigned model with the lowest start channel.
// Ties go to the lower port slot.
func (r *Receiver) FirstModel() (Model, bool) {
	var first Model
	found := false
	for _, p := range r.Ports {
		for _, m := range p.Models {
			if !found || m.Start() < first.Start() {
				first, found = m, true
			}
		}
	}
	return first, found
}

// Utilization reports how full the receiver is across all ports.
func (r *Receiver) Utilization() Utilization {
	return Measure(r.Used(), PortCapacity*PortsPerReceiver)
}
