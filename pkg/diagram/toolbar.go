package diagram

import (
	"fmt"

	"github.com/matzehuels/xwire/pkg/alloc"
	xerrors "github.com/matzehuels/xwire/pkg/errors"
)

// Components placed from the editor toolbar. IDs are left empty so the
// store assigns them.

func blankPorts() []Port {
	ports := make([]Port, alloc.PortsPerReceiver)
	for i := range ports {
		ports[i] = Port{
			ID:        fmt.Sprintf("p%d", i+1),
			Name:      fmt.Sprintf("Port %d", i+1),
			MaxPixels: alloc.PortCapacity,
		}
	}
	return ports
}

func NewController() Controller {
	return Controller{
		Name:     "New Controller",
		Type:     "F16V4",
		Ports:    blankPorts(),
		Position: Position{X: 100, Y: 100},
	}
}

func NewReceiver() Receiver {
	return Receiver{
		Name:      "New Receiver",
		DipSwitch: "0000",
		Ports:     blankPorts(),
		Position:  Position{X: 100, Y: 300},
	}
}

func NewDifferential() Differential {
	return Differential{
		Name:              "Differential",
		BoardNumber:       1,
		DifferentialPorts: []string{},
		Position:          Position{X: 400, Y: 100},
	}
}

func NewEthernetSwitch() EthernetSwitch {
	return EthernetSwitch{
		Name:      "Ethernet Switch",
		PortCount: 8,
		Position:  Position{X: 100, Y: 500},
	}
}

func NewPowerSupply() PowerSupply {
	return PowerSupply{
		Name:     "Power Supply",
		Voltage:  5,
		Amperage: 30,
		Position: Position{X: 100, Y: 50},
	}
}

func NewLabel() Label {
	return Label{
		Text:     "New Label",
		Style:    LabelDefault,
		Position: Position{X: 100, Y: 500},
	}
}

// NewDivider returns a wide section heading.
func NewDivider() Label {
	return Label{
		Text:     "Section",
		Style:    LabelDivider,
		Width:    600,
		Position: Position{X: 100, Y: 500},
	}
}

// AddComponent adds the toolbar default for kind and returns it.
// Known kinds: controller, receiver, differential, switch, power-supply,
// label, divider.
func (s *Store) AddComponent(kind string) (any, error) {
	switch kind {
	case "controller":
		return s.AddController(NewController()), nil
	case "receiver":
		return s.AddReceiver(NewReceiver()), nil
	case "differential":
		return s.AddDifferential(NewDifferential()), nil
	case "switch", "ethernet-switch":
		return s.AddEthernetSwitch(NewEthernetSwitch()), nil
	case "power-supply", "psu":
		return s.AddPowerSupply(NewPowerSupply()), nil
	case "label":
		return s.AddLabel(NewLabel()), nil
	case "divider":
		return s.AddLabel(NewDivider()), nil
	}
	return nil, xerrors.New(xerrors.ErrCodeInvalidInput, "unknown component: %q", kind)
}
