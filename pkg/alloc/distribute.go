package alloc

import (
	"fmt"
	"strings"

	xerrors "github.com/matzehuels/xwire/pkg/errors"
)

// LogicalPortRule selects how a receiver is mapped to a logical port.
type LogicalPortRule int

const (
	// RulePortRange maps the receiver's xLights port window: ports 1-4 go to
	// logical port 1, ports 5-8 to logical port 2 and so on.
	RulePortRange LogicalPortRule = iota

	// RuleUniverse maps the universe of the receiver's first model modulo 16.
	// Kept for shows laid out one receiver per universe.
	RuleUniverse
)

// Rule names as accepted by ParseRule.
const (
	RuleNamePortRange = "port-range"
	RuleNameUniverse  = "universe"
)

// String returns the rule name.
func (r LogicalPortRule) String() string {
	switch r {
	case RulePortRange:
		return RuleNamePortRange
	case RuleUniverse:
		return RuleNameUniverse
	default:
		return "unknown"
	}
}

// ParseRule parses a rule name. The empty string selects RulePortRange.
func ParseRule(s string) (LogicalPortRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", RuleNamePortRange, "ports":
		return RulePortRange, nil
	case RuleNameUniverse, "universe-modulo":
		return RuleUniverse, nil
	}
	return 0, xerrors.New(xerrors.ErrCodeInvalidRule,
		"invalid logical port rule: %q (must be %s or %s)", s, RuleNamePortRange, RuleNameUniverse)
}

// MarshalText implements encoding.TextMarshaler.
func (r LogicalPortRule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *LogicalPortRule) UnmarshalText(b []byte) error {
	v, err := ParseRule(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// CheckRule rejects rule/strategy pairs that cannot work together: receivers
// from sequential packing carry no port window for RulePortRange to map.
func CheckRule(s Strategy, r LogicalPortRule) error {
	if s == SequentialPacking && r == RulePortRange {
		return xerrors.New(xerrors.ErrCodeInvalidRule,
			"rule %s needs xLights port windows; use %s with strategy %s", RuleNamePortRange, RuleNameUniverse, StrategyNameSequential)
	}
	return nil
}

// LogicalPortFor returns the logical port (1..16) the rule assigns to r, or 0
// when r carries no data for the rule. Port windows beyond the 16th logical
// port also yield their raw number; callers must range-check.
func LogicalPortFor(r *Receiver, rule LogicalPortRule) int {
	switch rule {
	case RuleUniverse:
		first, ok := r.FirstModel()
		if !ok {
			return 0
		}
		return (first.Universe()-1)%LogicalPortCount + 1
	default:
		if r.PortRangeStart < 1 {
			return 0
		}
		return (r.PortRangeStart-1)/PortsPerReceiver + 1
	}
}

// BoardFor returns the distribution board (1..4) owning a logical port.
func BoardFor(logicalPort int) int {
	return (logicalPort + PortsPerBoard - 1) / PortsPerBoard
}

// ConnectorFor returns the connector (1..4) on the board that feeds a
// logical port.
func ConnectorFor(logicalPort int) int {
	return (logicalPort-1)%PortsPerBoard + 1
}

// Board is one physical distribution board.
type Board struct {
	Number       int               `json:"number" yaml:"number"`
	LogicalPorts [PortsPerBoard]int `json:"logicalPorts" yaml:"logicalPorts"`
}

// LogicalPort is one of the controller's 16 differential outputs together
// with the daisy-chain it drives.
type LogicalPort struct {
	Number int         `json:"number" yaml:"number"`
	Board  int         `json:"board" yaml:"board"`
	Chain  []*Receiver `json:"chain" yaml:"chain"`

	// Shared is the budget of each physical slot aggregated over the chain:
	// Shared[k].Used is the sum of port k+1 of every chained receiver.
	Shared [PortsPerReceiver]Port `json:"shared" yaml:"shared"`
}

// Used returns the pixels carried by the whole chain.
func (lp *LogicalPort) Used() int {
	total := 0
	for _, p := range lp.Shared {
		total += p.Used
	}
	return total
}

// Utilization reports the chain's load against the four shared slots.
func (lp *LogicalPort) Utilization() Utilization {
	return Measure(lp.Used(), PortCapacity*PortsPerReceiver)
}

// Head returns the first receiver of the chain, or nil.
func (lp *LogicalPort) Head() *Receiver {
	if len(lp.Chain) == 0 {
		return nil
	}
	return lp.Chain[0]
}

// Link is one cable in a daisy-chain. The head receiver is fed from a board
// connector; every other receiver is fed from the previous receiver.
type Link struct {
	LogicalPort int       `json:"logicalPort" yaml:"logicalPort"`
	Board       int       `json:"board" yaml:"board"`
	Connector   int       `json:"connector,omitempty" yaml:"connector,omitempty"`
	From        *Receiver `json:"-" yaml:"-"`
	To          *Receiver `json:"-" yaml:"-"`
}

// IsHead reports whether the link starts at the board.
func (l Link) IsHead() bool { return l.From == nil }

// String describes the link, e.g. "board 1/2 -> receiver-3".
func (l Link) String() string {
	if l.IsHead() {
		return fmt.Sprintf("board %d/%d -> %s", l.Board, l.Connector, l.To.ID)
	}
	return fmt.Sprintf("%s -> %s", l.From.ID, l.To.ID)
}

// Distribution is the logical-port and board structure of a differential
// controller.
type Distribution struct {
	Rule         LogicalPortRule               `json:"rule" yaml:"rule"`
	Boards       [BoardCount]Board             `json:"boards" yaml:"boards"`
	LogicalPorts [LogicalPortCount]LogicalPort `json:"logicalPorts" yaml:"logicalPorts"`
	Links        []Link                        `json:"-" yaml:"-"`

	// Unmapped holds receivers the rule could not place on ports 1..16.
	Unmapped []*Receiver `json:"unmapped,omitempty" yaml:"unmapped,omitempty"`
}

// Port returns logical port n (1-based).
func (d *Distribution) Port(n int) *LogicalPort {
	if n < 1 || n > LogicalPortCount {
		return nil
	}
	return &d.LogicalPorts[n-1]
}

// Board returns board n (1-based).
func (d *Distribution) Board(n int) *Board {
	if n < 1 || n > BoardCount {
		return nil
	}
	return &d.Boards[n-1]
}

// newDistribution creates all boards and logical ports up front.
func newDistribution(rule LogicalPortRule) *Distribution {
	d := &Distribution{Rule: rule}
	for b := range d.Boards {
		d.Boards[b].Number = b + 1
		for k := range d.Boards[b].LogicalPorts {
			d.Boards[b].LogicalPorts[k] = b*PortsPerBoard + k + 1
		}
	}
	for i := range d.LogicalPorts {
		lp := &d.LogicalPorts[i]
		lp.Number = i + 1
		lp.Board = BoardFor(lp.Number)
		lp.Chain = []*Receiver{}
		for k := range lp.Shared {
			lp.Shared[k] = Port{
				ID:       fmt.Sprintf("shared-p%d-%d", k+1, lp.Number),
				Name:     fmt.Sprintf("Port %d", k+1),
				Capacity: PortCapacity,
				Models:   []Model{},
			}
		}
	}
	return d
}

// Distribute maps receivers to logical ports and chains them.
//
// Receivers keep their relative order inside a chain, so the chain order is
// the creation order. Distribute sets LogicalPort and ChainPosition on every
// mapped receiver; unmapped receivers get LogicalPort 0.
func Distribute(receivers []*Receiver, rule LogicalPortRule) *Distribution {
	d := newDistribution(rule)
	for _, r := range receivers {
		n := LogicalPortFor(r, rule)
		lp := d.Port(n)
		if lp == nil {
			r.LogicalPort, r.ChainPosition = 0, 0
			d.Unmapped = append(d.Unmapped, r)
			continue
		}

		r.LogicalPort = n
		r.ChainPosition = len(lp.Chain)
		link := Link{LogicalPort: n, Board: lp.Board, To: r}
		if prev := len(lp.Chain) - 1; prev >= 0 {
			link.From = lp.Chain[prev]
		} else {
			link.Connector = ConnectorFor(n)
		}
		lp.Chain = append(lp.Chain, r)
		d.Links = append(d.Links, link)

		for k := range lp.Shared {
			for _, m := range r.Ports[k].Models {
				lp.Shared[k].add(m)
			}
		}
	}
	return d
}
