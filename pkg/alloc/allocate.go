package alloc

import (
	"strings"

	xerrors "github.com/matzehuels/xwire/pkg/errors"
)

// Strategy selects how models are grouped into receivers.
type Strategy int

const (
	// PortGrouping groups models by xLights port, four ports per receiver,
	// with one receiver per smart-remote group. This is the default.
	PortGrouping Strategy = iota

	// SequentialPacking packs models greedily in start-channel order.
	SequentialPacking
)

// Strategy names as accepted by ParseStrategy.
const (
	StrategyNamePortGrouping = "port-grouping"
	StrategyNameSequential   = "sequential"
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case PortGrouping:
		return StrategyNamePortGrouping
	case SequentialPacking:
		return StrategyNameSequential
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name. The empty string selects the default.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", StrategyNamePortGrouping, "ports":
		return PortGrouping, nil
	case StrategyNameSequential, "sequential-packing", "packing":
		return SequentialPacking, nil
	}
	return 0, xerrors.New(xerrors.ErrCodeInvalidStrategy,
		"invalid strategy: %q (must be %s or %s)", s, StrategyNamePortGrouping, StrategyNameSequential)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	v, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DefaultRule returns the logical port rule that matches the strategy.
// Port grouping keeps the xLights port window, sequential packing has none and
// falls back to the universe of the first model.
func (s Strategy) DefaultRule() LogicalPortRule {
	if s == SequentialPacking {
		return RuleUniverse
	}
	return RulePortRange
}

// Result is the output of one allocation pass.
type Result struct {
	Strategy  Strategy    `json:"strategy" yaml:"strategy"`
	Receivers []*Receiver `json:"receivers" yaml:"receivers"`

	// Excluded holds models without a usable start channel.
	Excluded []Model `json:"excluded,omitempty" yaml:"excluded,omitempty"`

	// Unplaced holds valid models that port grouping could not place because
	// they carry no xLights port.
	Unplaced []Model `json:"unplaced,omitempty" yaml:"unplaced,omitempty"`
}

// PixelCount returns the pixels placed across all receivers.
func (r Result) PixelCount() int {
	total := 0
	for _, rc := range r.Receivers {
		total += rc.Used()
	}
	return total
}

// ModelCount returns the number of placed models.
func (r Result) ModelCount() int {
	n := 0
	for _, rc := range r.Receivers {
		n += rc.ModelCount()
	}
	return n
}

// Allocate groups models into receivers using the given strategy.
//
// Invalid models are skipped and reported in Result.Excluded. An input with no
// valid models yields an empty receiver list. IDs are drawn from seq; a nil
// seq uses a fresh unprefixed sequence.
func Allocate(models []Model, strategy Strategy, seq *Sequence) Result {
	if seq == nil {
		seq = NewSequence("")
	}

	res := Result{Strategy: strategy, Receivers: []*Receiver{}}
	valid := make([]Model, 0, len(models))
	for _, m := range models {
		if m.Valid() {
			valid = append(valid, m)
		} else {
			res.Excluded = append(res.Excluded, m)
		}
	}

	switch strategy {
	case SequentialPacking:
		res.Receivers = packSequential(valid, seq)
	default:
		res.Receivers, res.Unplaced = groupByPort(valid, seq)
	}
	return res
}
