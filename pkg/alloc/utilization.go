package alloc

import "math"

// NearLimitPercent is the lower (exclusive) bound of the near-limit band.
const NearLimitPercent = 80

// Status classifies a utilization.
type Status int

const (
	StatusOK Status = iota
	StatusNearLimit
	StatusOver
)

// String returns "ok", "near-limit" or "over".
func (s Status) String() string {
	switch s {
	case StatusNearLimit:
		return "near-limit"
	case StatusOver:
		return "over"
	default:
		return "ok"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Utilization is a read-only view of how full a port or chain is.
type Utilization struct {
	Used      int  `json:"used" yaml:"used"`
	Capacity  int  `json:"capacity" yaml:"capacity"`
	Percent   int  `json:"percent" yaml:"percent"`
	NearLimit bool `json:"nearLimit" yaml:"nearLimit"`
	Over      bool `json:"over" yaml:"over"`
}

// Measure computes the utilization of used pixels against capacity.
//
// Percent is rounded half away from zero. NearLimit covers ratios in
// (80%, 100%]; Over is anything above capacity. A zero capacity reports 0%
// and is over as soon as one pixel is used.
func Measure(used, capacity int) Utilization {
	u := Utilization{Used: used, Capacity: capacity, Over: used > capacity}
	if capacity <= 0 {
		return u
	}
	u.Percent = int(math.Round(float64(used) / float64(capacity) * 100))
	u.NearLimit = used*100 > NearLimitPercent*capacity && used <= capacity
	return u
}

// Status returns the utilization class.
func (u Utilization) Status() Status {
	switch {
	case u.Over:
		return StatusOver
	case u.NearLimit:
		return StatusNearLimit
	default:
		return StatusOK
	}
}

// Free returns the pixels left before capacity, never negative.
func (u Utilization) Free() int {
	return max(u.Capacity-u.Used, 0)
}
