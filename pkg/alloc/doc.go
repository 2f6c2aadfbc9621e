// Package alloc partitions xLights lighting models into receivers, ports and
// daisy-chains under fixed pixel-controller hardware limits.
//
// # Overview
//
// A pixel controller drives long strings of addressable LEDs. Models (props
// such as arches, matrices or roof lines) are wired to physical ports, each
// limited to [PortCapacity] pixels. Remote receivers carry [PortsPerReceiver]
// ports. Differential controllers have no pixel ports of their own; they feed
// [LogicalPortCount] logical ports spread across [BoardCount] distribution
// boards, and receivers sharing a logical port are daisy-chained on one cable.
//
// The package turns a flat []Model into that hierarchy. It performs no I/O
// and is deterministic: the same input in the same order always yields the
// same assignment.
//
// # Grouping Strategies
//
// [Allocate] supports two strategies:
//
//   - [PortGrouping]: models are grouped by their xLights port. Every four
//     consecutive ports form a window that becomes one receiver, split into
//     one receiver per smart-remote group found in the window.
//   - [SequentialPacking]: models are sorted by start channel and packed
//     greedily into ports, opening a new receiver once all four ports of the
//     current one are exhausted.
//
// Both produce the same [Result] shape so downstream stages do not care which
// one ran.
//
// # Distribution
//
// For differential controllers, [Distribute] maps receivers to logical ports
// using a [LogicalPortRule], groups them into chains and records the wiring
// as [Link] values. All 16 logical ports and all 4 boards always exist.
//
//	seq := alloc.NewSequence("front-yard")
//	res := alloc.Allocate(models, alloc.PortGrouping, seq)
//	dist := alloc.Distribute(res.Receivers, alloc.RulePortRange)
//
// # Utilization
//
// [Measure] computes utilization for a used/capacity pair. Ports, receivers
// and logical ports expose it through their Utilization methods. Overflow is
// never rejected, only flagged.
package alloc
