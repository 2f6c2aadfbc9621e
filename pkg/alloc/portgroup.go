package alloc

import (
	"slices"
	"sort"
)

// remoteKey identifies a smart-remote group. Models without a smart remote
// form their own group that sorts before every numbered one.
type remoteKey struct {
	set bool
	id  int
}

func keyOf(m Model) remoteKey {
	if m.SmartRemote == nil {
		return remoteKey{}
	}
	return remoteKey{set: true, id: *m.SmartRemote}
}

func (k remoteKey) less(o remoteKey) bool {
	if k.set != o.set {
		return !k.set
	}
	return k.id < o.id
}

func (k remoteKey) ptr() *int {
	if !k.set {
		return nil
	}
	return Ptr(k.id)
}

// windowStart returns the first port of the 4-port window containing port.
func windowStart(port int) int {
	return (port-1)/PortsPerReceiver*PortsPerReceiver + 1
}

// groupByPort implements PortGrouping. Models without a port (or with a port
// below 1) cannot be placed and are returned separately.
func groupByPort(models []Model, seq *Sequence) ([]*Receiver, []Model) {
	byPort := make(map[int][]Model)
	var unplaced []Model
	for _, m := range models {
		if m.SourcePort == nil || *m.SourcePort < 1 {
			unplaced = append(unplaced, m)
			continue
		}
		byPort[*m.SourcePort] = append(byPort[*m.SourcePort], m)
	}

	ports := make([]int, 0, len(byPort))
	for p := range byPort {
		ports = append(ports, p)
		sortByStart(byPort[p])
	}
	sort.Ints(ports)

	// Windows come out ascending because ports are sorted; empty windows are
	// never visited.
	var windows []int
	for _, p := range ports {
		if w := windowStart(p); len(windows) == 0 || windows[len(windows)-1] != w {
			windows = append(windows, w)
		}
	}

	receivers := []*Receiver{}
	for _, start := range windows {
		for _, key := range remoteGroups(byPort, start) {
			r := newReceiver(seq, len(receivers))
			r.PortRangeStart = start
			r.PortRangeEnd = start + PortsPerReceiver - 1
			r.SmartRemote = key.ptr()
			for slot := range r.Ports {
				r.Ports[slot].SourcePort = start + slot
				for _, m := range byPort[start+slot] {
					if keyOf(m) == key {
						r.Ports[slot].add(m)
					}
				}
			}
			receivers = append(receivers, r)
		}
	}
	return receivers, unplaced
}

// remoteGroups returns the distinct smart-remote groups present in the window
// starting at start, in ascending order.
func remoteGroups(byPort map[int][]Model, start int) []remoteKey {
	var keys []remoteKey
	for p := start; p < start+PortsPerReceiver; p++ {
		for _, m := range byPort[p] {
			if k := keyOf(m); !slices.Contains(keys, k) {
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}
