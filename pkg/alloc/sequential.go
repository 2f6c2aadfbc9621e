package alloc

// packSequential implements SequentialPacking.
//
// The cursor only moves forward: a model that does not fit the current port
// advances it, and a later small model never back-fills an earlier port. A
// model larger than a whole port is placed on the first empty port reached
// and left over capacity.
func packSequential(models []Model, seq *Sequence) []*Receiver {
	sorted := append([]Model(nil), models...)
	sortByStart(sorted)

	receivers := []*Receiver{}
	var cur *Receiver
	slot := 0
	for _, m := range sorted {
		if cur == nil {
			cur = newReceiver(seq, len(receivers))
			receivers = append(receivers, cur)
			slot = 0
		}
		for {
			port := &cur.Ports[slot]
			if port.fits(m.PixelCount) || port.Empty() {
				port.add(m)
				break
			}
			slot++
			if slot == PortsPerReceiver {
				cur = newReceiver(seq, len(receivers))
				receivers = append(receivers, cur)
				slot = 0
			}
		}
	}
	return receivers
}
