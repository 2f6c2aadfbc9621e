package diagram

import (
	"sync"

	"github.com/google/uuid"

	xerrors "github.com/matzehuels/xwire/pkg/errors"
)

// Store holds one diagram in memory. It is safe for concurrent use.
//
// Entities added with an empty ID get a random UUID. Removing a node also
// removes every wire attached to it. Listeners registered with OnChange run
// after each mutation, outside the lock, with a snapshot of the new state.
type Store struct {
	mu        sync.RWMutex
	d         Diagram
	listeners []func(Diagram)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{d: Empty()}
}

// OnChange registers fn to be called after every mutation.
func (s *Store) OnChange(fn func(Diagram)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current diagram.
func (s *Store) Snapshot() Diagram {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.d.clone()
}

// Load replaces the whole diagram. Missing collections load as empty.
func (s *Store) Load(d Diagram) {
	s.mutate(func(cur *Diagram) error {
		*cur = d.clone()
		cur.normalize()
		return nil
	})
}

// Merge appends every entity of d to the current diagram. Entities without
// an ID, or whose ID is already taken, are given a fresh one and references
// to them are rewritten, so importing the same show twice yields two
// independent copies.
func (s *Store) Merge(d Diagram) {
	s.mutate(func(cur *Diagram) error {
		in := d.clone()
		in.reassignIDs(cur.ids())
		cur.Append(in)
		return nil
	})
}

// Clear removes everything.
func (s *Store) Clear() {
	s.Load(Empty())
}

func (s *Store) mutate(fn func(*Diagram) error) error {
	s.mu.Lock()
	if err := fn(&s.d); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.d.clone()
	listeners := append([]func(Diagram){}, s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return nil
}

// removeWiresTo drops wires attached to node id.
func (d *Diagram) removeWiresTo(id string) {
	kept := d.Wires[:0]
	for _, w := range d.Wires {
		if !w.Touches(id) {
			kept = append(kept, w)
		}
	}
	d.Wires = kept
}

// ids returns the ID of every entity in d.
func (d *Diagram) ids() map[string]bool {
	ids := make(map[string]bool)
	for _, c := range d.Controllers {
		ids[c.ID] = true
	}
	for _, r := range d.Receivers {
		ids[r.ID] = true
	}
	for _, b := range d.Differentials {
		ids[b.ID] = true
	}
	for _, p := range d.DifferentialPorts {
		ids[p.ID] = true
	}
	for _, e := range d.EthernetSwitches {
		ids[e.ID] = true
	}
	for _, p := range d.PowerSupplies {
		ids[p.ID] = true
	}
	for _, w := range d.Wires {
		ids[w.ID] = true
	}
	for _, l := range d.Labels {
		ids[l.ID] = true
	}
	return ids
}

// reassignIDs gives every entity whose ID is empty or in taken a new one and
// rewrites connections and wire endpoints that pointed at the old ID.
func (d *Diagram) reassignIDs(taken map[string]bool) {
	remap := make(map[string]string)
	fresh := func(id *string) {
		if *id != "" && !taken[*id] {
			return
		}
		old := *id
		*id = uuid.NewString()
		if old != "" {
			remap[old] = *id
		}
	}
	ref := func(id *string) {
		if n, ok := remap[*id]; ok {
			*id = n
		}
	}

	for i := range d.Controllers {
		fresh(&d.Controllers[i].ID)
	}
	for i := range d.Receivers {
		fresh(&d.Receivers[i].ID)
	}
	for i := range d.Differentials {
		fresh(&d.Differentials[i].ID)
	}
	for i := range d.DifferentialPorts {
		fresh(&d.DifferentialPorts[i].ID)
	}
	for i := range d.EthernetSwitches {
		fresh(&d.EthernetSwitches[i].ID)
	}
	for i := range d.PowerSupplies {
		fresh(&d.PowerSupplies[i].ID)
	}
	for i := range d.Wires {
		fresh(&d.Wires[i].ID)
	}
	for i := range d.Labels {
		fresh(&d.Labels[i].ID)
	}
	if len(remap) == 0 {
		return
	}

	for i := range d.Receivers {
		ref(&d.Receivers[i].ControllerConnection)
		ref(&d.Receivers[i].DifferentialConnection)
	}
	for i := range d.Differentials {
		b := &d.Differentials[i]
		ref(&b.ControllerConnection)
		for j := range b.DifferentialPorts {
			ref(&b.DifferentialPorts[j])
		}
	}
	for i := range d.DifferentialPorts {
		p := &d.DifferentialPorts[i]
		ref(&p.ControllerConnection)
		for j := range p.ConnectedReceivers {
			ref(&p.ConnectedReceivers[j])
		}
	}
	for i := range d.Wires {
		ref(&d.Wires[i].From.NodeID)
		ref(&d.Wires[i].To.NodeID)
	}
}

// ===== Generic collection helpers =====

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func indexOf[T any](items []T, id string, idOf func(*T) string) int {
	for i := range items {
		if idOf(&items[i]) == id {
			return i
		}
	}
	return -1
}

func notFound(kind, id string) error {
	return xerrors.New(xerrors.ErrCodeNotFound, "%s not found: %s", kind, id)
}

func add[T any](s *Store, items func(*Diagram) *[]T, idOf func(*T) string, setID func(*T, string), v T) T {
	if idOf(&v) == "" {
		setID(&v, uuid.NewString())
	}
	s.mutate(func(d *Diagram) error {
		list := items(d)
		*list = append(*list, v)
		return nil
	})
	return v
}

func update[T any](s *Store, kind string, items func(*Diagram) *[]T, idOf func(*T) string, id string, fn func(*T)) error {
	return s.mutate(func(d *Diagram) error {
		list := items(d)
		i := indexOf(*list, id, idOf)
		if i < 0 {
			return notFound(kind, id)
		}
		fn(&(*list)[i])
		return nil
	})
}

func remove[T any](s *Store, kind string, items func(*Diagram) *[]T, idOf func(*T) string, id string, node bool) error {
	return s.mutate(func(d *Diagram) error {
		list := items(d)
		i := indexOf(*list, id, idOf)
		if i < 0 {
			return notFound(kind, id)
		}
		*list = append((*list)[:i], (*list)[i+1:]...)
		if node {
			d.removeWiresTo(id)
		}
		return nil
	})
}

func get[T any](s *Store, items func(*Diagram) *[]T, idOf func(*T) string, id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := items(&s.d)
	if i := indexOf(*list, id, idOf); i >= 0 {
		return (*list)[i], true
	}
	var zero T
	return zero, false
}

// ===== Controllers =====

func controllers(d *Diagram) *[]Controller { return &d.Controllers }
func controllerID(c *Controller) string     { return c.ID }
func setControllerID(c *Controller, id string) {
	c.ID = id
}

// AddController adds c and returns it with its ID set.
func (s *Store) AddController(c Controller) Controller {
	return add(s, controllers, controllerID, setControllerID, c)
}

// UpdateController applies fn to the controller with the given ID.
func (s *Store) UpdateController(id string, fn func(*Controller)) error {
	return update(s, "controller", controllers, controllerID, id, fn)
}

// RemoveController removes a controller and its wires.
func (s *Store) RemoveController(id string) error {
	return remove(s, "controller", controllers, controllerID, id, true)
}

// Controller returns the controller with the given ID.
func (s *Store) Controller(id string) (Controller, bool) {
	return get(s, controllers, controllerID, id)
}

// ===== Receivers =====

func receivers(d *Diagram) *[]Receiver { return &d.Receivers }
func receiverID(r *Receiver) string     { return r.ID }
func setReceiverID(r *Receiver, id string) {
	r.ID = id
}

// AddReceiver adds r and returns it with its ID set.
func (s *Store) AddReceiver(r Receiver) Receiver {
	return add(s, receivers, receiverID, setReceiverID, r)
}

// UpdateReceiver applies fn to the receiver with the given ID.
func (s *Store) UpdateReceiver(id string, fn func(*Receiver)) error {
	return update(s, "receiver", receivers, receiverID, id, fn)
}

// RemoveReceiver removes a receiver and its wires.
func (s *Store) RemoveReceiver(id string) error {
	return remove(s, "receiver", receivers, receiverID, id, true)
}

// Receiver returns the receiver with the given ID.
func (s *Store) Receiver(id string) (Receiver, bool) {
	return get(s, receivers, receiverID, id)
}

// ===== Differentials =====

func differentials(d *Diagram) *[]Differential { return &d.Differentials }
func differentialID(b *Differential) string     { return b.ID }
func setDifferentialID(b *Differential, id string) {
	b.ID = id
}

func (s *Store) AddDifferential(b Differential) Differential {
	return add(s, differentials, differentialID, setDifferentialID, b)
}

func (s *Store) UpdateDifferential(id string, fn func(*Differential)) error {
	return update(s, "differential", differentials, differentialID, id, fn)
}

func (s *Store) RemoveDifferential(id string) error {
	return remove(s, "differential", differentials, differentialID, id, true)
}

func differentialPorts(d *Diagram) *[]DifferentialPort { return &d.DifferentialPorts }
func differentialPortID(p *DifferentialPort) string     { return p.ID }
func setDifferentialPortID(p *DifferentialPort, id string) {
	p.ID = id
}

func (s *Store) AddDifferentialPort(p DifferentialPort) DifferentialPort {
	return add(s, differentialPorts, differentialPortID, setDifferentialPortID, p)
}

func (s *Store) UpdateDifferentialPort(id string, fn func(*DifferentialPort)) error {
	return update(s, "differential port", differentialPorts, differentialPortID, id, fn)
}

func (s *Store) RemoveDifferentialPort(id string) error {
	return remove(s, "differential port", differentialPorts, differentialPortID, id, true)
}

// ===== Infrastructure =====

func switches(d *Diagram) *[]EthernetSwitch { return &d.EthernetSwitches }
func switchID(e *EthernetSwitch) string      { return e.ID }
func setSwitchID(e *EthernetSwitch, id string) {
	e.ID = id
}

func (s *Store) AddEthernetSwitch(e EthernetSwitch) EthernetSwitch {
	return add(s, switches, switchID, setSwitchID, e)
}

func (s *Store) UpdateEthernetSwitch(id string, fn func(*EthernetSwitch)) error {
	return update(s, "ethernet switch", switches, switchID, id, fn)
}

func (s *Store) RemoveEthernetSwitch(id string) error {
	return remove(s, "ethernet switch", switches, switchID, id, true)
}

func supplies(d *Diagram) *[]PowerSupply { return &d.PowerSupplies }
func supplyID(p *PowerSupply) string      { return p.ID }
func setSupplyID(p *PowerSupply, id string) {
	p.ID = id
}

func (s *Store) AddPowerSupply(p PowerSupply) PowerSupply {
	return add(s, supplies, supplyID, setSupplyID, p)
}

func (s *Store) UpdatePowerSupply(id string, fn func(*PowerSupply)) error {
	return update(s, "power supply", supplies, supplyID, id, fn)
}

func (s *Store) RemovePowerSupply(id string) error {
	return remove(s, "power supply", supplies, supplyID, id, true)
}

// ===== Wires and labels =====

func wires(d *Diagram) *[]Wire { return &d.Wires }
func wireID(w *Wire) string     { return w.ID }
func setWireID(w *Wire, id string) {
	w.ID = id
}

// AddWire adds w. An empty color defaults to a data wire.
func (s *Store) AddWire(w Wire) Wire {
	if w.Color == "" {
		w.Color = WireData
	}
	return add(s, wires, wireID, setWireID, w)
}

func (s *Store) UpdateWire(id string, fn func(*Wire)) error {
	return update(s, "wire", wires, wireID, id, fn)
}

// RemoveWire removes a single wire.
func (s *Store) RemoveWire(id string) error {
	return remove(s, "wire", wires, wireID, id, false)
}

func labels(d *Diagram) *[]Label { return &d.Labels }
func labelID(l *Label) string     { return l.ID }
func setLabelID(l *Label, id string) {
	l.ID = id
}

func (s *Store) AddLabel(l Label) Label {
	return add(s, labels, labelID, setLabelID, l)
}

func (s *Store) UpdateLabel(id string, fn func(*Label)) error {
	return update(s, "label", labels, labelID, id, fn)
}

func (s *Store) RemoveLabel(id string) error {
	return remove(s, "label", labels, labelID, id, true)
}
