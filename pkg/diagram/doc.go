// Package diagram holds the wiring diagram shown in the editor: controllers,
// receivers, differential boards and ports, switches, power supplies, wires
// and labels.
//
// [Store] is the live, in-memory copy that the server mutates. A
// [Persister] saves snapshots of it, either to a JSON file ([FileStore]) or to
// MongoDB ([MongoStore]).
//
//	store := diagram.NewStore()
//	p := diagram.NewFileStore("")
//	d, _ := p.Load(ctx)
//	store.Load(d)
//	store.OnChange(func(d diagram.Diagram) { _ = p.Save(ctx, d) })
package diagram
