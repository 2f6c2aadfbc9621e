// Package pkg provides the core libraries for xwire, the xLights wiring
// planner.
//
// # Overview
//
// xwire reads an xLights show, groups every controller's models onto remote
// receivers and draws the wiring between controllers, differential boards
// and receivers. The pkg directory is organized into three areas:
//
//  1. Domain logic: [xlights], [alloc], [topology], [diagram]
//  2. Orchestration: [pipeline], [render], [render/nodelink]
//  3. Infrastructure: [cache], [config], [errors], [observability], [server], [watch]
//
// # Architecture
//
// The data flow of an import:
//
//	xlights_networks.xml + xlights_rgbeffects.xml
//	         ↓
//	    [xlights] package (controllers and models)
//	         ↓
//	    [alloc] package (receivers, ports, logical ports)
//	         ↓
//	    [topology] package (positioned nodes and wires)
//	         ↓
//	    [diagram] package (editable diagram, persisted as JSON or in MongoDB)
//	         ↓
//	    SVG/PNG/PDF/DOT/JSON output
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	res, err := runner.Import(ctx, pipeline.Options{
//	    NetworksPath:   "show/xlights_networks.xml",
//	    RGBEffectsPath: "show/xlights_rgbeffects.xml",
//	})
//	if err != nil {
//	    return err
//	}
//	artifacts, err := runner.Render(ctx, res.Diagram, pipeline.RenderOptions{})
//
// # Main Packages
//
// [xlights] - Parsers for the two xLights show files. Model start channels in
// controller-relative form (!Controller:N) are resolved; references to other
// models (@Model:N) are kept as invalid and reported.
//
// [alloc] - Receiver allocation. Port grouping (default) keeps xLights ports
// and smart-remote groups together; sequential packing fills receivers in
// channel order. Differential controllers distribute receivers over 16
// logical ports on 4 boards.
//
// [topology] - Turns an allocation into diagram nodes and wires.
//
// [diagram] - The editable diagram model, an in-memory store with change
// notification and file or MongoDB persistence.
//
// [pipeline] - Extract, allocate, materialize and render, with caching. Shared
// by the CLI and the HTTP server.
//
// [server] - The HTTP API and server-sent event stream used by the editor.
//
// [watch] - Watches xlights_networks.xml and publishes controller updates.
package pkg
