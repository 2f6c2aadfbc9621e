// Package pipeline provides the xLights import pipeline for xwire.
//
// This package implements the complete extract → allocate → materialize
// pipeline, plus diagram rendering, shared by the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Extract: Parse xlights_networks.xml and xlights_rgbeffects.xml
//  2. Allocate: Group each controller's models into receivers and ports
//  3. Materialize: Position the allocation as diagram nodes and wires
//  4. Render: Generate output in various formats (SVG, PNG, PDF, DOT, JSON)
//
// Controllers are allocated concurrently; results keep the controller order
// of the networks file.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Import(ctx, pipeline.Options{
//	    NetworksPath:   "xlights_networks.xml",
//	    RGBEffectsPath: "xlights_rgbeffects.xml",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store.Merge(res.Diagram)
//
// Run individual stages:
//
//	ex, err := runner.Extract(ctx, opts)
//	ca, hit, err := runner.Allocate(ctx, ctl, ex.Models.ForController(ctl.Name), opts)
//	artifacts, err := runner.Render(ctx, d, pipeline.RenderOptions{Formats: []render.Format{render.FormatSVG}})
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/xwire/pkg/alloc"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/topology"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultStrategy is the default model grouping strategy.
	DefaultStrategy = alloc.StrategyNamePortGrouping

	// ControllerSpacing is the horizontal canvas distance between imported
	// controllers.
	ControllerSpacing = 8000.0

	// DefaultPNGScale is the scale used for PNG artifacts.
	DefaultPNGScale = 2.0
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains the configuration for an import.
// This struct supports JSON serialization for API requests.
type Options struct {
	NetworksPath   string `json:"networksPath"`
	RGBEffectsPath string `json:"rgbeffectsPath,omitempty"`

	// Controllers selects controllers by name. Empty selects all.
	Controllers []string `json:"controllers,omitempty"`

	Strategy          string   `json:"strategy,omitempty"`
	Rule              string   `json:"rule,omitempty"`
	DifferentialTypes []string `json:"differentialTypes,omitempty"`

	// Differential treats every selected controller as differential,
	// whatever its type.
	Differential bool `json:"differential,omitempty"`

	// Refresh bypasses cached allocations.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	strategy  alloc.Strategy
	rule      alloc.LogicalPortRule
	validated bool
}

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full import. It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForExtract(); err != nil {
		return err
	}
	if err := o.ValidateForAllocate(); err != nil {
		return err
	}
	for _, name := range o.Controllers {
		if err := errors.ValidateControllerName(name); err != nil {
			return err
		}
	}
	o.validated = true
	return nil
}

// ValidateForExtract checks the input paths.
func (o *Options) ValidateForExtract() error {
	if err := errors.ValidateFilePath(o.NetworksPath); err != nil {
		return err
	}
	if o.RGBEffectsPath != "" {
		if err := errors.ValidateFilePath(o.RGBEffectsPath); err != nil {
			return err
		}
	}
	o.setLogger()
	return nil
}

// ValidateForAllocate resolves the strategy and logical port rule. An empty
// rule selects the strategy's default rule.
func (o *Options) ValidateForAllocate() error {
	s, err := alloc.ParseStrategy(o.Strategy)
	if err != nil {
		return err
	}
	r := s.DefaultRule()
	if o.Rule != "" {
		if r, err = alloc.ParseRule(o.Rule); err != nil {
			return err
		}
	}
	if err := alloc.CheckRule(s, r); err != nil {
		return err
	}
	o.strategy, o.rule = s, r
	o.Strategy, o.Rule = s.String(), r.String()
	o.setLogger()
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// RenderOptions configures diagram rendering.
type RenderOptions struct {
	Formats  []render.Format `json:"formats,omitempty"`
	Detailed bool            `json:"detailed,omitempty"`
}

// Validate applies the default format (svg) and rejects unknown formats.
func (o *RenderOptions) Validate() error {
	if len(o.Formats) == 0 {
		o.Formats = []render.Format{render.FormatSVG}
	}
	for _, f := range o.Formats {
		if !render.DiagramFormats[f] {
			return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: svg, png, pdf, dot, json)", f)
		}
	}
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Extraction is the parsed content of the two xLights files.
type Extraction struct {
	Controllers []xlights.Controller `json:"controllers"`
	Models      *xlights.ModelSet    `json:"models"`

	// Warnings lists recoverable problems, such as an unreadable
	// rgbeffects file.
	Warnings []string `json:"warnings,omitempty"`
}

// HasModels reports whether any model data was extracted.
func (e *Extraction) HasModels() bool {
	return e.Models != nil && !e.Models.Empty()
}

// ControllerAllocation is the allocation of one controller.
type ControllerAllocation struct {
	Controller   xlights.Controller  `json:"controller"`
	Differential bool                `json:"differential"`
	Result       alloc.Result        `json:"result"`
	Distribution *alloc.Distribution `json:"distribution,omitempty"`
	Summary      topology.Summary    `json:"summary"`

	// Sequence continues the ID counter used for the allocation, so the
	// materialized diagram draws from the same sequence.
	Sequence *alloc.Sequence `json:"-"`
}

// ImportResult is the output of a full import.
type ImportResult struct {
	Diagram     diagram.Diagram         `json:"diagram"`
	Summary     topology.Summary        `json:"summary"`
	Controllers []*ControllerAllocation `json:"controllers"`
	Warnings    []string                `json:"warnings,omitempty"`
	Stats       Stats                   `json:"-"`
	CacheInfo   CacheInfo               `json:"-"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ModelCount      int
	ExtractTime     time.Duration
	AllocateTime    time.Duration
	MaterializeTime time.Duration
}

// CacheInfo tracks cache hits per controller allocation.
type CacheInfo struct {
	AllocationHits   int
	AllocationMisses int
}
