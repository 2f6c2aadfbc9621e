package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/xwire/pkg/alloc"
	"github.com/matzehuels/xwire/pkg/cache"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/observability"
	"github.com/matzehuels/xwire/pkg/topology"
	"github.com/matzehuels/xwire/pkg/xlights"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Import runs the complete extract → allocate → materialize pipeline.
//
// It fails with NO_CONTROLLERS when the networks file lists no controller,
// NO_MODEL_DATA when no model could be read from the rgbeffects file and
// CONTROLLER_NOT_FOUND when a selected controller does not exist.
func (r *Runner) Import(ctx context.Context, opts Options) (*ImportResult, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &ImportResult{}

	// Stage 1: Extract
	extractStart := time.Now()
	ex, err := r.Extract(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	result.Stats.ExtractTime = time.Since(extractStart)
	result.Warnings = append(result.Warnings, ex.Warnings...)

	if len(ex.Controllers) == 0 {
		return nil, errors.New(errors.ErrCodeNoControllers, "no controllers found in %s", filepath.Base(opts.NetworksPath))
	}
	if !ex.HasModels() {
		return nil, errors.New(errors.ErrCodeNoModelData, "%s", errors.MsgNoModelData)
	}
	selected, err := selectControllers(ex.Controllers, opts.Controllers)
	if err != nil {
		return nil, err
	}
	result.Stats.ModelCount = len(ex.Models.Models)

	// Stage 2: Allocate, one goroutine per controller
	allocStart := time.Now()
	allocs := make([]*ControllerAllocation, len(selected))
	hits := make([]bool, len(selected))
	prefixes := uniquePrefixes(selected)
	g, gctx := errgroup.WithContext(ctx)
	for i, ctl := range selected {
		g.Go(func() error {
			ca, hit, err := r.allocate(gctx, ctl, prefixes[i], ex.Models.ForController(ctl.Name), opts)
			if err != nil {
				return fmt.Errorf("allocate %s: %w", ctl.Name, err)
			}
			allocs[i], hits[i] = ca, hit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	result.Stats.AllocateTime = time.Since(allocStart)
	result.Controllers = allocs

	// Stage 3: Materialize
	materializeStart := time.Now()
	d := diagram.Empty()
	for i, ca := range allocs {
		part := topology.Materialize(ca.Controller, ca.Result, ca.Distribution, topology.Options{
			Sequence:          ca.Sequence,
			DifferentialTypes: opts.DifferentialTypes,
		})
		part.Shift(float64(i)*ControllerSpacing, 0)
		d.Append(part)
		result.Summary = result.Summary.Add(ca.Summary)

		if hits[i] {
			result.CacheInfo.AllocationHits++
		} else {
			result.CacheInfo.AllocationMisses++
		}
		result.Warnings = append(result.Warnings, diagnostics(ca)...)

		r.Logger.Info("imported controller",
			"controller", ca.Controller.Name,
			"differential", ca.Differential,
			"receivers", len(ca.Result.Receivers),
			"models", ca.Result.ModelCount(),
			"cached", hits[i])
	}
	result.Diagram = d
	result.Stats.MaterializeTime = time.Since(materializeStart)

	r.Logger.Info("import complete",
		"controllers", len(allocs),
		"receivers", result.Summary.Receivers,
		"pixels", result.Summary.Pixels,
		"duration", time.Since(extractStart))

	return result, nil
}

// Extract parses the networks file and, when given, the rgbeffects file.
// A missing or unreadable rgbeffects file is not an error: it is logged and
// recorded in Extraction.Warnings, and the extraction carries no models.
func (r *Runner) Extract(ctx context.Context, opts Options) (*Extraction, error) {
	if err := opts.ValidateForExtract(); err != nil {
		return nil, err
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnExtractStart(ctx, opts.NetworksPath)

	ex, err := r.extract(ctx, opts)
	if err != nil {
		hooks.OnExtractComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnExtractComplete(ctx, len(ex.Controllers), len(ex.Models.Models), time.Since(start), nil)
	return ex, nil
}

func (r *Runner) extract(ctx context.Context, opts Options) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	controllers, err := xlights.ParseNetworksFile(opts.NetworksPath)
	if err != nil {
		return nil, err
	}
	ex := &Extraction{Controllers: controllers, Models: &xlights.ModelSet{}}

	switch {
	case opts.RGBEffectsPath == "":
		ex.Warnings = append(ex.Warnings, "no rgbeffects file given")
	default:
		set, err := xlights.ParseRGBEffectsFile(opts.RGBEffectsPath)
		if err != nil {
			r.Logger.Warn("could not read rgbeffects file", "path", opts.RGBEffectsPath, "err", err)
			ex.Warnings = append(ex.Warnings, "rgbeffects: "+errors.UserMessage(err))
			break
		}
		ex.Models = set
	}

	r.Logger.Debug("extracted xLights data",
		"controllers", len(ex.Controllers),
		"models", len(ex.Models.Models),
		"ignored", ex.Models.Ignored)
	return ex, nil
}

// allocationEntry is the cached form of an allocation. Distribution is
// recomputed on load because it links receivers by pointer.
type allocationEntry struct {
	Result alloc.Result `json:"result"`
	NextID int          `json:"nextId"`
}

// Allocate groups one controller's models into receivers, distributing them
// over logical ports when the controller is differential. The bool reports
// a cache hit.
func (r *Runner) Allocate(ctx context.Context, ctl xlights.Controller, models []alloc.Model, opts Options) (*ControllerAllocation, bool, error) {
	return r.allocate(ctx, ctl, idPrefix(ctl.Name), models, opts)
}

// allocationInput is what a cached allocation depends on besides options.
// The prefix is part of it because cached results carry prefixed IDs.
type allocationInput struct {
	Prefix string        `json:"prefix"`
	Models []alloc.Model `json:"models"`
}

func (r *Runner) allocate(ctx context.Context, ctl xlights.Controller, prefix string, models []alloc.Model, opts Options) (*ControllerAllocation, bool, error) {
	if err := opts.ValidateForAllocate(); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnAllocateStart(ctx, ctl.Name, opts.Strategy, len(models))

	differential := opts.Differential || ctl.IsDifferential(opts.DifferentialTypes)
	cacheKey := r.Keyer.AllocationKey(ctl.Name, cache.HashJSON(allocationInput{Prefix: prefix, Models: models}), cache.AllocationKeyOpts{
		Strategy:     opts.Strategy,
		Rule:         opts.Rule,
		Differential: differential,
	})

	var entry allocationEntry
	hit := false
	if !opts.Refresh {
		if data, ok, err := r.Cache.Get(ctx, cacheKey); err == nil && ok {
			hit = json.Unmarshal(data, &entry) == nil
		}
	}

	if hit {
		observability.Cache().OnCacheHit(ctx, "allocation")
	} else {
		observability.Cache().OnCacheMiss(ctx, "allocation")
		seq := alloc.NewSequence(prefix)
		entry = allocationEntry{Result: alloc.Allocate(models, opts.strategy, seq), NextID: seq.Peek()}
		if data, err := json.Marshal(entry); err == nil {
			if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLAllocation); err != nil {
				r.Logger.Debug("cache write failed", "key", cacheKey, "err", err)
			} else {
				observability.Cache().OnCacheSet(ctx, "allocation", len(data))
			}
		}
	}

	ca := &ControllerAllocation{
		Controller:   ctl,
		Differential: differential,
		Result:       entry.Result,
		Summary:      topology.Summarize(entry.Result),
		Sequence:     alloc.ResumeSequence(prefix, entry.NextID),
	}
	if differential {
		ca.Distribution = alloc.Distribute(ca.Result.Receivers, opts.rule)
	}

	hooks.OnAllocateComplete(ctx, ctl.Name, len(ca.Result.Receivers), time.Since(start), nil)
	r.Logger.Debug("allocated controller",
		"controller", ctl.Name,
		"strategy", opts.Strategy,
		"receivers", len(ca.Result.Receivers),
		"cached", hit)
	return ca, hit, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// selectControllers returns the named controllers in networks-file order.
// No names selects all.
func selectControllers(all []xlights.Controller, names []string) ([]xlights.Controller, error) {
	if len(names) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := xlights.FindController(all, n); !ok {
			return nil, errors.New(errors.ErrCodeControllerNotFound, "controller not found: %s", n)
		}
		want[n] = true
	}
	var out []xlights.Controller
	for _, c := range all {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out, nil
}

// idPrefix turns a controller name into an ID prefix, so entities of
// different controllers never collide.
func idPrefix(name string) string {
	p := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '-'
	}, name)
	p = strings.Trim(p, "-")
	if p == "" {
		return "controller"
	}
	return p
}

// uniquePrefixes returns one ID prefix per controller. Names that fold to
// the same prefix ("Yard A", "yard-a") get "-2", "-3" and so on in
// networks-file order.
func uniquePrefixes(controllers []xlights.Controller) []string {
	out := make([]string, len(controllers))
	taken := make(map[string]bool, len(controllers))
	for i, ctl := range controllers {
		base := idPrefix(ctl.Name)
		p := base
		for n := 2; taken[p]; n++ {
			p = fmt.Sprintf("%s-%d", base, n)
		}
		taken[p] = true
		out[i] = p
	}
	return out
}

// diagnostics describes models an allocation could not use.
func diagnostics(ca *ControllerAllocation) []string {
	var out []string
	name := ca.Controller.Name
	if n := len(ca.Result.Excluded); n > 0 {
		out = append(out, fmt.Sprintf("%s: %d model(s) without a usable start channel were skipped", name, n))
	}
	if n := len(ca.Result.Unplaced); n > 0 {
		out = append(out, fmt.Sprintf("%s: %d model(s) without an xLights port were not placed", name, n))
	}
	if ca.Distribution != nil {
		if n := len(ca.Distribution.Unmapped); n > 0 {
			out = append(out, fmt.Sprintf("%s: %d receiver(s) fall outside the %d logical ports", name, n, alloc.LogicalPortCount))
		}
	}
	return out
}
