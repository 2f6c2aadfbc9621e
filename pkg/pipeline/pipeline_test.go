package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/xwire/pkg/cache"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/observability"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/xlights"
)

const (
	networksFixture   = "testdata/xlights_networks.xml"
	rgbeffectsFixture = "testdata/xlights_rgbeffects.xml"
)

func showOptions() Options {
	return Options{NetworksPath: networksFixture, RGBEffectsPath: rgbeffectsFixture}
}

func TestImport(t *testing.T) {
	res, err := NewRunner(nil, nil, nil).Import(context.Background(), showOptions())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if got := len(res.Controllers); got != 3 {
		t.Fatalf("imported %d controllers, want 3", got)
	}
	if res.Summary.Receivers != 4 || res.Summary.Pixels != 1900 || res.Summary.Channels != 5700 {
		t.Errorf("Summary = %+v", res.Summary)
	}

	d := res.Diagram
	if len(d.Controllers) != 3 || len(d.Receivers) != 4 {
		t.Errorf("diagram has %d controllers, %d receivers", len(d.Controllers), len(d.Receivers))
	}
	if len(d.Differentials) != 4 || len(d.DifferentialPorts) != 16 {
		t.Errorf("diagram has %d boards, %d differential ports", len(d.Differentials), len(d.DifferentialPorts))
	}
	// Main: 4 board wires + 3 receiver wires. Yard: 1 receiver wire.
	if len(d.Wires) != 8 {
		t.Errorf("diagram has %d wires, want 8", len(d.Wires))
	}

	main := res.Controllers[0]
	if !main.Differential || main.Distribution == nil {
		t.Fatal("Main should be differential")
	}
	if chain := main.Distribution.Port(1).Chain; len(chain) != 2 || chain[0].ID != "main-receiver-1" || chain[1].ID != "main-receiver-2" {
		t.Errorf("logical port 1 chain = %v", chain)
	}
	if res.Controllers[1].Differential || res.Controllers[1].Distribution != nil {
		t.Error("Yard should be direct")
	}

	if d.Controllers[1].Position.X != d.Controllers[0].Position.X+ControllerSpacing {
		t.Errorf("controllers should be spaced apart: %v, %v", d.Controllers[0].Position, d.Controllers[1].Position)
	}

	var skipped bool
	for _, w := range res.Warnings {
		if strings.Contains(w, "Main: 1 model(s) without a usable start channel") {
			skipped = true
		}
	}
	if !skipped {
		t.Errorf("Warnings = %v, want the skipped Ghost model", res.Warnings)
	}
}

func TestImport_SelectControllers(t *testing.T) {
	runner := NewRunner(nil, nil, nil)

	opts := showOptions()
	opts.Controllers = []string{"Yard"}
	res, err := runner.Import(context.Background(), opts)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Controllers) != 1 || res.Controllers[0].Controller.Name != "Yard" {
		t.Fatalf("selected %d controllers", len(res.Controllers))
	}
	if res.Diagram.Receivers[0].ID != "yard-receiver-1" {
		t.Errorf("receiver ID = %s", res.Diagram.Receivers[0].ID)
	}

	opts.Controllers = []string{"Nope"}
	if _, err := runner.Import(context.Background(), opts); !errors.Is(err, errors.ErrCodeControllerNotFound) {
		t.Errorf("unknown controller: err = %v", err)
	}
}

func TestImport_ForcedDifferential(t *testing.T) {
	opts := showOptions()
	opts.Controllers = []string{"Yard"}
	opts.Differential = true
	res, err := NewRunner(nil, nil, nil).Import(context.Background(), opts)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	yard := res.Controllers[0]
	if !yard.Differential || yard.Distribution == nil {
		t.Fatalf("Yard should be distributed when forced differential")
	}
	if len(res.Diagram.Differentials) != 4 {
		t.Errorf("differential boards = %d, want 4", len(res.Diagram.Differentials))
	}
}

func TestImport_NoModelData(t *testing.T) {
	runner := NewRunner(nil, nil, nil)

	for name, path := range map[string]string{
		"not given": "",
		"missing":   filepath.Join(t.TempDir(), "xlights_rgbeffects.xml"),
	} {
		t.Run(name, func(t *testing.T) {
			opts := showOptions()
			opts.RGBEffectsPath = path
			_, err := runner.Import(context.Background(), opts)
			if !errors.Is(err, errors.ErrCodeNoModelData) {
				t.Fatalf("err = %v, want NO_MODEL_DATA", err)
			}
			if errors.UserMessage(err) != errors.MsgNoModelData {
				t.Errorf("UserMessage = %q", errors.UserMessage(err))
			}
		})
	}
}

func TestImport_NoControllers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlights_networks.xml")
	if err := os.WriteFile(path, []byte(`<Networks/>`), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := showOptions()
	opts.NetworksPath = path

	_, err := NewRunner(nil, nil, nil).Import(context.Background(), opts)
	if !errors.Is(err, errors.ErrCodeNoControllers) {
		t.Errorf("err = %v, want NO_CONTROLLERS", err)
	}
}

func TestExtract_UnreadableRGBEffects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlights_rgbeffects.xml")
	if err := os.WriteFile(path, []byte(`<xrgb><models>`), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := showOptions()
	opts.RGBEffectsPath = path

	ex, err := NewRunner(nil, nil, nil).Extract(context.Background(), opts)
	if err != nil {
		t.Fatalf("Extract should tolerate a broken rgbeffects file: %v", err)
	}
	if ex.HasModels() {
		t.Error("broken rgbeffects file should yield no models")
	}
	if len(ex.Controllers) != 3 || len(ex.Warnings) != 1 {
		t.Errorf("controllers = %d, warnings = %v", len(ex.Controllers), ex.Warnings)
	}
}

func TestImport_CachedAllocationIsIdentical(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	ctx := context.Background()

	first, err := runner.Import(ctx, showOptions())
	if err != nil {
		t.Fatal(err)
	}
	second, err := runner.Import(ctx, showOptions())
	if err != nil {
		t.Fatal(err)
	}

	if first.CacheInfo.AllocationHits != 0 || second.CacheInfo.AllocationHits != 3 {
		t.Errorf("cache hits = %d then %d, want 0 then 3", first.CacheInfo.AllocationHits, second.CacheInfo.AllocationHits)
	}
	if !reflect.DeepEqual(first.Diagram, second.Diagram) {
		t.Error("diagram from cached allocation differs")
	}

	opts := showOptions()
	opts.Refresh = true
	third, err := runner.Import(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.AllocationHits != 0 {
		t.Error("Refresh should bypass the cache")
	}
}

func TestImport_Strategies(t *testing.T) {
	opts := showOptions()
	opts.Strategy = "sequential"
	opts.Controllers = []string{"Main"}

	res, err := NewRunner(nil, nil, nil).Import(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Rule != "" {
		t.Error("Import should not modify the caller's options")
	}
	main := res.Controllers[0]
	if main.Distribution.Rule.String() != "universe" {
		t.Errorf("sequential packing should default to the universe rule, got %s", main.Distribution.Rule)
	}
	// 1800 pixels pack into two ports of one receiver.
	if len(main.Result.Receivers) != 1 {
		t.Errorf("receivers = %d, want 1", len(main.Result.Receivers))
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"missing networks", Options{}, errors.ErrCodeInvalidPath},
		{"not xml", Options{NetworksPath: "show.txt"}, errors.ErrCodeInvalidPath},
		{"bad rgbeffects", Options{NetworksPath: "n.xml", RGBEffectsPath: "r.json"}, errors.ErrCodeInvalidPath},
		{"bad strategy", Options{NetworksPath: "n.xml", Strategy: "random"}, errors.ErrCodeInvalidStrategy},
		{"bad rule", Options{NetworksPath: "n.xml", Rule: "dice"}, errors.ErrCodeInvalidRule},
		{"rule mismatch", Options{NetworksPath: "n.xml", Strategy: "sequential", Rule: "port-range"}, errors.ErrCodeInvalidRule},
		{"blank controller", Options{NetworksPath: "n.xml", Controllers: []string{" "}}, errors.ErrCodeInvalidInput},
		{"valid", Options{NetworksPath: "n.xml"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}

	opts := Options{NetworksPath: "n.xml"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Strategy != DefaultStrategy || opts.Rule != "port-range" || opts.Logger == nil {
		t.Errorf("defaults not applied: %+v", opts)
	}
}

func TestRender(t *testing.T) {
	res, err := NewRunner(nil, nil, nil).Import(context.Background(), showOptions())
	if err != nil {
		t.Fatal(err)
	}

	c, _ := cache.NewFileCache(t.TempDir())
	runner := NewRunner(c, nil, nil)
	opts := RenderOptions{Formats: []render.Format{render.FormatDOT, render.FormatJSON}}

	artifacts, hit, err := runner.RenderWithCacheInfo(context.Background(), res.Diagram, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if hit {
		t.Error("first render should miss the cache")
	}
	if !strings.HasPrefix(string(artifacts[render.FormatDOT]), "digraph G") {
		t.Error("dot artifact missing")
	}
	if !strings.Contains(string(artifacts[render.FormatJSON]), `"differentialPorts"`) {
		t.Error("json artifact missing diagram collections")
	}

	again, hit, err := runner.RenderWithCacheInfo(context.Background(), res.Diagram, opts)
	if err != nil || !hit {
		t.Fatalf("second render: hit=%v err=%v", hit, err)
	}
	if string(again[render.FormatDOT]) != string(artifacts[render.FormatDOT]) {
		t.Error("cached artifact differs")
	}

	_, err = runner.Render(context.Background(), res.Diagram, RenderOptions{Formats: []render.Format{render.FormatYAML}})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("yaml diagram: err = %v", err)
	}
}

func TestIDPrefix(t *testing.T) {
	tests := map[string]string{
		"Main":          "main",
		"Front Yard #2": "front-yard--2",
		"  ":            "controller",
		"Ärger":         "ärger",
	}
	for in, want := range tests {
		if got := idPrefix(in); got != want {
			t.Errorf("idPrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUniquePrefixes(t *testing.T) {
	ctls := []xlights.Controller{{Name: "Yard A"}, {Name: "yard-a"}, {Name: "Main"}, {Name: "YARD A"}}
	want := []string{"yard-a", "yard-a-2", "main", "yard-a-3"}
	if got := uniquePrefixes(ctls); !reflect.DeepEqual(got, want) {
		t.Errorf("uniquePrefixes = %v, want %v", got, want)
	}
}

func TestImport_CollidingControllerNamesKeepIDsUnique(t *testing.T) {
	dir := t.TempDir()
	networks := filepath.Join(dir, "xlights_networks.xml")
	rgbeffects := filepath.Join(dir, "xlights_rgbeffects.xml")
	writeFile(t, networks, `<Networks>
  <Network>
    <Controller Name="Yard A" Vendor="HinksPix" Model="PRO V3"/>
    <Controller Name="yard-a" Vendor="HinksPix" Model="PRO V3"/>
  </Network>
</Networks>`)
	writeFile(t, rgbeffects, `<xrgb>
  <models>
    <model name="Roof" Controller="Yard A" StartChannel="1" PixelCount="100">
      <ControllerConnection Port="1" SmartRemote="1"/>
    </model>
    <model name="Eave" Controller="yard-a" StartChannel="1" PixelCount="100">
      <ControllerConnection Port="1" SmartRemote="1"/>
    </model>
  </models>
</xrgb>`)

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	opts := Options{NetworksPath: networks, RGBEffectsPath: rgbeffects}
	for _, pass := range []string{"fresh", "cached"} {
		res, err := runner.Import(context.Background(), opts)
		if err != nil {
			t.Fatalf("%s Import: %v", pass, err)
		}
		if len(res.Diagram.Receivers) != 2 {
			t.Fatalf("%s: %d receivers, want 2", pass, len(res.Diagram.Receivers))
		}
		for id, n := range diagramIDCounts(res.Diagram) {
			if n > 1 {
				t.Errorf("%s: id %q used %d times", pass, id, n)
			}
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func diagramIDCounts(d diagram.Diagram) map[string]int {
	counts := make(map[string]int)
	for _, c := range d.Controllers {
		counts[c.ID]++
	}
	for _, r := range d.Receivers {
		counts[r.ID]++
	}
	for _, b := range d.Differentials {
		counts[b.ID]++
	}
	for _, p := range d.DifferentialPorts {
		counts[p.ID]++
	}
	for _, w := range d.Wires {
		counts[w.ID]++
	}
	for _, l := range d.Labels {
		counts[l.ID]++
	}
	return counts
}

type countingHooks struct {
	observability.NoopPipelineHooks
	allocations atomic.Int32
}

func (h *countingHooks) OnAllocateStart(context.Context, string, string, int) {
	h.allocations.Add(1)
}

func TestImport_EmitsHooks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	hooks := &countingHooks{}
	observability.SetPipelineHooks(hooks)

	if _, err := NewRunner(nil, nil, nil).Import(context.Background(), showOptions()); err != nil {
		t.Fatal(err)
	}
	if got := hooks.allocations.Load(); got != 3 {
		t.Errorf("OnAllocateStart called %d times, want 3", got)
	}
}

func TestImport_Canceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	if _, err := NewRunner(nil, nil, nil).Import(ctx, showOptions()); err == nil {
		t.Error("Import with an expired context should fail")
	}
}
