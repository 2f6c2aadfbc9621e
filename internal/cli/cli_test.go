package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/xwire/pkg/alloc"
	"github.com/matzehuels/xwire/pkg/diagram"
	"github.com/matzehuels/xwire/pkg/errors"
	"github.com/matzehuels/xwire/pkg/render"
	"github.com/matzehuels/xwire/pkg/topology"
	"github.com/matzehuels/xwire/pkg/xlights"
)

const (
	networksFixture   = "../../pkg/pipeline/testdata/xlights_networks.xml"
	rgbeffectsFixture = "../../pkg/pipeline/testdata/xlights_rgbeffects.xml"
)

// testEnv isolates config, cache and store under a temp dir and returns the
// path of a config file pointing at them.
func testEnv(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XWIRE_REDIS_ADDR", "")
	t.Setenv("XWIRE_MONGO_URI", "")

	cfgPath = filepath.Join(dir, "xwire.toml")
	body := `
[store]
path = "` + filepath.ToSlash(filepath.Join(dir, "diagram.json")) + `"

[cache]
dir = "` + filepath.ToSlash(filepath.Join(dir, "cache", "xwire")) + `"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath, dir
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestImportThenRender(t *testing.T) {
	cfg, dir := testEnv(t)

	require.NoError(t, execute(t, "--config", cfg, "import", networksFixture, rgbeffectsFixture))

	d, err := diagram.NewFileStore(filepath.Join(dir, "diagram.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Controllers, 3)
	assert.Len(t, d.Receivers, 4)

	base := filepath.Join(dir, "out", "show")
	require.NoError(t, os.MkdirAll(filepath.Dir(base), 0o755))
	require.NoError(t, execute(t, "--config", cfg, "render", "-f", "dot,json", "-o", base))

	dot, err := os.ReadFile(base + ".dot")
	require.NoError(t, err)
	assert.Contains(t, string(dot), "digraph")

	var rendered diagram.Diagram
	data, err := os.ReadFile(base + ".json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &rendered))
	assert.Equal(t, d.NodeCount(), rendered.NodeCount())
}

func TestImport_MergeKeepsExisting(t *testing.T) {
	cfg, dir := testEnv(t)

	require.NoError(t, execute(t, "--config", cfg, "import", networksFixture, rgbeffectsFixture, "--controllers", "Yard"))
	require.NoError(t, execute(t, "--config", cfg, "import", networksFixture, rgbeffectsFixture, "--controllers", "Yard", "--merge"))

	d, err := diagram.NewFileStore(filepath.Join(dir, "diagram.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Controllers, 2)

	require.NoError(t, execute(t, "--config", cfg, "import", networksFixture, rgbeffectsFixture, "--controllers", "Yard"))
	d, err = diagram.NewFileStore(filepath.Join(dir, "diagram.json")).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, d.Controllers, 1, "import without --merge replaces the stored diagram")
}

func TestImport_Errors(t *testing.T) {
	cfg, _ := testEnv(t)

	err := execute(t, "--config", cfg, "import")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput), "got %v", err)

	err = execute(t, "--config", cfg, "import", networksFixture, rgbeffectsFixture, "--strategy", "random")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidStrategy), "got %v", err)

	err = execute(t, "--config", cfg, "import", networksFixture, rgbeffectsFixture, "--controllers", "Garage")
	assert.True(t, errors.Is(err, errors.ErrCodeControllerNotFound), "got %v", err)
}

func TestRender_EmptyStoreAndMissingFile(t *testing.T) {
	cfg, dir := testEnv(t)

	require.NoError(t, execute(t, "--config", cfg, "render", "-o", filepath.Join(dir, "empty.svg")))
	assert.NoFileExists(t, filepath.Join(dir, "empty.svg"))

	err := execute(t, "--config", cfg, "render", filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound), "got %v", err)

	err = execute(t, "--config", cfg, "render", "-f", "gif")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)
}

func TestAllocate_WritesReport(t *testing.T) {
	cfg, dir := testEnv(t)
	out := filepath.Join(dir, "main.json")

	require.NoError(t, execute(t, "--config", cfg, "allocate", rgbeffectsFixture,
		"--controller", "Main", "--networks", networksFixture, "-f", "json", "-o", out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var rep render.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, "Main", rep.Controller)
	assert.NotEmpty(t, rep.Receivers)
	assert.NotEmpty(t, rep.LogicalPorts, "Main is a HinksPix and gets differential ports")
	assert.Equal(t, []string{"Ghost"}, rep.Excluded)
}

func TestAllocate_Errors(t *testing.T) {
	cfg, _ := testEnv(t)

	err := execute(t, "--config", cfg, "allocate", rgbeffectsFixture, "--controller", "Garage")
	assert.True(t, errors.Is(err, errors.ErrCodeControllerNotFound), "got %v", err)

	err = execute(t, "--config", cfg, "allocate", rgbeffectsFixture, "--controller", "Main", "--networks", networksFixture, "-f", "svg")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), "got %v", err)

	assert.Error(t, execute(t, "--config", cfg, "allocate", rgbeffectsFixture), "--controller is required")
}

func TestConfigFlag_Invalid(t *testing.T) {
	_, dir := testEnv(t)
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[import]\nstrategy = \"random\"\n"), 0o644))

	err := execute(t, "--config", bad, "controllers", networksFixture)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidStrategy), "got %v", err)
}

func TestParseReportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    render.Format
		wantErr bool
	}{
		{"table", render.FormatTable, false},
		{"JSON", render.FormatJSON, false},
		{"yaml", render.FormatYAML, false},
		{"json,yaml", "", true},
		{"svg", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := parseReportFormat(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestOutputPaths(t *testing.T) {
	single := outputPaths("plan.svg", "", []render.Format{render.FormatSVG})
	assert.Equal(t, "plan.svg", single[render.FormatSVG])

	multi := outputPaths("plan.svg", "", []render.Format{render.FormatSVG, render.FormatPDF})
	assert.Equal(t, "plan.svg", multi[render.FormatSVG])
	assert.Equal(t, "plan.pdf", multi[render.FormatPDF])

	fromInput := outputPaths("", "shows/2026.json", []render.Format{render.FormatDOT})
	assert.Equal(t, "shows/2026.dot", fromInput[render.FormatDOT])

	fallback := outputPaths("", "", []render.Format{render.FormatSVG})
	assert.Equal(t, defaultRenderBase+".svg", fallback[render.FormatSVG])

	assert.Equal(t, "out.v2", basePath("out.v2", ""))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "1023 B", formatBytes(1023))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 MiB", formatBytes(2<<20))
}

// =============================================================================
// Tables
// =============================================================================

func TestControllersTable(t *testing.T) {
	cs, err := xlights.ParseNetworksFile(networksFixture)
	require.NoError(t, err)

	out := controllersTable(cs, nil)
	for _, want := range []string{"Main", "Yard", "Spare", "differential", "direct", "HinksPix PRO V3"} {
		assert.Contains(t, out, want)
	}
}

func TestModelsTable(t *testing.T) {
	set, err := xlights.ParseRGBEffectsFile(rgbeffectsFixture)
	require.NoError(t, err)

	out := modelsTable(set.ForController("Main"))
	for _, want := range []string{"Roof", "Matrix", "Ghost", "300"} {
		assert.Contains(t, out, want)
	}
}

func TestReportText(t *testing.T) {
	set, err := xlights.ParseRGBEffectsFile(rgbeffectsFixture)
	require.NoError(t, err)

	res := alloc.Allocate(set.ForController("Main"), alloc.PortGrouping, alloc.NewSequence("main"))
	dist := alloc.Distribute(res.Receivers, alloc.RulePortRange)
	out := reportText(render.NewReport("Main", res, dist))

	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "Roof")
	assert.Contains(t, out, "differential ports")
	assert.Contains(t, out, "Ghost", "excluded models are listed")

	direct := reportText(render.NewReport("Main", res, nil))
	assert.NotContains(t, direct, "differential ports")
}

func TestLogicalPortsTable_Free(t *testing.T) {
	set, err := xlights.ParseRGBEffectsFile(rgbeffectsFixture)
	require.NoError(t, err)

	res := alloc.Allocate(set.ForController("Main"), alloc.PortGrouping, alloc.NewSequence("main"))
	dist := alloc.Distribute(res.Receivers, alloc.RulePortRange)
	rep := render.NewReport("Main", res, dist)
	require.NotEmpty(t, rep.LogicalPorts)

	out := logicalPortsTable(rep)
	assert.Contains(t, out, "Free")
	for _, lp := range rep.LogicalPorts {
		free := lp.Utilization.Capacity - lp.Utilization.Used
		assert.Equal(t, free, lp.Utilization.Free(), "logical port %d", lp.Number)
		assert.Contains(t, out, strconv.Itoa(free))
	}

	assert.Equal(t, 0, alloc.Measure(5000, alloc.PortCapacity).Free(), "overfull ports have nothing free")
}

func TestFormatUtilizationAndJoin(t *testing.T) {
	assert.Equal(t, "—", formatUtilization(alloc.Measure(0, alloc.PortCapacity)))
	assert.Equal(t, "512/1024 (50%)", formatUtilization(alloc.Measure(512, alloc.PortCapacity)))

	assert.Equal(t, "a, b", joinLimit([]string{"a", "b"}, 2))
	assert.Equal(t, "a, b +2", joinLimit([]string{"a", "b", "c", "d"}, 2))
}

// =============================================================================
// Controller picker
// =============================================================================

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m ControllerPickerModel, keys ...string) (ControllerPickerModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(ControllerPickerModel)
	}
	return m, cmd
}

func pickerFixture(t *testing.T) ControllerPickerModel {
	t.Helper()
	cs, err := xlights.ParseNetworksFile(networksFixture)
	require.NoError(t, err)
	set, err := xlights.ParseRGBEffectsFile(rgbeffectsFixture)
	require.NoError(t, err)
	return NewControllerPickerModel(cs, set)
}

func TestControllerPicker_Defaults(t *testing.T) {
	m := pickerFixture(t)
	assert.Equal(t, []string{"Main", "Yard"}, m.Selected(), "controllers with models start checked")
	assert.Contains(t, m.View(), "Select Controllers")
}

func TestControllerPicker_Toggle(t *testing.T) {
	m := pickerFixture(t)

	m, _ = press(m, " ")
	assert.Equal(t, []string{"Yard"}, m.Selected())

	m, _ = press(m, "down", "down", "x")
	assert.Equal(t, []string{"Yard", "Spare"}, m.Selected())

	m, _ = press(m, "a")
	assert.Len(t, m.Selected(), 3)
	m, _ = press(m, "a")
	assert.Empty(t, m.Selected())

	m, cmd := press(m, "enter")
	assert.False(t, m.Done, "enter with nothing checked is ignored")
	assert.Nil(t, cmd)

	m, cmd = press(m, "x", "enter")
	assert.True(t, m.Done)
	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"Spare"}, m.Selected())
}

func TestControllerPicker_Cancel(t *testing.T) {
	m, cmd := press(pickerFixture(t), "esc")
	assert.True(t, m.Cancelled)
	assert.False(t, m.Done)
	assert.NotNil(t, cmd)
}

func TestCompleteControllers(t *testing.T) {
	cfg, _ := testEnv(t)
	c := New(io.Discard, LogInfo)
	c.configPath = cfg
	root := c.RootCommand()

	importCmd, _, err := root.Find([]string{"import"})
	require.NoError(t, err)
	names, directive := c.completeControllers(importCmd, []string{networksFixture}, "")
	assert.Equal(t, []string{"Main", "Yard", "Spare"}, names)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	names, directive = c.completeControllers(importCmd, []string{networksFixture}, "Main,y")
	assert.Equal(t, []string{"Main,Yard"}, names)
	assert.NotZero(t, directive&cobra.ShellCompDirectiveNoSpace)

	modelsCmd, _, err := root.Find([]string{"models"})
	require.NoError(t, err)
	names, _ = c.completeControllers(modelsCmd, []string{rgbeffectsFixture}, "")
	assert.Contains(t, names, "Main")

	names, _ = c.completeControllers(modelsCmd, nil, "")
	assert.Empty(t, names, "no show configured")
}

// captureStdout redirects status output to a buffer for the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = orig })
	return &buf
}

func TestControllersCommand_JSON(t *testing.T) {
	cfg, _ := testEnv(t)
	out := captureStdout(t)

	require.NoError(t, execute(t, "--config", cfg, "controllers", networksFixture, "-f", "json"))

	var cs []xlights.Controller
	require.NoError(t, json.Unmarshal(out.Bytes(), &cs))
	require.Len(t, cs, 3)
	assert.Equal(t, "Main", cs[0].Name)
}

func TestModelsCommand_Table(t *testing.T) {
	cfg, _ := testEnv(t)
	out := captureStdout(t)

	require.NoError(t, execute(t, "--config", cfg, "models", rgbeffectsFixture, "-c", "Yard"))
	assert.Contains(t, out.String(), "Yard")
	assert.NotContains(t, out.String(), "Ghost")
}

func TestPrintStats(t *testing.T) {
	out := captureStdout(t)

	printStats(topology.Summary{Receivers: 1, Pixels: 2150, Channels: 6450}, true)
	assert.Contains(t, out.String(), "1 receiver ")
	assert.Contains(t, out.String(), "2,150 pixels")
	assert.Contains(t, out.String(), "6,450 channels")
	assert.Contains(t, out.String(), iconCached)

	out.Reset()
	printStats(topology.Summary{Receivers: 4}, false)
	assert.Contains(t, out.String(), "4 receivers")
	assert.Contains(t, out.String(), iconFresh)
}

func TestGroupDigits(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4096: "-4,096"}
	for in, want := range tests {
		assert.Equal(t, want, groupDigits(in), "groupDigits(%d)", in)
	}
}
