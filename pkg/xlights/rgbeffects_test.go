package xlights

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	xerrors "github.com/matzehuels/xwire/pkg/errors"
)

const showXML = `<?xml version="1.0" encoding="UTF-8"?>
<xrgb>
  <models>
    <model name="Roof" Controller="Main" StartChannel="1" PixelCount="300">
      <ControllerConnection Port="1" SmartRemote="1"/>
    </model>
    <model name="Tree" ControllerConnection="Main" Port="2" StartChannel="!Main:901" parm1="10" parm2="50"/>
    <model name="Arch" Controller="Main" StartChannel="#2:1" parm1="100">
      <ControllerConnection Port="5" SmartRemote="0"/>
    </model>
    <model name="Star" Controller="Yard" StartChannel="@Roof:1" PixelCount="50"/>
    <model name="Unwired" StartChannel="4000" PixelCount="10"/>
  </models>
  <effects/>
</xrgb>`

func TestParseRGBEffects(t *testing.T) {
	set, err := ParseRGBEffects(strings.NewReader(showXML))
	if err != nil {
		t.Fatalf("ParseRGBEffects: %v", err)
	}

	if len(set.Models) != 4 {
		t.Fatalf("got %d models, want 4", len(set.Models))
	}
	if set.Ignored != 1 {
		t.Errorf("Ignored = %d, want 1", set.Ignored)
	}

	roof := set.Models[0]
	if roof.Start() != 1 || roof.PixelCount != 300 || *roof.SourcePort != 1 || *roof.SmartRemote != 1 {
		t.Errorf("Roof = %+v", roof)
	}

	tree := set.Models[1]
	if tree.Controller != "Main" || tree.Start() != 901 || tree.PixelCount != 500 || *tree.SourcePort != 2 {
		t.Errorf("Tree = %+v", tree)
	}
	if tree.SmartRemote != nil {
		t.Errorf("Tree smart remote = %d, want nil", *tree.SmartRemote)
	}

	arch := set.Models[2]
	if arch.Start() != 511 || arch.PixelCount != 100 || *arch.SourcePort != 5 {
		t.Errorf("Arch = %+v", arch)
	}
	if arch.SmartRemote != nil {
		t.Error("SmartRemote=0 should be treated as no remote")
	}

	star := set.Models[3]
	if star.Valid() {
		t.Errorf("model-relative start channel should be unresolved, got %d", star.Start())
	}
}

func TestModelSet_Controllers(t *testing.T) {
	set, err := ParseRGBEffects(strings.NewReader(showXML))
	if err != nil {
		t.Fatal(err)
	}

	names := set.ControllerNames()
	if len(names) != 2 || names[0] != "Main" || names[1] != "Yard" {
		t.Errorf("ControllerNames() = %v", names)
	}

	mc := set.Controllers["Main"]
	if mc.Pixels != 900 {
		t.Errorf("Main pixels = %d, want 900", mc.Pixels)
	}
	if got := mc.Ports[1]; len(got) != 1 || got[0] != "Roof" {
		t.Errorf("Main port 1 = %v", got)
	}
	if got := set.Controllers["Yard"].Ports; len(got) != 0 {
		t.Errorf("Yard ports = %v, want none", got)
	}

	if got := set.ForController("Main"); len(got) != 3 {
		t.Errorf("ForController(Main) = %d models, want 3", len(got))
	}
	if got := set.ForController("Nope"); len(got) != 0 {
		t.Errorf("ForController(Nope) = %d models, want 0", len(got))
	}
}

func TestParseRGBEffects_NoModels(t *testing.T) {
	for _, doc := range []string{`<xrgb/>`, `<xrgb><effects/></xrgb>`, `<other><models/></other>`} {
		set, err := ParseRGBEffects(strings.NewReader(doc))
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		if !set.Empty() {
			t.Errorf("%s: expected empty set", doc)
		}
	}
}

func TestParseRGBEffects_InvalidXML(t *testing.T) {
	_, err := ParseRGBEffects(strings.NewReader(`<xrgb><models>`))
	if !xerrors.Is(err, xerrors.ErrCodeParse) {
		t.Errorf("error = %v, want PARSE_ERROR", err)
	}
}

func TestParseRGBEffectsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "xlights_rgbeffects.xml")
	if err := os.WriteFile(path, []byte(showXML), 0o644); err != nil {
		t.Fatal(err)
	}
	set, err := ParseRGBEffectsFile(path)
	if err != nil {
		t.Fatalf("ParseRGBEffectsFile: %v", err)
	}
	if len(set.Models) != 4 {
		t.Errorf("got %d models, want 4", len(set.Models))
	}

	if _, err := ParseRGBEffectsFile(filepath.Join(dir, "nope.xml")); !xerrors.Is(err, xerrors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestStartChannel(t *testing.T) {
	tests := []struct {
		in   string
		want int // 0 means nil
	}{
		{"1", 1},
		{" 1537 ", 1537},
		{"0", 0},
		{"-4", 0},
		{"", 0},
		{"!Main:42", 42},
		{"!Main", 0},
		{"#1:1", 1},
		{"#3:10", 1030},
		{"#192.168.1.10:2:5", 515},
		{"#0:5", 0},
		{"#5", 0},
		{"@Roof:1", 0},
		{">Roof:1", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := startChannel(tt.in)
			switch {
			case tt.want == 0 && got != nil:
				t.Errorf("startChannel(%q) = %d, want nil", tt.in, *got)
			case tt.want != 0 && (got == nil || *got != tt.want):
				t.Errorf("startChannel(%q) = %v, want %d", tt.in, got, tt.want)
			}
		})
	}
}
