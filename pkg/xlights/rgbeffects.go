package xlights

import (
	"io"
	"sort"
	"strings"

	"github.com/matzehuels/xwire/pkg/alloc"
)

// ModelSet is the controller-connected model inventory of an
// xlights_rgbeffects.xml file.
type ModelSet struct {
	Models      []alloc.Model                `json:"models" yaml:"models"`
	Controllers map[string]*ControllerModels `json:"controllers" yaml:"controllers"`

	// Ignored counts models without any controller connection.
	Ignored int `json:"ignored" yaml:"ignored"`
}

// ControllerModels indexes one controller's models by xLights port.
type ControllerModels struct {
	Ports  map[int][]string `json:"ports" yaml:"ports"`
	Pixels int              `json:"pixels" yaml:"pixels"`
}

// ForController returns the models connected to the named controller, in
// file order.
func (s *ModelSet) ForController(name string) []alloc.Model {
	var out []alloc.Model
	for _, m := range s.Models {
		if m.Controller == name {
			out = append(out, m)
		}
	}
	return out
}

// ControllerNames returns the connected controller names, sorted.
func (s *ModelSet) ControllerNames() []string {
	names := make([]string, 0, len(s.Controllers))
	for n := range s.Controllers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether no model is connected to a controller.
func (s *ModelSet) Empty() bool { return len(s.Models) == 0 }

// ParseRGBEffects reads models from an xlights_rgbeffects.xml document.
// Only models under <xrgb><models> are read; a document without that
// section yields an empty set.
func ParseRGBEffects(r io.Reader) (*ModelSet, error) {
	root, err := decode(r)
	if err != nil {
		return nil, err
	}

	set := &ModelSet{Models: []alloc.Model{}, Controllers: map[string]*ControllerModels{}}
	if root.XMLName.Local != "xrgb" {
		return set, nil
	}
	section := root.child("models")
	if section == nil {
		return set, nil
	}

	for _, e := range section.children("model") {
		m, ok := parseModel(&e)
		if !ok {
			set.Ignored++
			continue
		}
		set.add(m)
	}
	return set, nil
}

// ParseRGBEffectsFile reads models from the file at path.
func ParseRGBEffectsFile(path string) (*ModelSet, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRGBEffects(f)
}

func (s *ModelSet) add(m alloc.Model) {
	s.Models = append(s.Models, m)
	cm := s.Controllers[m.Controller]
	if cm == nil {
		cm = &ControllerModels{Ports: map[int][]string{}}
		s.Controllers[m.Controller] = cm
	}
	cm.Pixels += m.PixelCount
	if m.SourcePort != nil {
		cm.Ports[*m.SourcePort] = append(cm.Ports[*m.SourcePort], m.Name)
	}
}

// parseModel reads one <model>. It reports false for models that are not
// connected to a controller.
func parseModel(e *element) (alloc.Model, bool) {
	conn := e.child("ControllerConnection")

	controller := e.attr("Controller", "ControllerConnection")
	if controller == "" && conn != nil {
		controller = conn.attr("Controller", "Name", "name")
	}
	if controller == "" {
		return alloc.Model{}, false
	}

	m := alloc.Model{
		Name:         e.attr("name", "Name"),
		Controller:   controller,
		StartChannel: startChannel(e.attr("StartChannel", "startChannel")),
		PixelCount:   pixelCount(e),
	}

	port := e.attr("Port", "port")
	remote := e.attr("SmartRemote", "smartRemote")
	if conn != nil {
		if port == "" {
			port = conn.attr("Port", "port")
		}
		if remote == "" {
			remote = conn.attr("SmartRemote", "smartRemote")
		}
	}
	m.SourcePort = positive(port)
	m.SmartRemote = positive(remote)
	return m, true
}

// startChannel resolves the StartChannel attribute to an absolute channel.
//
//	"1537"          absolute
//	"!Ctrl:N"       controller-relative, N
//	"#U:C"          universe U, channel C
//	"#ip:U:C"       same, the address is ignored
//
// Model-relative forms ("@Other:N", ">Other:N") cannot be resolved without
// the referenced model and yield nil.
func startChannel(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch s[0] {
	case '!':
		i := strings.LastIndexByte(s, ':')
		if i < 0 {
			return nil
		}
		return positive(s[i+1:])
	case '#':
		parts := strings.Split(s[1:], ":")
		if len(parts) < 2 {
			return nil
		}
		u, uok := leadingInt(parts[len(parts)-2])
		c, cok := leadingInt(parts[len(parts)-1])
		if !uok || !cok || u < 1 || c < 1 {
			return nil
		}
		return alloc.Ptr((u-1)*alloc.ChannelsPerUniverse + c)
	case '@', '>':
		return nil
	}
	return positive(s)
}

func pixelCount(e *element) int {
	if n, ok := leadingInt(e.attr("PixelCount", "pixelCount")); ok && n > 0 {
		return n
	}
	p1, ok1 := leadingInt(e.attr("parm1"))
	p2, ok2 := leadingInt(e.attr("parm2"))
	if !ok1 || p1 < 0 {
		return 0
	}
	if !ok2 || p2 < 1 {
		p2 = 1
	}
	return p1 * p2
}

// positive parses s and returns nil unless it is a positive integer.
func positive(s string) *int {
	n, ok := leadingInt(s)
	if !ok || n < 1 {
		return nil
	}
	return alloc.Ptr(n)
}
