package xlights

import (
	"fmt"
	"io"
	"strings"

	"github.com/matzehuels/xwire/pkg/alloc"
)

// DefaultDifferentialTypes are the controller families that drive
// differential boards instead of pixel ports.
var DefaultDifferentialTypes = []string{"hinkspix"}

// Controller is a controller entry from xlights_networks.xml.
type Controller struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type" yaml:"type"`
	Vendor   string   `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Model    string   `json:"model,omitempty" yaml:"model,omitempty"`
	Protocol string   `json:"protocol" yaml:"protocol"`
	Outputs  []Output `json:"outputs" yaml:"outputs"`
}

// Output is one universe or port of a controller.
type Output struct {
	Number       int    `json:"number" yaml:"number"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	NullPixels   int    `json:"nullPixels" yaml:"nullPixels"`
	StartChannel int    `json:"startChannel" yaml:"startChannel"`
	Channels     int    `json:"channels" yaml:"channels"`
	Protocol     string `json:"protocol" yaml:"protocol"`
}

// MaxPixels returns how many RGB pixels fit the output's channels.
func (o Output) MaxPixels() int {
	return o.Channels / alloc.ChannelsPerPixel
}

// IsDifferential reports whether the controller type matches one of the
// given families (case-insensitive substring). Nil families means
// DefaultDifferentialTypes.
func (c Controller) IsDifferential(families []string) bool {
	if families == nil {
		families = DefaultDifferentialTypes
	}
	t := strings.ToLower(c.Type)
	for _, f := range families {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" && strings.Contains(t, f) {
			return true
		}
	}
	return false
}

// Channels returns the total channel count across outputs.
func (c Controller) Channels() int {
	total := 0
	for _, o := range c.Outputs {
		total += o.Channels
	}
	return total
}

// ParseNetworks reads controllers from an xlights_networks.xml document.
//
// Four layouts are recognized, checked in order:
//
//	<Networks><Network><Controller/></Network></Networks>   (first Network only)
//	<Networks><Controller/></Networks>
//	<controllerconnections><controller/></controllerconnections>
//	<Controller/>                                            (single root)
//
// A document in none of these layouts yields no controllers and no error.
func ParseNetworks(r io.Reader) ([]Controller, error) {
	root, err := decode(r)
	if err != nil {
		return nil, err
	}

	var raw []element
	switch root.XMLName.Local {
	case "Networks":
		if nw := root.child("Network"); nw != nil && len(nw.children("Controller")) > 0 {
			raw = nw.children("Controller")
		} else {
			raw = root.children("Controller")
		}
	case "controllerconnections":
		raw = root.children("controller")
	case "Controller":
		raw = []element{*root}
	}

	controllers := make([]Controller, 0, len(raw))
	for i := range raw {
		controllers = append(controllers, parseController(&raw[i]))
	}
	return controllers, nil
}

// ParseNetworksFile reads controllers from the file at path.
func ParseNetworksFile(path string) ([]Controller, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseNetworks(f)
}

func parseController(e *element) Controller {
	c := Controller{
		Name:     e.attr("Name", "name"),
		Vendor:   e.attr("Vendor", "vendor"),
		Model:    e.attr("Model", "model"),
		Protocol: e.attr("Protocol", "protocol"),
	}
	if c.Name == "" {
		c.Name = "Unknown"
	}
	c.Type = strings.TrimSpace(c.Vendor + " " + c.Model)
	if c.Type == "" {
		c.Type = e.attr("Type", "type")
	}
	if c.Type == "" {
		c.Type = "Unknown"
	}
	if c.Protocol == "" {
		c.Protocol = "ws2811"
	}

	var outs []element
	for _, name := range []string{"Output", "output", "Outputs", "network"} {
		if outs = e.children(name); len(outs) > 0 {
			break
		}
	}

	c.Outputs = make([]Output, 0, len(outs))
	for i := range outs {
		o := &outs[i]
		num := intOr(o.attr("Output", "output", "Number", "number", "BaudRate", "baudRate"), i+1)
		out := Output{
			Number:       num,
			Description:  o.attr("Description", "description"),
			NullPixels:   intOr(o.attr("NullPixels", "nullPixels"), 0),
			StartChannel: intOr(o.attr("StartChannel", "startChannel"), 0),
			Channels:     intOr(o.attr("Channels", "channels", "MaxChannels", "maxChannels"), 0),
			Protocol:     o.attr("Protocol", "protocol", "NetworkType", "networkType"),
		}
		if out.Description == "" {
			out.Description = fmt.Sprintf("Universe %d", num)
		}
		if out.Protocol == "" {
			out.Protocol = c.Protocol
		}
		c.Outputs = append(c.Outputs, out)
	}
	return c
}

// FindController returns the controller with the given name.
func FindController(controllers []Controller, name string) (Controller, bool) {
	for _, c := range controllers {
		if c.Name == name {
			return c, true
		}
	}
	return Controller{}, false
}
