package render

import (
	"strings"

	"github.com/matzehuels/xwire/pkg/errors"
)

// Format is an output format name.
type Format string

const (
	FormatSVG   Format = "svg"
	FormatPNG   Format = "png"
	FormatPDF   Format = "pdf"
	FormatDOT   Format = "dot"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// DiagramFormats are the formats a diagram renders to.
var DiagramFormats = map[Format]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatDOT:  true,
	FormatJSON: true,
}

// ReportFormats are the formats an allocation report encodes to.
var ReportFormats = map[Format]bool{
	FormatTable: true,
	FormatJSON:  true,
	FormatYAML:  true,
}

// ParseFormats splits a comma-separated list, dropping blanks and
// duplicates. Every entry must be in valid.
func ParseFormats(s string, valid map[Format]bool) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" || seen[f] {
			continue
		}
		if !valid[f] {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %s", f)
		}
		seen[f] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "no output format given")
	}
	return out, nil
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatDOT:
		return "text/vnd.graphviz"
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Binary reports whether f should not be written to a terminal.
func (f Format) Binary() bool {
	return f == FormatPNG || f == FormatPDF
}
