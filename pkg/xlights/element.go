package xlights

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	xerrors "github.com/matzehuels/xwire/pkg/errors"
)

// element is a generic XML node. Both xLights formats vary too much in
// attribute spelling to map onto tagged structs.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

// attr returns the first non-empty attribute among names.
func (e *element) attr(names ...string) string {
	for _, n := range names {
		for _, a := range e.Attrs {
			if a.Name.Local == n && strings.TrimSpace(a.Value) != "" {
				return strings.TrimSpace(a.Value)
			}
		}
	}
	return ""
}

// children returns the direct children named name.
func (e *element) children(name string) []element {
	var out []element
	for _, c := range e.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// child returns the first direct child named name.
func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

func decode(r io.Reader) (*element, error) {
	var root element
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeParse, err, "invalid XML")
	}
	return &root, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, xerrors.Wrap(xerrors.ErrCodeFileNotFound, err, "file not found: %s", path)
	}
	if err != nil {
		return nil, xerrors.Wrap(xerrors.ErrCodeParse, err, "open %s", path)
	}
	return f, nil
}

// leadingInt parses the leading decimal digits of s ("12px" -> 12).
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

func intOr(s string, def int) int {
	if n, ok := leadingInt(s); ok {
		return n
	}
	return def
}
