package record

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/crashwatch/internal/config"
)

// FormatFields renders the present fields as "Name: value" lines. With terse
// set, only TerseFields are included.
func FormatFields(f Fields, terse bool) string {
	var sb strings.Builder
	sb.Grow(800)
	for _, field := range f.Present() {
		if terse && !IsTerse(field.Name) {
			continue
		}
		sb.WriteString(string(field.Name))
		sb.WriteString(": ")
		sb.WriteString(field.Value)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Rendering holds both renderings of one record in one style.
type Rendering struct {
	Full  string
	Terse string
}

// Render parses r at most once and returns its full and terse renderings.
// The raw style passes the XML through unchanged for both.
func Render(r Record, style config.Style) (Rendering, error) {
	switch style {
	case config.StyleRaw:
		x := r.XML()
		return Rendering{Full: x, Terse: x}, nil
	case config.StyleStructured:
		ev, err := r.Parse()
		if err != nil {
			return Rendering{}, err
		}
		return Rendering{
			Full:  FormatFields(ev.Fields, false),
			Terse: FormatFields(ev.Fields, true),
		}, nil
	}
	return Rendering{}, fmt.Errorf("unsupported output style %v", style)
}

// Format renders r in the given style.
func Format(r Record, style config.Style, terse bool) (string, error) {
	out, err := Render(r, style)
	if err != nil {
		return "", err
	}
	if terse {
		return out.Terse, nil
	}
	return out.Full, nil
}
