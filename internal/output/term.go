package output

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/crashwatch/internal/record"
)

const (
	colorReset = "\033[0m"
	colorGray  = "\033[90m"
	colorRed   = "\033[31m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted on w.
// It checks that w is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return writerIsTTY(w)
}

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

var knownFields = func() map[string]bool {
	m := make(map[string]bool, len(record.FieldOrder))
	for _, n := range record.FieldOrder {
		m[string(n)] = true
	}
	return m
}()

// colorize dims the field names of "Name: value" lines and marks the
// exception code. Lines that are not field lines, such as raw XML, pass
// through unchanged.
func colorize(payload string) string {
	lines := strings.SplitAfter(payload, "\n")
	var sb strings.Builder
	sb.Grow(len(payload) + 16*len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ": ")
		if !ok || !knownFields[name] {
			sb.WriteString(line)
			continue
		}
		sb.WriteString(colorGray + name + ":" + colorReset + " ")
		if name == string(record.ExceptionCode) {
			nl := strings.HasSuffix(value, "\n")
			sb.WriteString(colorRed + strings.TrimSuffix(value, "\n") + colorReset)
			if nl {
				sb.WriteByte('\n')
			}
			continue
		}
		sb.WriteString(value)
	}
	return sb.String()
}
