// Package console provides the interactive input source used in console
// mode: a keypress ends the watcher, anything else (a window resize, a
// focus change, mouse input) is reported but ignored by the caller.
package console

import (
	"os"

	"github.com/mattn/go-isatty"
)

// Event is one unit of console input.
type Event struct {
	// Key is true for a key press. Other input has Key false.
	Key bool
}

// IsInteractive reports whether stdin is attached to a terminal.
func IsInteractive() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
