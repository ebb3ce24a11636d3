//go:build darwin || freebsd || netbsd || openbsd

package console

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TIOCGETA
	ioctlSetTermios = unix.TIOCSETA
)

// flushInput is a no-op; pending input counts as a key press here.
func flushInput(int) {}
