package console

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

func flushInput(fd int) {
	unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH)
}
