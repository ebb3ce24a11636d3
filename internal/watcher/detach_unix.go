//go:build !windows

package watcher

import "syscall"

func detachAttrs() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true, // Create new session
	}
}
