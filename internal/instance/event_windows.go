//go:build windows

package instance

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/windows"

	"github.com/blackwell-systems/crashwatch/internal/config"
)

// NamedEvent is the instance token on Windows: a named manual-reset event
// that also serves as the wake signal.
type NamedEvent struct {
	Name string
}

// DefaultRegistry returns the registry for cfg.
func DefaultRegistry(config.Config) Registry {
	return NamedEvent{Name: Name}
}

// Open opens the event with modify rights only; it never creates it.
func (e NamedEvent) Open() (Handle, error) {
	name, err := windows.UTF16PtrFromString(e.Name)
	if err != nil {
		return nil, err
	}
	h, err := windows.OpenEvent(windows.EVENT_MODIFY_STATE, false, name)
	if err != nil {
		if errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
			return nil, ErrNotRunning
		}
		return nil, fmt.Errorf("OpenEvent %s: %w", e.Name, err)
	}
	return &eventHandle{name: e.Name, h: h}, nil
}

type eventHandle struct {
	name string
	h    windows.Handle
}

func (h *eventHandle) Signal() error {
	if err := windows.SetEvent(h.h); err != nil {
		return fmt.Errorf("SetEvent: %w", err)
	}
	return nil
}

func (h *eventHandle) Describe() string { return "event " + h.name }

func (h *eventHandle) Close() error {
	if err := windows.CloseHandle(h.h); err != nil {
		return fmt.Errorf("CloseHandle: %w", err)
	}
	return nil
}

// Instance is the token and wake signal owned by the running watcher.
type Instance struct {
	name string
	h    windows.Handle

	closeOnce sync.Once
}

// Acquire creates the named event, unsignaled. It returns
// ErrAlreadyRunning when the event already exists.
func Acquire(config.Config) (*Instance, error) {
	name, err := windows.UTF16PtrFromString(Name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateEvent(nil, 1, 0, name)
	if err != nil {
		if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
			if h != 0 {
				windows.CloseHandle(h)
			}
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("CreateEvent %s: %w", Name, err)
	}
	return &Instance{name: Name, h: h}, nil
}

// WaitHandle returns the wake signal for WaitForMultipleObjects.
func (i *Instance) WaitHandle() windows.Handle {
	return i.h
}

// Describe names this watcher.
func (i *Instance) Describe() string {
	return "event " + i.name
}

// Close releases the event. Once the last handle is closed the name
// disappears and the next invocation sees no running instance.
func (i *Instance) Close() error {
	var err error
	i.closeOnce.Do(func() {
		if cerr := windows.CloseHandle(i.h); cerr != nil {
			err = fmt.Errorf("CloseHandle: %w", cerr)
		}
	})
	return err
}
