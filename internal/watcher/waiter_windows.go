//go:build windows

package watcher

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/blackwell-systems/crashwatch/internal/console"
	"github.com/blackwell-systems/crashwatch/internal/eventlog"
	"github.com/blackwell-systems/crashwatch/internal/instance"
)

// HandleWaiter waits on kernel objects. The stop event comes first so
// WaitForMultipleObjects reports it when several objects are signaled.
type HandleWaiter struct {
	handles []windows.Handle
	input   *console.Input
}

// NewWaiter waits on the instance event, the console input when in is
// non-nil, and the subscription's signal event.
func NewWaiter(inst *instance.Instance, sub *eventlog.Subscription, in *console.Input) Waiter {
	w := &HandleWaiter{handles: []windows.Handle{inst.WaitHandle()}, input: in}
	if in != nil {
		w.handles = append(w.handles, in.WaitHandle())
	}
	w.handles = append(w.handles, sub.WaitHandle())
	return w
}

func (w *HandleWaiter) Wait() (Wake, error) {
	ev, err := windows.WaitForMultipleObjects(w.handles, false, windows.INFINITE)
	if err != nil {
		return 0, fmt.Errorf("WaitForMultipleObjects: %w", err)
	}

	i := int(ev - windows.WAIT_OBJECT_0)
	switch {
	case i == 0:
		return WakeStop, nil
	case w.input != nil && i == 1:
		in, err := w.input.Read()
		if err != nil {
			return 0, err
		}
		if in.Key {
			return WakeKey, nil
		}
		return WakeInput, nil
	case i == len(w.handles)-1:
		return WakeAvailable, nil
	}
	return 0, fmt.Errorf("unexpected wait result %#x", ev)
}
