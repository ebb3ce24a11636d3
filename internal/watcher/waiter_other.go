//go:build !windows

package watcher

import (
	"github.com/blackwell-systems/crashwatch/internal/console"
	"github.com/blackwell-systems/crashwatch/internal/eventlog"
	"github.com/blackwell-systems/crashwatch/internal/instance"
)

// NewWaiter waits on the instance's signal, the console input when in is
// non-nil, and the subscription's availability signal.
func NewWaiter(inst *instance.Instance, sub *eventlog.Subscription, in *console.Input) Waiter {
	w := &ChanWaiter{
		Stop:      inst.Done(),
		Available: sub.Ready(),
	}
	if in != nil {
		w.Input = in.Events()
	}
	return w
}
