package watcher

import "github.com/blackwell-systems/crashwatch/internal/console"

// ChanWaiter waits on channels. A nil channel is never selected.
type ChanWaiter struct {
	Stop      <-chan struct{}
	Input     <-chan console.Event
	Available <-chan struct{}
}

// Wait blocks until a source fires. Stop is checked first and again after
// an availability wake so it wins when both are ready.
func (w *ChanWaiter) Wait() (Wake, error) {
	select {
	case <-w.Stop:
		return WakeStop, nil
	default:
	}

	select {
	case <-w.Stop:
		return WakeStop, nil
	case ev, ok := <-w.Input:
		if !ok {
			w.Input = nil
			return WakeInput, nil
		}
		if ev.Key {
			return WakeKey, nil
		}
		return WakeInput, nil
	case <-w.Available:
		select {
		case <-w.Stop:
			return WakeStop, nil
		default:
		}
		return WakeAvailable, nil
	}
}
