//go:build linux || darwin || freebsd || netbsd || openbsd

package console

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// Attach is a no-op here: the process already writes to the terminal it
// was started from.
func Attach() error { return nil }

// Input delivers console events on a channel. The terminal is switched to
// non-canonical, no-echo mode so a single key press arrives without Enter;
// signal generation stays on so Ctrl+C still raises SIGINT.
type Input struct {
	fd     int
	saved  *unix.Termios
	events chan Event
	winch  chan os.Signal
	quit   chan struct{}

	sendMu    sync.Mutex
	closeOnce sync.Once
}

// Open starts reading stdin. When stdin is not a terminal the returned
// Input never delivers an event.
func Open() (*Input, error) {
	in := &Input{
		fd:     int(os.Stdin.Fd()),
		events: make(chan Event, 1),
		winch:  make(chan os.Signal, 1),
		quit:   make(chan struct{}),
	}
	if !IsInteractive() {
		return in, nil
	}

	saved, err := unix.IoctlGetTermios(in.fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("failed to read terminal mode: %w", err)
	}
	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(in.fd, ioctlSetTermios, &raw); err != nil {
		return nil, fmt.Errorf("failed to set terminal mode: %w", err)
	}
	in.saved = saved

	// Discard anything typed before the watcher started.
	flushInput(in.fd)

	signal.Notify(in.winch, syscall.SIGWINCH)
	go in.readKeys()
	go in.forwardResize()

	return in, nil
}

func (in *Input) readKeys() {
	buf := make([]byte, 64)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			in.send(Event{Key: true})
		}
		if err != nil {
			return
		}
	}
}

func (in *Input) forwardResize() {
	for {
		select {
		case <-in.winch:
			in.send(Event{Key: false})
		case <-in.quit:
			return
		}
	}
}

// send never blocks. Only one event is kept pending; a key press replaces a
// pending non-key event so that it is never lost behind a resize.
func (in *Input) send(ev Event) {
	in.sendMu.Lock()
	defer in.sendMu.Unlock()

	select {
	case in.events <- ev:
		return
	case <-in.quit:
		return
	default:
	}
	if !ev.Key {
		return
	}

	select {
	case pending := <-in.events:
		if pending.Key {
			ev = pending
		}
	default:
	}
	// Senders are serialized, so the buffer has room now.
	select {
	case in.events <- ev:
	default:
	}
}

// Events returns the input channel.
func (in *Input) Events() <-chan Event {
	return in.events
}

// Close restores the terminal mode.
func (in *Input) Close() error {
	var err error
	in.closeOnce.Do(func() {
		signal.Stop(in.winch)
		close(in.quit)
		if in.saved != nil {
			if serr := unix.IoctlSetTermios(in.fd, ioctlSetTermios, in.saved); serr != nil {
				err = fmt.Errorf("failed to restore terminal mode: %w", serr)
			}
		}
	})
	return err
}
