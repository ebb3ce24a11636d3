package watcher

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/crashwatch/internal/eventlog"
	"github.com/blackwell-systems/crashwatch/internal/metrics"
	"github.com/blackwell-systems/crashwatch/internal/record"
)

// Wake is the reason Wait returned.
type Wake int

const (
	// WakeStop means the wake signal was delivered by another invocation.
	WakeStop Wake = iota
	// WakeKey means a key was pressed on the console.
	WakeKey
	// WakeInput means other console input arrived; it is ignored.
	WakeInput
	// WakeAvailable means the record source has at least one new record.
	WakeAvailable
)

func (w Wake) String() string {
	switch w {
	case WakeStop:
		return "stop"
	case WakeKey:
		return "key"
	case WakeInput:
		return "input"
	case WakeAvailable:
		return "available"
	}
	return fmt.Sprintf("Wake(%d)", int(w))
}

// Waiter blocks until one of the loop's wait sources fires. When the stop
// source and the record source are both signaled it reports WakeStop.
type Waiter interface {
	Wait() (Wake, error)
}

// Source is the record source as seen by the loop.
type Source interface {
	// Next returns the next pending record or eventlog.ErrExhausted.
	Next() (record.Record, error)
	// Rearm clears the availability signal.
	Rearm() error
}

// Dispatcher delivers one record to every selected output channel.
type Dispatcher interface {
	Dispatch(record.Record) error
}

// Loop is the wait loop. It is single-threaded: records are read and
// dispatched on the goroutine calling Run.
type Loop struct {
	waiter     Waiter
	source     Source
	dispatcher Dispatcher
	log        zerolog.Logger
	idle       func()
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithIdle sets a hook called before the first wait and after every drain
// that delivered records.
func WithIdle(f func()) Option {
	return func(l *Loop) { l.idle = f }
}

// NewLoop returns a Loop reading from src and delivering through d.
func NewLoop(w Waiter, src Source, d Dispatcher, opts ...Option) *Loop {
	l := &Loop{
		waiter:     w,
		source:     src,
		dispatcher: d,
		log:        zerolog.Nop(),
		idle:       func() {},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run waits until stopped. It returns nil after a stop or a key press and
// the first error otherwise; nothing is retried.
func (l *Loop) Run() error {
	l.idle()
	for {
		wake, err := l.waiter.Wait()
		if err != nil {
			return fmt.Errorf("wait failed: %w", err)
		}
		metrics.ObserveWake(wake.String())

		switch wake {
		case WakeStop:
			l.log.Info().Msg("stop requested")
			return nil
		case WakeKey:
			l.log.Info().Msg("key pressed")
			return nil
		case WakeInput:
			l.log.Debug().Msg("ignoring console input")
		case WakeAvailable:
			n, err := l.drain()
			metrics.AddDrained(n)
			if err != nil {
				return err
			}
			l.log.Debug().Int("records", n).Msg("drained")
			// Sources start signaled; an empty first wake is not a drain.
			if n > 0 {
				l.idle()
			}
		default:
			return fmt.Errorf("unknown wake %v", wake)
		}
	}
}

// drain delivers every pending record, re-arms the source and drains once
// more to pick up records that arrived before the re-arm. It stops when a
// pass after a re-arm finds nothing.
func (l *Loop) drain() (int, error) {
	n, err := l.drainPass()
	total := n
	for err == nil {
		if rerr := l.source.Rearm(); rerr != nil {
			return total, fmt.Errorf("failed to re-arm record source: %w", rerr)
		}
		n, err = l.drainPass()
		total += n
		if err == nil && n == 0 {
			return total, nil
		}
	}
	return total, err
}

func (l *Loop) drainPass() (int, error) {
	n := 0
	for {
		r, err := l.source.Next()
		if errors.Is(err, eventlog.ErrExhausted) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("failed to read record: %w", err)
		}
		if err := l.dispatcher.Dispatch(r); err != nil {
			return n, fmt.Errorf("failed to deliver record: %w", err)
		}
		n++
	}
}
