// Package instance keeps crashwatch to a single running watcher per user and
// lets a later invocation ask that watcher to stop.
//
// Two named, process-external objects are involved. The instance token marks
// "a watcher is alive" and is only ever opened, never created, by other
// invocations. The wake signal tells the live watcher to stop. On Windows
// both are the same named manual-reset event; elsewhere the token is a PID
// file and the wake signal is SIGTERM to the recorded PID.
package instance

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/crashwatch/internal/config"
)

// Name is the well-known name shared by every crashwatch process of a user.
const Name = "Crashwatch_Application_Error_Notification"

var (
	// ErrNotRunning is returned by Registry.Open when no watcher is alive.
	ErrNotRunning = errors.New("no running instance")
	// ErrAlreadyRunning is returned by Acquire when another watcher owns the token.
	ErrAlreadyRunning = errors.New("another instance is already running")
)

// Messages printed for the one-shot outcomes.
const (
	MsgStopped        = "The background service has been terminated."
	MsgNotRunning     = "The background service is not running."
	MsgAlreadyRunning = "The service is already running, please kill it first."
)

// Registry opens the instance token of a running watcher.
type Registry interface {
	// Open returns a handle to the live watcher, or ErrNotRunning.
	Open() (Handle, error)
}

// Handle is an opened instance token.
type Handle interface {
	// Signal delivers the wake signal, asking the watcher to stop.
	Signal() error
	// Describe names the watcher for humans, e.g. "pid 4242".
	Describe() string
	Close() error
}

// Outcome is what an invocation does after the run-mode decision.
type Outcome int

const (
	// OutcomeStart means this process becomes the watcher.
	OutcomeStart Outcome = iota
	// OutcomeStopped means a running watcher was signaled to stop.
	OutcomeStopped
	// OutcomeNotRunning means a stop was requested but nothing runs.
	OutcomeNotRunning
	// OutcomeAlreadyRunning means a start was requested while a watcher runs.
	OutcomeAlreadyRunning
	// OutcomeHelp means usage should be printed.
	OutcomeHelp
)

// Decision is the result of DetermineRunMode.
type Decision struct {
	Mode    config.RunMode
	Outcome Outcome
	// Message is the one line to print for every outcome but OutcomeStart
	// and OutcomeHelp.
	Message string
}

// Proceed reports whether the process should go on to run the wait loop.
func (d Decision) Proceed() bool {
	return d.Outcome == OutcomeStart
}

// Controller decides the run mode against the registry.
type Controller struct {
	reg Registry
}

// NewController returns a Controller backed by reg.
func NewController(reg Registry) *Controller {
	return &Controller{reg: reg}
}

// DetermineRunMode resolves what this invocation does.
//
// Kill signals a running watcher or reports that none runs. Help touches no
// token. Start modes proceed only when no watcher is alive; an alive watcher
// is reported and left alone. Any failure other than "not running" is
// returned as an error.
func (c *Controller) DetermineRunMode(requested config.RunMode) (Decision, error) {
	d := Decision{Mode: requested}

	switch requested {
	case config.ModeHelp:
		d.Outcome = OutcomeHelp
		return d, nil

	case config.ModeKill:
		h, err := c.reg.Open()
		if errors.Is(err, ErrNotRunning) {
			d.Outcome = OutcomeNotRunning
			d.Message = MsgNotRunning
			return d, nil
		}
		if err != nil {
			return d, fmt.Errorf("failed to open instance token: %w", err)
		}
		if err := h.Signal(); err != nil {
			h.Close()
			return d, fmt.Errorf("failed to signal %s: %w", h.Describe(), err)
		}
		if err := h.Close(); err != nil {
			return d, fmt.Errorf("failed to close instance token: %w", err)
		}
		d.Outcome = OutcomeStopped
		d.Message = MsgStopped
		return d, nil

	case config.ModeConsole, config.ModeSilent:
		h, err := c.reg.Open()
		if errors.Is(err, ErrNotRunning) {
			d.Outcome = OutcomeStart
			return d, nil
		}
		if err != nil {
			return d, fmt.Errorf("failed to open instance token: %w", err)
		}
		if err := h.Close(); err != nil {
			return d, fmt.Errorf("failed to close instance token: %w", err)
		}
		d.Outcome = OutcomeAlreadyRunning
		d.Message = MsgAlreadyRunning
		return d, nil
	}

	return d, fmt.Errorf("unknown run mode %v", requested)
}
