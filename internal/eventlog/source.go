// Package eventlog subscribes to crash-class records as they are written.
//
// On Windows the subscription is a live wevtapi query against the
// Application channel. Elsewhere a spool directory stands in for the log:
// every XML record file renamed into it is one new event.
//
// Both backends deliver future records only, hand them out one at a time
// through Next until ErrExhausted, and keep a manual-reset notification that
// the caller re-arms with Rearm after draining.
package eventlog

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/blackwell-systems/crashwatch/internal/record"
)

// ErrExhausted means no record is available right now. It is not a failure.
var ErrExhausted = errors.New("no more records")

// Query selects the channel and severity to subscribe to.
type Query struct {
	Channel string
	Level   int
}

// CrashQuery is the only query crashwatch uses: errors in the Application log.
var CrashQuery = Query{Channel: "Application", Level: 2}

// XPath returns the structured query understood by the Windows event log.
func (q Query) XPath() string {
	return fmt.Sprintf("*[System[(Level=%d)]]", q.Level)
}

// Matches reports whether ev belongs to the query.
func (q Query) Matches(ev *record.Event) bool {
	if ev.Channel != q.Channel {
		return false
	}
	lvl, err := strconv.Atoi(ev.Level)
	return err == nil && lvl == q.Level
}

// Options carries backend-specific settings.
type Options struct {
	// SpoolDir is the directory watched by the spool backend.
	SpoolDir string
}
