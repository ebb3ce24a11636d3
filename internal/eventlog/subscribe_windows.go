//go:build windows

package eventlog

// Subscription is the platform's record source.
type Subscription = EventLog

// Subscribe opens a live event log subscription. opts is unused on Windows.
func Subscribe(q Query, _ Options) (*Subscription, error) {
	return OpenEventLog(q)
}
