//go:build !windows

package eventlog

// Subscription is the platform's record source.
type Subscription = Spool

// Subscribe opens the spool directory from opts.
func Subscribe(q Query, opts Options) (*Subscription, error) {
	return OpenSpool(opts.SpoolDir, q)
}
