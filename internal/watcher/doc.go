// Package watcher runs the crash watcher's wait loop.
//
// The loop blocks without a timeout on a small fixed set of sources: the
// instance's wake signal, the record source's availability signal and, in
// console mode, the console input. On each availability wake it drains
// every pending record, hands each to the dispatcher in source order, then
// re-arms the source. The wake signal always wins over pending records and
// is only observed between drains.
//
// Key features:
//   - Exhaustive drain per wake, no batching across wakes
//   - Stop priority over available records
//   - Console key press as a local stop; other console input ignored
//   - Detached background child for silent mode
//
// Example usage:
//
//	inst, err := instance.Acquire(cfg)
//	if err != nil {
//		return err
//	}
//	defer inst.Close()
//
//	sub, err := eventlog.Subscribe(eventlog.CrashQuery, eventlog.Options{SpoolDir: cfg.SpoolDir})
//	if err != nil {
//		return err
//	}
//	defer sub.Close()
//
//	loop := watcher.NewLoop(watcher.NewWaiter(inst, sub, nil), sub, dispatcher)
//	return loop.Run()
package watcher
