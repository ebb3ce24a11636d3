//go:build windows

package eventlog

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/blackwell-systems/crashwatch/internal/record"
)

var (
	modwevtapi = windows.NewLazySystemDLL("wevtapi.dll")

	procEvtSubscribe = modwevtapi.NewProc("EvtSubscribe")
	procEvtNext      = modwevtapi.NewProc("EvtNext")
	procEvtRender    = modwevtapi.NewProc("EvtRender")
	procEvtClose     = modwevtapi.NewProc("EvtClose")
)

const (
	evtSubscribeToFutureEvents = 1
	evtRenderEventXML          = 1
)

// EventLog is a live subscription to the Windows event log. The event log
// service sets the signal event whenever records are queued for it.
type EventLog struct {
	signal windows.Handle
	sub    uintptr
}

// OpenEventLog subscribes to future records matching q.
func OpenEventLog(q Query) (*EventLog, error) {
	// Manual reset, initially signaled.
	signal, err := windows.CreateEvent(nil, 1, 1, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription event: %w", err)
	}

	channel, err := windows.UTF16PtrFromString(q.Channel)
	if err != nil {
		windows.CloseHandle(signal)
		return nil, err
	}
	xpath, err := windows.UTF16PtrFromString(q.XPath())
	if err != nil {
		windows.CloseHandle(signal)
		return nil, err
	}

	sub, _, callErr := procEvtSubscribe.Call(
		0,
		uintptr(signal),
		uintptr(unsafe.Pointer(channel)),
		uintptr(unsafe.Pointer(xpath)),
		0,
		0,
		0,
		evtSubscribeToFutureEvents,
	)
	if sub == 0 {
		windows.CloseHandle(signal)
		return nil, fmt.Errorf("EvtSubscribe %s: %w", q.Channel, callErr)
	}

	return &EventLog{signal: signal, sub: sub}, nil
}

// WaitHandle returns the manual-reset event signaled on new records.
func (l *EventLog) WaitHandle() windows.Handle {
	return l.signal
}

// Next returns the next queued record, or ErrExhausted.
func (l *EventLog) Next() (record.Record, error) {
	var (
		h        uintptr
		returned uint32
	)
	ok, _, callErr := procEvtNext.Call(
		l.sub,
		1,
		uintptr(unsafe.Pointer(&h)),
		uintptr(windows.INFINITE),
		0,
		uintptr(unsafe.Pointer(&returned)),
	)
	if ok == 0 {
		if errors.Is(callErr, windows.ERROR_NO_MORE_ITEMS) {
			return record.Record{}, ErrExhausted
		}
		return record.Record{}, fmt.Errorf("EvtNext: %w", callErr)
	}
	defer evtClose(h)

	xml, err := renderXML(h)
	if err != nil {
		return record.Record{}, err
	}
	return record.New(xml), nil
}

func renderXML(h uintptr) ([]byte, error) {
	var used, props uint32
	ok, _, callErr := procEvtRender.Call(
		0, h, evtRenderEventXML,
		0, 0,
		uintptr(unsafe.Pointer(&used)),
		uintptr(unsafe.Pointer(&props)),
	)
	if ok != 0 || !errors.Is(callErr, windows.ERROR_INSUFFICIENT_BUFFER) {
		return nil, fmt.Errorf("EvtRender size probe: %w", callErr)
	}

	buf := make([]uint16, used/2)
	ok, _, callErr = procEvtRender.Call(
		0, h, evtRenderEventXML,
		uintptr(used),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&used)),
		uintptr(unsafe.Pointer(&props)),
	)
	if ok == 0 {
		return nil, fmt.Errorf("EvtRender: %w", callErr)
	}
	return []byte(windows.UTF16ToString(buf)), nil
}

// Rearm resets the signal event after a full drain.
func (l *EventLog) Rearm() error {
	if err := windows.ResetEvent(l.signal); err != nil {
		return fmt.Errorf("ResetEvent: %w", err)
	}
	return nil
}

// Close cancels the subscription and releases the signal event.
func (l *EventLog) Close() error {
	var errs []error
	if l.sub != 0 {
		if err := evtClose(l.sub); err != nil {
			errs = append(errs, err)
		}
		l.sub = 0
	}
	if l.signal != 0 {
		if err := windows.CloseHandle(l.signal); err != nil {
			errs = append(errs, fmt.Errorf("CloseHandle: %w", err))
		}
		l.signal = 0
	}
	return errors.Join(errs...)
}

func evtClose(h uintptr) error {
	ok, _, callErr := procEvtClose.Call(h)
	if ok == 0 {
		return fmt.Errorf("EvtClose: %w", callErr)
	}
	return nil
}
