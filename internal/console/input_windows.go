//go:build windows

package console

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                    = windows.NewLazySystemDLL("kernel32.dll")
	procAttachConsole           = kernel32.NewProc("AttachConsole")
	procFlushConsoleInputBuffer = kernel32.NewProc("FlushConsoleInputBuffer")
	procReadConsoleInputW       = kernel32.NewProc("ReadConsoleInputW")
)

const (
	attachParentProcess = ^uint32(0)
	keyEvent            = 0x0001
)

// inputRecord mirrors INPUT_RECORD. For KEY_EVENT the union starts with
// the BOOL bKeyDown.
type inputRecord struct {
	EventType uint16
	_         uint16
	Event     [16]byte
}

// Attach binds the process to the console of its parent so console output
// is visible when started from a terminal. A process that already has a
// console is left as it is.
func Attach() error {
	r, _, err := procAttachConsole.Call(uintptr(attachParentProcess))
	if r == 0 {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return nil
		}
		return fmt.Errorf("AttachConsole: %w", err)
	}

	out, err := os.OpenFile("CONOUT$", os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open console output: %w", err)
	}
	os.Stdout = out
	os.Stderr = out
	if in, err := os.OpenFile("CONIN$", os.O_RDWR, 0); err == nil {
		os.Stdin = in
	}
	return nil
}

// Input reads console input records from stdin. Its handle is signaled
// while input is pending, so it can sit in a WaitForMultipleObjects set.
type Input struct {
	h windows.Handle
}

// Open returns the console input with any pending input discarded.
func Open() (*Input, error) {
	h, err := windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	if err != nil {
		return nil, fmt.Errorf("GetStdHandle: %w", err)
	}
	if h == 0 || h == windows.InvalidHandle {
		return nil, errors.New("no console input")
	}
	if r, _, err := procFlushConsoleInputBuffer.Call(uintptr(h)); r == 0 {
		return nil, fmt.Errorf("FlushConsoleInputBuffer: %w", err)
	}
	return &Input{h: h}, nil
}

// WaitHandle returns the handle to wait on.
func (in *Input) WaitHandle() windows.Handle {
	return in.h
}

// Read consumes one pending input record and reports it.
func (in *Input) Read() (Event, error) {
	var rec inputRecord
	var n uint32
	r, _, err := procReadConsoleInputW.Call(
		uintptr(in.h),
		uintptr(unsafe.Pointer(&rec)),
		1,
		uintptr(unsafe.Pointer(&n)),
	)
	if r == 0 {
		return Event{}, fmt.Errorf("ReadConsoleInput: %w", err)
	}
	if n == 0 || rec.EventType != keyEvent {
		return Event{}, nil
	}
	keyDown := *(*int32)(unsafe.Pointer(&rec.Event[0]))
	return Event{Key: keyDown != 0}, nil
}

// Close does nothing; the standard handle belongs to the process.
func (in *Input) Close() error { return nil }
