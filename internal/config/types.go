package config

import (
	"fmt"
	"strings"
)

// RunMode selects what a crashwatch invocation does. It is decided once at
// startup and never changes afterwards.
type RunMode int

const (
	// ModeConsole attaches to the invoking console and waits; any key stops it.
	ModeConsole RunMode = iota
	// ModeSilent waits without a console, detached from the invoking shell.
	ModeSilent
	// ModeKill asks the running instance to stop and exits.
	ModeKill
	// ModeHelp prints usage and exits.
	ModeHelp
)

func (m RunMode) String() string {
	switch m {
	case ModeConsole:
		return "console"
	case ModeSilent:
		return "silent"
	case ModeKill:
		return "kill"
	case ModeHelp:
		return "help"
	}
	return fmt.Sprintf("RunMode(%d)", int(m))
}

// Waits reports whether the mode runs the wait loop.
func (m RunMode) Waits() bool {
	return m == ModeConsole || m == ModeSilent
}

// Channel identifies one human-facing output channel.
type Channel uint8

const (
	ChannelConsole Channel = 1 << iota
	ChannelDialog
	ChannelViewer
	ChannelShell
	ChannelToast
)

// dispatchOrder is the fixed order in which channels receive a record.
var dispatchOrder = []Channel{
	ChannelConsole,
	ChannelDialog,
	ChannelViewer,
	ChannelShell,
	ChannelToast,
}

func (c Channel) String() string {
	switch c {
	case ChannelConsole:
		return "console"
	case ChannelDialog:
		return "dialog"
	case ChannelViewer:
		return "viewer"
	case ChannelShell:
		return "shell"
	case ChannelToast:
		return "toast"
	}
	return fmt.Sprintf("Channel(%d)", uint8(c))
}

// ParseChannel maps a channel name to its Channel. The names used by the
// command-line flags (messagebox, notepad, powershell, notification) are
// accepted as aliases.
func ParseChannel(name string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "console":
		return ChannelConsole, nil
	case "dialog", "messagebox":
		return ChannelDialog, nil
	case "viewer", "notepad":
		return ChannelViewer, nil
	case "shell", "powershell":
		return ChannelShell, nil
	case "toast", "notification":
		return ChannelToast, nil
	}
	return 0, fmt.Errorf("unknown output channel %q", name)
}

// ChannelSet is an immutable set of output channels.
type ChannelSet uint8

// NewChannelSet returns the set holding chs.
func NewChannelSet(chs ...Channel) ChannelSet {
	var s ChannelSet
	for _, c := range chs {
		s = s.With(c)
	}
	return s
}

// With returns a copy of s that also contains c.
func (s ChannelSet) With(c Channel) ChannelSet {
	return s | ChannelSet(c)
}

// Has reports whether c is in the set.
func (s ChannelSet) Has(c Channel) bool {
	return s&ChannelSet(c) != 0
}

// Empty reports whether no channel is selected.
func (s ChannelSet) Empty() bool {
	return s == 0
}

// Channels returns the members of s in dispatch order.
func (s ChannelSet) Channels() []Channel {
	var out []Channel
	for _, c := range dispatchOrder {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s ChannelSet) String() string {
	chs := s.Channels()
	if len(chs) == 0 {
		return "none"
	}
	names := make([]string, len(chs))
	for i, c := range chs {
		names[i] = c.String()
	}
	return strings.Join(names, ",")
}

// Style selects which representation of a record the channels receive.
type Style int

const (
	// StyleStructured renders the parsed field set as "Name: value" lines.
	StyleStructured Style = iota
	// StyleRaw passes the record's XML through untouched.
	StyleRaw
)

func (s Style) String() string {
	switch s {
	case StyleStructured:
		return "text"
	case StyleRaw:
		return "xml"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// ParseStyle maps a style name to its Style.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "structured", "":
		return StyleStructured, nil
	case "xml", "raw":
		return StyleRaw, nil
	}
	return 0, fmt.Errorf("unknown output style %q", name)
}
