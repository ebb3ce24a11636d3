package output

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/crashwatch/internal/config"
)

// Launcher opens a file in another program without waiting for it.
type Launcher interface {
	// OpenViewer opens path in a text viewer.
	OpenViewer(path string) error
	// OpenShell opens an interactive shell window showing path.
	OpenShell(path string) error
}

// Platform bundles the desktop integrations of the host OS.
type Platform struct {
	Launcher Launcher
	Dialog   Dialog
	Notifier Notifier
	// TempDir receives viewer and shell files. Empty means the system
	// temp dir.
	TempDir string
}

// Sinks builds the sink for every channel in channels.
func Sinks(channels config.ChannelSet, stdout io.Writer, p Platform, log zerolog.Logger) map[config.Channel]Sink {
	sinks := make(map[config.Channel]Sink, len(channels.Channels()))
	for _, ch := range channels.Channels() {
		switch ch {
		case config.ChannelConsole:
			sinks[ch] = NewConsoleSink(stdout)
		case config.ChannelDialog:
			sinks[ch] = NewDialogSink(p.Dialog, log)
		case config.ChannelViewer:
			sinks[ch] = NewFileSink(p.TempDir, p.Launcher.OpenViewer)
		case config.ChannelShell:
			sinks[ch] = NewFileSink(p.TempDir, p.Launcher.OpenShell)
		case config.ChannelToast:
			sinks[ch] = NewToastSink(p.Notifier)
		}
	}
	return sinks
}

// startDetached starts name and reaps it in the background.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	go cmd.Wait()
	return nil
}

// runQuiet runs name to completion and reports its combined output on
// failure.
func runQuiet(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("%s: %w: %s", name, err, out)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
