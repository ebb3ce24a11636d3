//go:build !windows && !darwin

package output

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// DefaultPlatform returns the freedesktop integrations.
func DefaultPlatform() Platform {
	return Platform{
		Launcher: xdgLauncher{},
		Dialog:   zenityDialog{},
		Notifier: notifySend{},
	}
}

func terminalEmulator() string {
	if t := os.Getenv("TERMINAL"); t != "" {
		return t
	}
	return "x-terminal-emulator"
}

func viewerCommand(path string) []string {
	return []string{"xdg-open", path}
}

func shellCommand(path string) []string {
	return []string{terminalEmulator(), "-e", "less", path}
}

func dialogCommand(title, text string) []string {
	return []string{"zenity", "--error", "--no-markup", "--title=" + title, "--text=" + text}
}

func notifyCommand(title, body string) []string {
	return []string{"notify-send", "--app-name=crashwatch", "--urgency=critical", title, body}
}

type xdgLauncher struct{}

func (xdgLauncher) OpenViewer(path string) error {
	c := viewerCommand(path)
	return startDetached(c[0], c[1:]...)
}

func (xdgLauncher) OpenShell(path string) error {
	c := shellCommand(path)
	return startDetached(c[0], c[1:]...)
}

type zenityDialog struct{}

// Show blocks until the dialog is dismissed. A non-zero exit only means
// the dialog was closed rather than confirmed.
func (zenityDialog) Show(title, text string) error {
	c := dialogCommand(title, text)
	err := exec.Command(c[0], c[1:]...).Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("zenity: %w", err)
	}
	return nil
}

type notifySend struct{}

// Register checks that notifications can be posted at all.
func (notifySend) Register() error {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return fmt.Errorf("notifications unavailable: %w", err)
	}
	return nil
}

func (notifySend) Notify(title, body string) error {
	c := notifyCommand(title, body)
	return runQuiet(c[0], c[1:]...)
}

func (notifySend) Cleanup() error { return nil }
