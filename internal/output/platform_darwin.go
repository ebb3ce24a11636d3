//go:build darwin

package output

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultPlatform returns the macOS integrations.
func DefaultPlatform() Platform {
	return Platform{
		Launcher: openLauncher{},
		Dialog:   alertDialog{},
		Notifier: osaNotifier{},
	}
}

// appleString quotes s as an AppleScript string literal.
func appleString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func viewerCommand(path string) []string {
	return []string{"open", "-t", path}
}

func shellCommand(path string) []string {
	script := `tell application "Terminal" to do script "less " & quoted form of ` + appleString(path)
	return []string{"osascript", "-e", script}
}

func dialogCommand(title, text string) []string {
	script := "display alert " + appleString(title) + " message " + appleString(text) + " as critical"
	return []string{"osascript", "-e", script}
}

func notifyCommand(title, body string) []string {
	script := "display notification " + appleString(body) + " with title " + appleString(title)
	return []string{"osascript", "-e", script}
}

type openLauncher struct{}

func (openLauncher) OpenViewer(path string) error {
	c := viewerCommand(path)
	return startDetached(c[0], c[1:]...)
}

func (openLauncher) OpenShell(path string) error {
	c := shellCommand(path)
	return startDetached(c[0], c[1:]...)
}

type alertDialog struct{}

func (alertDialog) Show(title, text string) error {
	c := dialogCommand(title, text)
	err := exec.Command(c[0], c[1:]...).Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("osascript: %w", err)
	}
	return nil
}

type osaNotifier struct{}

func (osaNotifier) Register() error {
	if _, err := exec.LookPath("osascript"); err != nil {
		return fmt.Errorf("notifications unavailable: %w", err)
	}
	return nil
}

func (osaNotifier) Notify(title, body string) error {
	c := notifyCommand(title, body)
	return runQuiet(c[0], c[1:]...)
}

func (osaNotifier) Cleanup() error { return nil }
