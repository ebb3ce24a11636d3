//go:build windows

package output

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"syscall"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

var (
	user32                           = windows.NewLazySystemDLL("user32.dll")
	procSetThreadDpiAwarenessContext = user32.NewProc("SetThreadDpiAwarenessContext")
)

const (
	mbOK        = 0x00000000
	mbIconError = 0x00000010
	mbTopmost   = 0x00040000

	// DPI_AWARENESS_CONTEXT_PER_MONITOR_AWARE_V2, (HANDLE)-4.
	dpiPerMonitorAwareV2 = ^uintptr(3)

	createNoWindow = 0x08000000
)

// DefaultPlatform returns the Windows shell integrations.
func DefaultPlatform() Platform {
	return Platform{
		Launcher: shellLauncher{},
		Dialog:   messageBox{},
		Notifier: &toastNotifier{appID: AppID, displayName: AppDisplayName},
	}
}

type shellLauncher struct{}

func (shellLauncher) OpenViewer(path string) error {
	return shellExecute("notepad.exe", `"`+path+`"`)
}

func (shellLauncher) OpenShell(path string) error {
	return shellExecute("powershell.exe", `-NoExit Get-Content -Path "`+path+`"`)
}

func shellExecute(file, args string) error {
	verb, err := windows.UTF16PtrFromString("open")
	if err != nil {
		return err
	}
	f, err := windows.UTF16PtrFromString(file)
	if err != nil {
		return err
	}
	a, err := windows.UTF16PtrFromString(args)
	if err != nil {
		return err
	}
	if err := windows.ShellExecute(0, verb, f, a, nil, windows.SW_SHOWNORMAL); err != nil {
		return fmt.Errorf("ShellExecute %s: %w", file, err)
	}
	return nil
}

type messageBox struct{}

// Show runs on the calling goroutine's own OS thread so the per-thread DPI
// awareness does not leak into other goroutines.
func (messageBox) Show(title, text string) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if procSetThreadDpiAwarenessContext.Find() == nil {
		procSetThreadDpiAwarenessContext.Call(dpiPerMonitorAwareV2)
	}

	t, err := windows.UTF16PtrFromString(text)
	if err != nil {
		return err
	}
	c, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return err
	}
	ret, err := windows.MessageBox(0, t, c, mbTopmost|mbOK|mbIconError)
	if ret == 0 {
		return fmt.Errorf("MessageBox: %w", err)
	}
	return nil
}

// toastNotifier posts toasts under an app ID registered in the per-user
// AppUserModelId key. The title is the registered display name.
type toastNotifier struct {
	appID       string
	displayName string
}

func (n *toastNotifier) keyPath() string {
	return `Software\Classes\AppUserModelId\` + n.appID
}

func (n *toastNotifier) Register() error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, n.keyPath(), registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to create app ID key: %w", err)
	}
	defer k.Close()
	if err := k.SetStringValue("DisplayName", n.displayName); err != nil {
		return fmt.Errorf("failed to set app display name: %w", err)
	}
	return nil
}

func (n *toastNotifier) Notify(_, body string) error {
	cmd := powershell(encodePowerShell(toastScript(n.appID, body)))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start powershell: %w", err)
	}
	go cmd.Wait()
	return nil
}

func (n *toastNotifier) Cleanup() error {
	out, err := powershell(encodePowerShell(clearHistoryScript(n.appID))).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to clear notification history: %w: %s", err, out)
	}
	err = registry.DeleteKey(registry.CURRENT_USER, n.keyPath())
	if err != nil && !errors.Is(err, windows.ERROR_FILE_NOT_FOUND) {
		return fmt.Errorf("failed to delete app ID key: %w", err)
	}
	return nil
}

func powershell(encoded string) *exec.Cmd {
	cmd := exec.Command("powershell.exe",
		"-NoProfile", "-NonInteractive", "-WindowStyle", "Hidden",
		"-EncodedCommand", encoded)
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
	return cmd
}
