package watcher

import (
	"fmt"
	"os"
	"os/exec"
)

// SpawnDetached starts the current executable with args as a background
// process detached from this one's session and console. The child gets no
// stdio; it is expected to log on its own. It returns the child's PID.
func SpawnDetached(args []string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = detachAttrs()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start background process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := cmd.Process.Release(); err != nil {
		return 0, fmt.Errorf("failed to release process: %w", err)
	}
	return pid, nil
}
