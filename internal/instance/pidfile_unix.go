//go:build !windows

package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	gopsproc "github.com/shirou/gopsutil/v4/process"

	"github.com/blackwell-systems/crashwatch/internal/config"
)

// PIDFile is the instance token: a file named after Name holding the
// watcher's PID and, on the second line, its start time as JSON so that a
// recycled PID is not mistaken for a live watcher.
type PIDFile struct {
	Path string
}

type pidMeta struct {
	StartUnix int64 `json:"start_unix"`
}

// PIDPath returns the token path inside stateDir.
func PIDPath(stateDir string) string {
	return filepath.Join(stateDir, Name+".pid")
}

// DefaultRegistry returns the registry for cfg.
func DefaultRegistry(cfg config.Config) Registry {
	return PIDFile{Path: PIDPath(cfg.StateDir)}
}

// Open returns a handle to the watcher named by the PID file. A missing
// file, an unparsable PID, or a PID that no longer belongs to the watcher
// all mean ErrNotRunning; in the latter two cases the stale file is removed.
func (p PIDFile) Open() (Handle, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotRunning
		}
		return nil, fmt.Errorf("failed to read PID file: %w", err)
	}

	pidLine, rest, _ := strings.Cut(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil || pid <= 0 {
		p.removeStale()
		return nil, ErrNotRunning
	}

	var meta pidMeta
	if line := strings.TrimSpace(rest); line != "" {
		// Unparsable meta is ignored; the PID alone still decides.
		_ = json.Unmarshal([]byte(line), &meta)
	}

	if !pidAlive(pid) {
		p.removeStale()
		return nil, ErrNotRunning
	}
	if meta.StartUnix > 0 {
		if cur := procStartUnix(pid); cur > 0 && cur != meta.StartUnix {
			p.removeStale()
			return nil, ErrNotRunning
		}
	}

	return pidHandle{pid: pid}, nil
}

func (p PIDFile) removeStale() {
	os.Remove(p.Path)
}

// write publishes the token for pid. The content is written to a private
// temp file first and linked into place, so the token never exists without
// its PID and the link fails with EEXIST when another token is present.
func (p PIDFile) write(pid int) error {
	meta, err := json.Marshal(pidMeta{StartUnix: procStartUnix(pid)})
	if err != nil {
		return fmt.Errorf("failed to encode PID metadata: %w", err)
	}

	tmp := fmt.Sprintf("%s.tmp-%d", p.Path, pid)
	if err := os.WriteFile(tmp, []byte(fmt.Sprintf("%d\n%s\n", pid, meta)), 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer os.Remove(tmp)

	return os.Link(tmp, p.Path)
}

// pidAlive returns true if a process with given pid exists (or EPERM).
func pidAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// procStartUnix returns the start time of pid in Unix seconds, or 0.
func procStartUnix(pid int) int64 {
	p, err := gopsproc.NewProcess(int32(pid))
	if err != nil {
		return 0
	}
	ms, err := p.CreateTime()
	if err != nil || ms <= 0 {
		return 0
	}
	return ms / 1000
}

type pidHandle struct {
	pid int
}

// Signal sends SIGTERM, the wake signal on this platform.
func (h pidHandle) Signal() error {
	return syscall.Kill(h.pid, syscall.SIGTERM)
}

func (h pidHandle) Describe() string { return fmt.Sprintf("pid %d", h.pid) }

func (h pidHandle) Close() error { return nil }

// Instance is the token and wake signal owned by the running watcher.
type Instance struct {
	file PIDFile
	pid  int

	sigCh chan os.Signal
	done  chan struct{}
	quit  chan struct{}

	closeOnce sync.Once
}

// Acquire makes this process the watcher: it creates the PID file
// exclusively and starts listening for SIGTERM and SIGINT. It returns
// ErrAlreadyRunning when a live watcher already holds the token.
func Acquire(cfg config.Config) (*Instance, error) {
	file := PIDFile{Path: PIDPath(cfg.StateDir)}
	if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	pid := os.Getpid()
	created := false
	// A second attempt follows the removal of a stale token.
	for attempt := 0; attempt < 2; attempt++ {
		err := file.write(pid)
		if err == nil {
			created = true
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create instance token: %w", err)
		}
		h, err := file.Open()
		if err == nil {
			h.Close()
			return nil, ErrAlreadyRunning
		}
		if !errors.Is(err, ErrNotRunning) {
			return nil, err
		}
	}
	if !created {
		return nil, ErrAlreadyRunning
	}

	inst := &Instance{
		file:  file,
		pid:   pid,
		sigCh: make(chan os.Signal, 1),
		done:  make(chan struct{}),
		quit:  make(chan struct{}),
	}
	signal.Notify(inst.sigCh, syscall.SIGTERM, syscall.SIGINT)
	go inst.watch()

	return inst, nil
}

func (i *Instance) watch() {
	select {
	case <-i.sigCh:
		close(i.done)
	case <-i.quit:
	}
}

// Done is closed once the wake signal has been delivered.
func (i *Instance) Done() <-chan struct{} {
	return i.done
}

// Describe names this watcher.
func (i *Instance) Describe() string {
	return fmt.Sprintf("pid %d (%s)", i.pid, i.file.Path)
}

// Close stops listening for the wake signal and removes the PID file if it
// still names this process.
func (i *Instance) Close() error {
	var err error
	i.closeOnce.Do(func() {
		signal.Stop(i.sigCh)
		close(i.quit)

		data, readErr := os.ReadFile(i.file.Path)
		if readErr != nil {
			if !os.IsNotExist(readErr) {
				err = fmt.Errorf("failed to read PID file: %w", readErr)
			}
			return
		}
		pidLine, _, _ := strings.Cut(string(data), "\n")
		if strings.TrimSpace(pidLine) != strconv.Itoa(i.pid) {
			return
		}
		if rmErr := os.Remove(i.file.Path); rmErr != nil && !os.IsNotExist(rmErr) {
			err = fmt.Errorf("failed to remove PID file: %w", rmErr)
		}
	})
	return err
}
