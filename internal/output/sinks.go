package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Titles shown by the dialog and notification channels.
const (
	DialogTitle = "Application Error"
	ToastTitle  = "Application Error Notification"
)

// ConsoleSink writes payloads to a terminal or any writer.
type ConsoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

// NewConsoleSink returns a sink writing to w, colored when w is a terminal.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w, color: IsColorEnabled(w)}
}

// Deliver writes payload followed by a line break when it lacks one.
func (s *ConsoleSink) Deliver(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := payload
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if s.color {
		out = colorize(out)
	}
	if _, err := io.WriteString(s.w, out); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}

// Dialog shows a blocking modal message.
type Dialog interface {
	Show(title, text string) error
}

// DialogSink shows each payload in its own modal dialog without blocking
// the caller. A dialog that cannot be shown ends the process through
// Fatal, since the caller has already moved on.
type DialogSink struct {
	dialog Dialog
	fatal  func(error)
	wg     sync.WaitGroup
}

// NewDialogSink returns a sink that logs a fatal error if d fails.
func NewDialogSink(d Dialog, log zerolog.Logger) *DialogSink {
	return &DialogSink{
		dialog: d,
		fatal: func(err error) {
			log.Fatal().Err(err).Msg("failed to show dialog")
		},
	}
}

// Deliver starts the dialog and returns immediately. The goroutine owns
// payload.
func (s *DialogSink) Deliver(payload string) error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.dialog.Show(DialogTitle, payload); err != nil {
			s.fatal(err)
		}
	}()
	return nil
}

// Wait blocks until every open dialog has been dismissed.
func (s *DialogSink) Wait() {
	s.wg.Wait()
}

// FileSink writes each payload to a fresh temp file and hands its path to
// open. The file is left behind for the launched program.
type FileSink struct {
	dir  string
	open func(path string) error
}

// NewFileSink returns a sink writing into dir (the system temp dir when
// empty) and calling open with each file.
func NewFileSink(dir string, open func(path string) error) *FileSink {
	return &FileSink{dir: dir, open: open}
}

func (s *FileSink) Deliver(payload string) error {
	path, err := writeTemp(s.dir, payload)
	if err != nil {
		return err
	}
	if err := s.open(path); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}

// writeTemp writes payload to crashwatch-<uuid>.txt in dir.
func writeTemp(dir, payload string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "crashwatch-"+uuid.NewString()+".txt")
	if err := os.WriteFile(path, []byte(payload), 0600); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, nil
}

// Notifier posts desktop notifications. Register is called once before
// the first notification and Cleanup once after the last.
type Notifier interface {
	Register() error
	Notify(title, body string) error
	Cleanup() error
}

// ToastSink posts each payload as a notification.
type ToastSink struct {
	n Notifier
}

// NewToastSink returns a sink posting through n.
func NewToastSink(n Notifier) *ToastSink {
	return &ToastSink{n: n}
}

func (s *ToastSink) Deliver(payload string) error {
	return s.n.Notify(ToastTitle, strings.TrimRight(payload, "\n"))
}
