package eventlog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/crashwatch/internal/record"
)

// Spool watches a directory for record files. Producers must write each
// record elsewhere and rename it into the directory so that the file is
// complete when its create event fires. Files present before OpenSpool are
// never delivered. Each file is removed once it has been consumed, filtered
// out or not; a malformed file is left in place for inspection.
type Spool struct {
	dir   string
	query Query
	w     *fsnotify.Watcher

	mu     sync.Mutex
	queue  []string
	err    error
	closed bool

	ready chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// OpenSpool starts watching dir, creating it if needed. The notification
// starts out signaled so that the first wait returns immediately.
func OpenSpool(dir string, q Query) (*Spool, error) {
	if dir == "" {
		return nil, errors.New("spool directory not configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create spool watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch spool directory %s: %w", dir, err)
	}

	s := &Spool{
		dir:   dir,
		query: q,
		w:     w,
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	s.signal()

	s.wg.Add(1)
	go s.run()

	return s, nil
}

// Dir returns the watched directory.
func (s *Spool) Dir() string {
	return s.dir
}

// Ready receives whenever at least one record may be pending. Concurrent
// arrivals collapse into a single notification.
func (s *Spool) Ready() <-chan struct{} {
	return s.ready
}

func (s *Spool) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Spool) run() {
	defer s.wg.Done()

	for {
		select {
		case ev, ok := <-s.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) || !isRecordFile(ev.Name) {
				continue
			}
			s.mu.Lock()
			s.queue = append(s.queue, ev.Name)
			s.mu.Unlock()
			s.signal()

		case err, ok := <-s.w.Errors:
			if !ok {
				return
			}
			s.mu.Lock()
			if s.err == nil {
				s.err = fmt.Errorf("spool watcher: %w", err)
			}
			s.mu.Unlock()
			s.signal()

		case <-s.done:
			return
		}
	}
}

func isRecordFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), ".xml") && !strings.HasPrefix(base, ".")
}

// Next returns the oldest pending record matching the query. Files whose
// channel or level do not match are skipped. It returns ErrExhausted when
// nothing is pending, and any watcher, read, decode or removal failure
// otherwise.
func (s *Spool) Next() (record.Record, error) {
	for {
		s.mu.Lock()
		if s.err != nil {
			err := s.err
			s.mu.Unlock()
			return record.Record{}, err
		}
		if s.closed {
			s.mu.Unlock()
			return record.Record{}, errors.New("spool is closed")
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return record.Record{}, ErrExhausted
		}
		path := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		raw, err := os.ReadFile(path)
		if err != nil {
			return record.Record{}, fmt.Errorf("failed to read spooled record: %w", err)
		}
		rec := record.New(raw)
		ev, err := rec.Parse()
		if err != nil {
			return record.Record{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return record.Record{}, fmt.Errorf("failed to remove spooled record: %w", err)
		}
		if !s.query.Matches(ev) {
			continue
		}
		return rec, nil
	}
}

// Rearm resets the notification after a full drain.
func (s *Spool) Rearm() error {
	select {
	case <-s.ready:
	default:
	}
	return nil
}

// Close stops watching. It is safe to call more than once.
func (s *Spool) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	err := s.w.Close()
	s.wg.Wait()
	return err
}
