package output

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLauncher struct {
	viewed []string
	shells []string
	err    error
}

func (l *fakeLauncher) OpenViewer(path string) error {
	l.viewed = append(l.viewed, path)
	return l.err
}

func (l *fakeLauncher) OpenShell(path string) error {
	l.shells = append(l.shells, path)
	return l.err
}

type fakeDialog struct {
	mu     sync.Mutex
	shown  []string
	titles []string
	err    error
	block  chan struct{}
}

func (d *fakeDialog) Show(title, text string) error {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.titles = append(d.titles, title)
	d.shown = append(d.shown, text)
	return d.err
}

type fakeNotifier struct {
	bodies []string
	titles []string
}

func (n *fakeNotifier) Register() error { return nil }

func (n *fakeNotifier) Notify(title, body string) error {
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
	return nil
}

func (n *fakeNotifier) Cleanup() error { return nil }

func TestConsoleSink_AppendsMissingNewline(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSink(&buf)

	require.NoError(t, s.Deliver("<Event/>"))
	require.NoError(t, s.Deliver("AppName: game.exe\n"))

	assert.Equal(t, "<Event/>\nAppName: game.exe\n", buf.String())
}

func TestConsoleSink_NoColorOnBuffer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewConsoleSink(&buf).Deliver("ExceptionCode: c0000005\n"))
	assert.NotContains(t, buf.String(), "\033[")
}

func TestColorize(t *testing.T) {
	in := "AppName: game.exe\nExceptionCode: c0000005\n<Data Name=\"x\">y: z</Data>\n"
	got := colorize(in)

	assert.Contains(t, got, colorGray+"AppName:"+colorReset+" game.exe\n")
	assert.Contains(t, got, colorRed+"c0000005"+colorReset+"\n")
	assert.Contains(t, got, "<Data Name=\"x\">y: z</Data>\n")
}

func TestDialogSink_DoesNotBlock(t *testing.T) {
	d := &fakeDialog{block: make(chan struct{})}
	s := &DialogSink{dialog: d, fatal: func(err error) { t.Errorf("unexpected fatal: %v", err) }}

	done := make(chan struct{})
	go func() {
		s.Deliver("first")
		s.Deliver("second")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Deliver blocked on an open dialog")
	}

	close(d.block)
	s.Wait()
	assert.ElementsMatch(t, []string{"first", "second"}, d.shown)
	assert.Equal(t, []string{DialogTitle, DialogTitle}, d.titles)
}

func TestDialogSink_FailureIsFatal(t *testing.T) {
	boom := errors.New("no desktop")
	var got error
	s := &DialogSink{dialog: &fakeDialog{err: boom}, fatal: func(err error) { got = err }}

	require.NoError(t, s.Deliver("payload"))
	s.Wait()
	assert.ErrorIs(t, got, boom)
}

func TestFileSink_WritesPayloadAndLaunches(t *testing.T) {
	dir := t.TempDir()
	l := &fakeLauncher{}
	s := NewFileSink(dir, l.OpenViewer)

	require.NoError(t, s.Deliver("AppName: game.exe\n"))
	require.NoError(t, s.Deliver("AppName: other.exe\n"))

	require.Len(t, l.viewed, 2)
	assert.NotEqual(t, l.viewed[0], l.viewed[1])
	for _, p := range l.viewed {
		assert.Equal(t, dir, filepath.Dir(p))
		assert.True(t, strings.HasPrefix(filepath.Base(p), "crashwatch-"))
		assert.Equal(t, ".txt", filepath.Ext(p))
	}

	data, err := os.ReadFile(l.viewed[0])
	require.NoError(t, err)
	assert.Equal(t, "AppName: game.exe\n", string(data))
}

func TestFileSink_LaunchError(t *testing.T) {
	l := &fakeLauncher{err: errors.New("no viewer")}
	err := NewFileSink(t.TempDir(), l.OpenShell).Deliver("x")
	assert.Error(t, err)
}

func TestFileSink_UnwritableDir(t *testing.T) {
	l := &fakeLauncher{}
	err := NewFileSink(filepath.Join(t.TempDir(), "missing"), l.OpenViewer).Deliver("x")
	assert.Error(t, err)
	assert.Empty(t, l.viewed)
}

func TestToastSink_TrimsTrailingNewlines(t *testing.T) {
	n := &fakeNotifier{}
	require.NoError(t, NewToastSink(n).Deliver("AppName: game.exe\nExceptionCode: c0000005\n"))
	assert.Equal(t, []string{"AppName: game.exe\nExceptionCode: c0000005"}, n.bodies)
	assert.Equal(t, []string{ToastTitle}, n.titles)
}
