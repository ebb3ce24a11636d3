package watcher

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/crashwatch/internal/eventlog"
	"github.com/blackwell-systems/crashwatch/internal/record"
)

func crash(code string) record.Record {
	return record.New([]byte(fmt.Sprintf(
		`<Event><System><Level>2</Level><Channel>Application</Channel></System>`+
			`<EventData><Data Name="ExceptionCode">%s</Data></EventData></Event>`, code)))
}

// fakeSource serves pending records and logs every call.
type fakeSource struct {
	pending  []record.Record
	ops      []string
	onRearm  func(s *fakeSource)
	nextErr  error
	rearmErr error
}

func (s *fakeSource) Next() (record.Record, error) {
	if s.nextErr != nil {
		s.ops = append(s.ops, "error")
		return record.Record{}, s.nextErr
	}
	if len(s.pending) == 0 {
		s.ops = append(s.ops, "exhausted")
		return record.Record{}, eventlog.ErrExhausted
	}
	r := s.pending[0]
	s.pending = s.pending[1:]
	s.ops = append(s.ops, "next")
	return r, nil
}

func (s *fakeSource) Rearm() error {
	s.ops = append(s.ops, "rearm")
	if s.onRearm != nil {
		s.onRearm(s)
	}
	return s.rearmErr
}

type step struct {
	wake   Wake
	arrive []record.Record
	err    error
}

// scriptWaiter replays steps, delivering arrivals to the source just
// before each wake. It stops the loop once the script runs out.
type scriptWaiter struct {
	steps []step
	src   *fakeSource
	waits int
}

func (w *scriptWaiter) Wait() (Wake, error) {
	if w.waits >= len(w.steps) {
		w.waits++
		return WakeStop, nil
	}
	s := w.steps[w.waits]
	w.waits++
	w.src.pending = append(w.src.pending, s.arrive...)
	return s.wake, s.err
}

type fakeDispatcher struct {
	delivered []string
	failOn    int
	err       error
}

func (d *fakeDispatcher) Dispatch(r record.Record) error {
	if d.err != nil && len(d.delivered) == d.failOn {
		return d.err
	}
	d.delivered = append(d.delivered, r.XML())
	return nil
}

func codes(delivered []string) []string {
	out := make([]string, 0, len(delivered))
	for _, x := range delivered {
		_, rest, _ := strings.Cut(x, `"ExceptionCode">`)
		code, _, _ := strings.Cut(rest, "<")
		out = append(out, code)
	}
	return out
}

func TestRun_DrainsAllPendingBeforeRearm(t *testing.T) {
	src := &fakeSource{}
	w := &scriptWaiter{src: src, steps: []step{
		{wake: WakeAvailable, arrive: []record.Record{crash("1"), crash("2"), crash("3")}},
		{wake: WakeStop},
	}}
	d := &fakeDispatcher{}

	require.NoError(t, NewLoop(w, src, d).Run())

	assert.Equal(t, []string{"1", "2", "3"}, codes(d.delivered))
	assert.Equal(t, []string{"next", "next", "next", "exhausted", "rearm", "exhausted"}, src.ops)
}

func TestRun_PicksUpRecordsRacingTheRearm(t *testing.T) {
	raced := false
	src := &fakeSource{onRearm: func(s *fakeSource) {
		if !raced {
			raced = true
			s.pending = append(s.pending, crash("late"))
		}
	}}
	w := &scriptWaiter{src: src, steps: []step{
		{wake: WakeAvailable, arrive: []record.Record{crash("early")}},
	}}
	d := &fakeDispatcher{}

	require.NoError(t, NewLoop(w, src, d).Run())

	assert.Equal(t, []string{"early", "late"}, codes(d.delivered))
	assert.Equal(t, []string{"next", "exhausted", "rearm", "next", "exhausted", "rearm", "exhausted"}, src.ops)
}

func TestRun_BackToBackRecordsKeepOrderAcrossWakes(t *testing.T) {
	src := &fakeSource{}
	w := &scriptWaiter{src: src, steps: []step{
		{wake: WakeAvailable, arrive: []record.Record{crash("0xC0000005"), crash("0xE06D7363")}},
		{wake: WakeAvailable, arrive: []record.Record{crash("0x80000003")}},
	}}
	d := &fakeDispatcher{}

	require.NoError(t, NewLoop(w, src, d).Run())
	assert.Equal(t, []string{"0xC0000005", "0xE06D7363", "0x80000003"}, codes(d.delivered))
}

func TestRun_StopDoesNotDrain(t *testing.T) {
	src := &fakeSource{}
	w := &scriptWaiter{src: src, steps: []step{
		{wake: WakeStop, arrive: []record.Record{crash("1")}},
	}}
	d := &fakeDispatcher{}

	require.NoError(t, NewLoop(w, src, d).Run())
	assert.Empty(t, d.delivered)
	assert.Empty(t, src.ops)
}

func TestRun_KeyPressStops(t *testing.T) {
	src := &fakeSource{}
	w := &scriptWaiter{src: src, steps: []step{
		{wake: WakeKey, arrive: []record.Record{crash("1")}},
		{wake: WakeAvailable},
	}}

	require.NoError(t, NewLoop(w, src, &fakeDispatcher{}).Run())
	assert.Equal(t, 1, w.waits)
	assert.Empty(t, src.ops)
}

func TestRun_OtherInputIsIgnored(t *testing.T) {
	src := &fakeSource{}
	w := &scriptWaiter{src: src, steps: []step{
		{wake: WakeInput},
		{wake: WakeInput},
		{wake: WakeAvailable, arrive: []record.Record{crash("1")}},
		{wake: WakeStop},
	}}
	d := &fakeDispatcher{}
	idle := 0

	require.NoError(t, NewLoop(w, src, d, WithIdle(func() { idle++ })).Run())
	assert.Equal(t, []string{"1"}, codes(d.delivered))
	assert.Equal(t, 4, w.waits)
	assert.Equal(t, 2, idle, "idle runs at start and after each drain only")
}

func TestRun_EmptyWakeDoesNotRepeatIdle(t *testing.T) {
	src := &fakeSource{}
	w := &scriptWaiter{src: src, steps: []step{
		{wake: WakeAvailable},
		{wake: WakeAvailable, arrive: []record.Record{crash("1")}},
		{wake: WakeAvailable},
		{wake: WakeStop},
	}}
	idle := 0

	require.NoError(t, NewLoop(w, src, &fakeDispatcher{}, WithIdle(func() { idle++ })).Run())
	assert.Equal(t, 2, idle, "idle runs once at start and once for the drain that delivered")
}

func TestRun_Failures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		src     *fakeSource
		steps   []step
		d       *fakeDispatcher
		wantOps []string
	}{
		{
			name:  "wait",
			src:   &fakeSource{},
			steps: []step{{wake: WakeAvailable, err: boom}},
			d:     &fakeDispatcher{},
		},
		{
			name:    "next",
			src:     &fakeSource{nextErr: boom},
			steps:   []step{{wake: WakeAvailable}},
			d:       &fakeDispatcher{},
			wantOps: []string{"error"},
		},
		{
			name:    "dispatch",
			src:     &fakeSource{},
			steps:   []step{{wake: WakeAvailable, arrive: []record.Record{crash("1"), crash("2"), crash("3")}}},
			d:       &fakeDispatcher{err: boom, failOn: 1},
			wantOps: []string{"next", "next"},
		},
		{
			name:    "rearm",
			src:     &fakeSource{rearmErr: boom},
			steps:   []step{{wake: WakeAvailable}},
			d:       &fakeDispatcher{},
			wantOps: []string{"exhausted", "rearm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.src.ops = nil
			w := &scriptWaiter{src: tt.src, steps: tt.steps}
			err := NewLoop(w, tt.src, tt.d).Run()
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, tt.wantOps, tt.src.ops)
			assert.Equal(t, 1, w.waits, "no retry after a failure")
		})
	}
}

func TestWakeString(t *testing.T) {
	assert.Equal(t, "stop", WakeStop.String())
	assert.Equal(t, "available", WakeAvailable.String())
	assert.Equal(t, "Wake(9)", Wake(9).String())
}
