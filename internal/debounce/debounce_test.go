package debounce

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives timers by hand so window arithmetic is exact.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// advanceTo moves the clock and runs every due, unstopped timer in order.
func (c *fakeClock) advanceTo(at time.Duration) {
	c.mu.Lock()
	c.now = at
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= at {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

type emission struct {
	at    time.Duration
	value string
}

func newTestDebouncer(clock *fakeClock, out *[]emission) *Debouncer[string] {
	d := New(300*time.Millisecond, func(v string) {
		*out = append(*out, emission{at: clock.now, value: v})
	})
	d.after = clock.afterFunc
	return d
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestDebouncer_TrailingEdge(t *testing.T) {
	clock := &fakeClock{}
	var got []emission
	d := newTestDebouncer(clock, &got)

	for _, step := range []struct {
		at    int
		value string
	}{{0, "a"}, {100, "b"}, {150, "c"}} {
		clock.advanceTo(ms(step.at))
		d.Push(step.value)
	}

	clock.advanceTo(ms(449))
	assert.Empty(t, got, "nothing may be emitted before the window closes")

	clock.advanceTo(ms(450))
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].value)
	assert.Equal(t, ms(450), got[0].at)

	clock.advanceTo(ms(2000))
	assert.Len(t, got, 1, "a window emits exactly once")
}

func TestDebouncer_PushInsideWindowRestartsIt(t *testing.T) {
	clock := &fakeClock{}
	var got []emission
	d := newTestDebouncer(clock, &got)

	for _, step := range []struct {
		at    int
		value string
	}{{0, "a"}, {100, "b"}, {150, "c"}, {350, "d"}} {
		clock.advanceTo(ms(step.at))
		d.Push(step.value)
	}

	clock.advanceTo(ms(450))
	assert.Empty(t, got, "push at 350ms keeps the window open")

	clock.advanceTo(ms(650))
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0].value)
	assert.GreaterOrEqual(t, got[0].at, ms(450))
}

func TestDebouncer_SeparateWindows(t *testing.T) {
	clock := &fakeClock{}
	var got []emission
	d := newTestDebouncer(clock, &got)

	d.Push("first")
	clock.advanceTo(ms(300))
	d.Push("second")
	clock.advanceTo(ms(600))

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].value)
	assert.Equal(t, "second", got[1].value)
}

func TestDebouncer_Cancel(t *testing.T) {
	clock := &fakeClock{}
	var got []emission
	d := newTestDebouncer(clock, &got)

	d.Push("a")
	d.Cancel()
	clock.advanceTo(ms(1000))
	assert.Empty(t, got)

	d.Push("b")
	clock.advanceTo(ms(2000))
	assert.Empty(t, got, "pushes after Cancel are ignored")
	assert.False(t, d.Pending())
}

func TestDebouncer_StaleTimerDoesNotEmit(t *testing.T) {
	clock := &fakeClock{}
	var got []emission
	d := newTestDebouncer(clock, &got)

	d.Push("a")
	// Simulate the runtime firing a timer that Stop lost the race against.
	first := clock.timers[0]
	d.Push("b")
	first.f()
	assert.Empty(t, got)

	clock.advanceTo(ms(300))
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].value)
}

func TestDebouncer_Flush(t *testing.T) {
	clock := &fakeClock{}
	var got []emission
	d := newTestDebouncer(clock, &got)

	d.Flush()
	assert.Empty(t, got)

	d.Push("a")
	d.Flush()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].value)

	clock.advanceTo(ms(1000))
	assert.Len(t, got, 1)
}

func TestDebouncer_RealTimer(t *testing.T) {
	out := make(chan int, 4)
	d := New(20*time.Millisecond, func(v int) { out <- v })
	for i := 1; i <= 3; i++ {
		d.Push(i)
	}

	select {
	case v := <-out:
		assert.Equal(t, 3, v)
	case <-time.After(time.Second):
		t.Fatal("debouncer did not emit in time")
	}

	select {
	case v := <-out:
		t.Fatalf("unexpected second emission %d", v)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncer_FlushWaitsForRunningEmit(t *testing.T) {
	clock := &fakeClock{}
	release := make(chan struct{})
	entered := make(chan struct{})
	var (
		mu  sync.Mutex
		got []string
	)
	d := New(300*time.Millisecond, func(v string) {
		if v == "old" {
			close(entered)
			<-release
		}
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})
	d.after = clock.afterFunc

	d.Push("old")
	go clock.advanceTo(ms(300))
	<-entered

	d.Push("new")
	flushed := make(chan struct{})
	go func() {
		d.Flush()
		close(flushed)
	}()

	select {
	case <-flushed:
		t.Fatal("Flush emitted while an earlier emit was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("Flush did not complete")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"old", "new"}, got)
}
