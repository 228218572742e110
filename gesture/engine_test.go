package gesture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"murmur/permission"
)

const (
	testHold   = 60 * time.Millisecond
	testWindow = 90 * time.Millisecond
)

type recorder struct {
	ch chan Kind
}

func record(e *Engine, kinds ...Kind) *recorder {
	r := &recorder{ch: make(chan Kind, 32)}
	for _, k := range kinds {
		k := k
		e.Register(k, func() { r.ch <- k })
	}
	return r
}

func (r *recorder) wait(t *testing.T, want Kind, timeout time.Duration) {
	t.Helper()
	select {
	case got := <-r.ch:
		if got != want {
			t.Fatalf("expected %v, got %v", want, got)
		}
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for %v", want)
	}
}

func (r *recorder) expectNone(t *testing.T, during time.Duration) {
	t.Helper()
	select {
	case got := <-r.ch:
		t.Fatalf("unexpected gesture %v", got)
	case <-time.After(during):
	}
}

func startedEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(nil, nil)
	e.UpdateTiming(testHold, testWindow)
	e.AttachSource(NewFakeSource())
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Stop)
	return e
}

func press(e *Engine)   { e.Observe(Observation{Down: true, Source: SourceChannel}) }
func release(e *Engine) { e.Observe(Observation{Down: false, Source: SourceChannel}) }

func tap(e *Engine) {
	press(e)
	time.Sleep(10 * time.Millisecond)
	release(e)
}

func TestHoldFiresExactlyOnce(t *testing.T) {
	e := startedEngine(t)
	r := record(e, HoldStart, HoldEnd, SingleTap, DoubleTap)

	press(e)
	r.wait(t, HoldStart, testHold+100*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	release(e)
	r.wait(t, HoldEnd, 100*time.Millisecond)

	// The press must not also produce a tap once the window closes.
	r.expectNone(t, testWindow+60*time.Millisecond)
}

func TestSingleTapIsDeferred(t *testing.T) {
	e := startedEngine(t)
	r := record(e, HoldStart, HoldEnd, SingleTap, DoubleTap)

	tap(e)

	// Not immediately on release: the double-tap window must close
	// first.
	r.expectNone(t, testWindow/2)
	r.wait(t, SingleTap, testWindow+100*time.Millisecond)
	r.expectNone(t, testWindow)
}

func TestDoubleTapFiresAtSecondRelease(t *testing.T) {
	e := startedEngine(t)
	r := record(e, SingleTap, DoubleTap, HoldStart)

	tap(e)
	time.Sleep(25 * time.Millisecond)
	tap(e)

	r.wait(t, DoubleTap, 100*time.Millisecond)
	// Neither press may individually produce a single-tap.
	r.expectNone(t, testWindow+80*time.Millisecond)
}

func TestDoubleTapCooldown(t *testing.T) {
	e := startedEngine(t)
	r := record(e, SingleTap, DoubleTap)

	tap(e)
	time.Sleep(25 * time.Millisecond)
	tap(e)
	r.wait(t, DoubleTap, 100*time.Millisecond)

	// A third quick release inside the cooldown must not re-trigger a
	// double-tap; it starts a fresh deferred single-tap instead.
	time.Sleep(20 * time.Millisecond)
	tap(e)
	r.wait(t, SingleTap, testWindow+150*time.Millisecond)
	r.expectNone(t, testWindow)
}

func TestNewPressCancelsPendingSingleTap(t *testing.T) {
	e := startedEngine(t)
	r := record(e, SingleTap, DoubleTap, HoldStart, HoldEnd)

	tap(e)
	time.Sleep(20 * time.Millisecond)

	// Second press before the deferred tap fires, then held past the
	// threshold: the first tap's pending timer dies and the hold is
	// evaluated entirely on its own.
	press(e)
	r.wait(t, HoldStart, testHold+100*time.Millisecond)
	release(e)
	r.wait(t, HoldEnd, 100*time.Millisecond)
	r.expectNone(t, testWindow+80*time.Millisecond)
}

func TestDuplicateObservationsAreIdempotent(t *testing.T) {
	e := startedEngine(t)
	r := record(e, SingleTap, DoubleTap, HoldStart, HoldEnd)

	// Three sources report the same physical down, then the same up.
	e.Observe(Observation{Down: true, Source: SourceChannel})
	e.Observe(Observation{Down: true, Source: SourceMonitor})
	e.Observe(Observation{Down: true, Source: SourcePoller})
	time.Sleep(10 * time.Millisecond)
	e.Observe(Observation{Down: false, Source: SourceChannel})
	e.Observe(Observation{Down: false, Source: SourceMonitor})

	// Exactly one gesture for the whole cycle.
	r.wait(t, SingleTap, testWindow+100*time.Millisecond)
	r.expectNone(t, testWindow)
}

func TestStopCancelsHoldTimer(t *testing.T) {
	e := startedEngine(t)
	r := record(e, HoldStart, HoldEnd, SingleTap, DoubleTap)

	press(e)
	e.Stop()
	r.expectNone(t, testHold+80*time.Millisecond)
}

func TestStopResetsState(t *testing.T) {
	e := startedEngine(t)
	r := record(e, HoldStart, HoldEnd, SingleTap, DoubleTap)

	press(e)
	e.Stop()
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	// A stale release after restart matches the reset key state and
	// must cause no transition.
	release(e)
	r.expectNone(t, testWindow+80*time.Millisecond)

	// The engine still classifies normally afterwards.
	tap(e)
	r.wait(t, SingleTap, testWindow+100*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	e := startedEngine(t)
	e.Stop()
	e.Stop()
}

func TestTimingSnapshotAtPressStart(t *testing.T) {
	e := startedEngine(t)
	r := record(e, HoldStart)

	start := time.Now()
	press(e)
	// Shrinking the threshold mid-press must not affect the in-flight
	// press. The change is serialized behind the down-edge above, so
	// the press is guaranteed to be in flight when it lands.
	if err := e.UpdateTiming(5*time.Millisecond, testWindow); err != nil {
		t.Fatal(err)
	}
	r.wait(t, HoldStart, testHold+100*time.Millisecond)
	if elapsed := time.Since(start); elapsed < testHold/2 {
		t.Fatalf("hold fired after %v, snapshot threshold ignored", elapsed)
	}
}

func TestHoldMeasuredFromObservationTime(t *testing.T) {
	e := startedEngine(t)
	r := record(e, HoldStart)

	// A down-edge reported late still measures the hold from the
	// moment the key actually went down.
	lag := testHold * 2 / 3
	start := time.Now()
	e.Observe(Observation{Down: true, Source: SourcePoller, At: start.Add(-lag)})
	r.wait(t, HoldStart, testHold)
	if elapsed := time.Since(start); elapsed >= testHold {
		t.Fatalf("hold fired after %v, want sooner than %v", elapsed, testHold)
	}
	release(e)
}

type fakeStore struct {
	mu        sync.Mutex
	cfg       Config
	saved     []time.Duration
	saveErr   error
	saveCalls int
}

func (s *fakeStore) Timing() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *fakeStore) SaveTiming(hold, doubleTap time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveCalls++
	s.saved = []time.Duration{hold, doubleTap}
	return s.saveErr
}

func TestUpdateTimingPersists(t *testing.T) {
	st := &fakeStore{cfg: Defaults()}
	e := New(st, nil)
	if err := e.UpdateTiming(200*time.Millisecond, 300*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if st.saveCalls != 1 {
		t.Fatalf("expected 1 save, got %d", st.saveCalls)
	}
	if st.saved[0] != 200*time.Millisecond || st.saved[1] != 300*time.Millisecond {
		t.Fatalf("saved wrong values: %v", st.saved)
	}
}

func TestUpdateTimingSurfacesStoreError(t *testing.T) {
	st := &fakeStore{cfg: Defaults(), saveErr: errors.New("disk full")}
	e := New(st, nil)
	if err := e.UpdateTiming(time.Second, time.Second); err == nil {
		t.Fatal("expected store error")
	}
}

func TestGatedSourceStartsOnGrant(t *testing.T) {
	perms := permission.NewFake(permission.StatusUnknown)
	e := New(nil, perms)
	e.UpdateTiming(testHold, testWindow)
	always := NewFakeSource()
	gated := NewFakeSource()
	e.AttachSource(always)
	e.AttachGated(gated)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Stop)

	// Start never blocks on the grant; fallback capture runs first.
	if !always.Started() {
		t.Fatal("always-on source not started")
	}
	if gated.Started() {
		t.Fatal("gated source started before grant")
	}

	perms.Resolve(permission.StatusGranted)
	deadline := time.Now().Add(time.Second)
	for !gated.Started() {
		if time.Now().After(deadline) {
			t.Fatal("gated source never started after grant")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGatedSourceSkippedOnDenial(t *testing.T) {
	perms := permission.NewFake(permission.StatusUnknown)
	e := New(nil, perms)
	e.UpdateTiming(testHold, testWindow)
	always := NewFakeSource()
	gated := NewFakeSource()
	e.AttachSource(always)
	e.AttachGated(gated)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Stop)

	perms.Resolve(permission.StatusDenied)
	time.Sleep(50 * time.Millisecond)
	if gated.Started() {
		t.Fatal("gated source started despite denial")
	}

	// Fallback capture still classifies.
	r := record(e, SingleTap)
	always.Press()
	time.Sleep(10 * time.Millisecond)
	always.Release()
	r.wait(t, SingleTap, testWindow+100*time.Millisecond)
}

func TestStartFailsWithNoUsableSource(t *testing.T) {
	e := New(nil, nil)
	src := NewFakeSource()
	src.FailWith(errors.New("no devices"))
	e.AttachSource(src)
	if err := e.Start(); err == nil {
		e.Stop()
		t.Fatal("expected start error with no usable source")
	}
}
