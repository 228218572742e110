package gesture

import (
	"fmt"
	"sync"
	"time"

	"murmur/log"
	"murmur/permission"
)

// Engine owns the tracked key's state. Every observation and timer
// callback is funneled onto one processing goroutine, so the
// reconciler and classifier run without internal locking.
//
// Classifier states: idle -> down -> {hold fired | released early} -> idle.
type Engine struct {
	store Store
	perms permission.Service

	mu      sync.Mutex
	cfg     Config
	running bool
	always  []Source
	gated   []Source
	gatedOn bool

	inbox chan func()
	done  chan struct{}
	wg    sync.WaitGroup

	reg *registry

	// Everything below is touched only on the processing goroutine.
	keyDown       bool
	holdFired     bool
	lastRelease   time.Time
	cooldownUntil time.Time
	press         Config // timing snapshot taken at press start
	holdTimer     *time.Timer
	tapTimer      *time.Timer
	holdGen       uint64
	tapGen        uint64
}

// New builds an engine reading timing from store. perms may be nil when
// no gated source is attached.
func New(store Store, perms permission.Service) *Engine {
	return &Engine{
		store: store,
		perms: perms,
		cfg:   Defaults(),
		reg:   newRegistry(),
	}
}

// AttachSource adds a source started unconditionally by Start.
func (e *Engine) AttachSource(s Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.always = append(e.always, s)
}

// AttachGated adds a source that is only started once the input
// monitoring capability resolves to granted.
func (e *Engine) AttachGated(s Source) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gated = append(e.gated, s)
}

// Register subscribes h to gesture k. h runs synchronously on the
// engine's processing goroutine; registration order is not preserved.
func (e *Engine) Register(k Kind, h Handler) Token {
	return e.reg.register(k, h)
}

// Unregister removes the handler identified by tok. Safe to call from
// inside a handler.
func (e *Engine) Unregister(tok Token) {
	e.reg.unregister(tok)
}

// Start activates all signal sources and begins processing. The
// elevated capability is requested asynchronously: monitoring starts on
// the fallback sources immediately and upgrades when the grant lands.
// Start fails only when nothing can observe the key at all.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	if e.store != nil {
		e.cfg = e.store.Timing()
	}
	e.running = true
	e.inbox = make(chan func(), 64)
	e.done = make(chan struct{})
	always := e.always
	hasGated := len(e.gated) > 0
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run()

	started := 0
	for _, s := range always {
		if err := s.Start(e.Observe); err != nil {
			log.Warnf("gesture: source failed to start: %v", err)
			continue
		}
		started++
	}

	if hasGated && e.perms != nil {
		e.perms.Request(permission.CapInputMonitoring, func(st permission.Status) {
			e.post(func() { e.onCapability(st) })
		})
	}

	if started == 0 && !hasGated {
		e.Stop()
		return fmt.Errorf("gesture: no signal source available")
	}
	return nil
}

// Stop deactivates every source, cancels pending timers and resets
// transient state so a later Start begins clean. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	sources := append([]Source(nil), e.always...)
	if e.gatedOn {
		sources = append(sources, e.gated...)
	}
	e.gatedOn = false
	done := e.done
	e.mu.Unlock()

	for _, s := range sources {
		s.Stop()
	}
	close(done)
	e.wg.Wait()

	// The processing goroutine is gone; late timer callbacks are
	// dropped by post, so this reset cannot race.
	if e.holdTimer != nil {
		e.holdTimer.Stop()
	}
	if e.tapTimer != nil {
		e.tapTimer.Stop()
	}
	e.holdGen++
	e.tapGen++
	e.keyDown = false
	e.holdFired = false
	e.lastRelease = time.Time{}
	e.cooldownUntil = time.Time{}
}

// UpdateTiming replaces the hold and double-tap thresholds and persists
// them. An in-flight press keeps the snapshot taken at its down-edge.
// While the engine runs the change goes through the inbox, so it lands
// strictly after any observation posted before this call.
func (e *Engine) UpdateTiming(hold, doubleTap time.Duration) error {
	apply := func() {
		e.mu.Lock()
		e.cfg.HoldThreshold = hold
		e.cfg.DoubleTapWindow = doubleTap
		e.mu.Unlock()
	}
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if running {
		e.post(apply)
	} else {
		apply()
	}
	if e.store == nil {
		return nil
	}
	return e.store.SaveTiming(hold, doubleTap)
}

// Observe feeds one raw observation into the reconciler. Callable from
// any goroutine; observations arriving after Stop are dropped.
func (e *Engine) Observe(o Observation) {
	if o.At.IsZero() {
		o.At = time.Now()
	}
	e.post(func() { e.onEdge(o) })
}

func (e *Engine) post(f func()) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	inbox, done := e.inbox, e.done
	e.mu.Unlock()
	select {
	case inbox <- f:
	case <-done:
	}
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			return
		case f := <-e.inbox:
			f()
		}
	}
}

func (e *Engine) onCapability(st permission.Status) {
	if st != permission.StatusGranted {
		log.Warn("gesture: input monitoring denied, staying on fallback sources")
		return
	}
	e.mu.Lock()
	if !e.running || e.gatedOn {
		e.mu.Unlock()
		return
	}
	e.gatedOn = true
	gated := e.gated
	e.mu.Unlock()

	for _, s := range gated {
		if err := s.Start(e.Observe); err != nil {
			log.Warnf("gesture: low-level channel unavailable: %v", err)
		}
	}
	log.Info("gesture: low-level channel attached")
}

func (e *Engine) timing() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// onEdge is the reconciler: an observation whose value matches the
// current key state is a duplicate report from another source and
// causes no transition.
func (e *Engine) onEdge(o Observation) {
	if o.Down == e.keyDown {
		return
	}
	e.keyDown = o.Down
	if o.Down {
		e.onDown(o.At)
	} else {
		e.onUp(o.At)
	}
}

func (e *Engine) onDown(at time.Time) {
	// A press always kills a pending deferred single-tap so the new
	// press is evaluated on its own.
	e.tapGen++
	if e.tapTimer != nil {
		e.tapTimer.Stop()
	}

	e.press = e.timing()
	e.holdFired = false
	e.holdGen++
	gen := e.holdGen
	if e.holdTimer != nil {
		e.holdTimer.Stop()
	}
	// Arm the timer relative to the observation's own timestamp, so a
	// lagged report does not stretch the effective hold threshold.
	delay := e.press.HoldThreshold - time.Since(at)
	if delay < 0 {
		delay = 0
	}
	e.holdTimer = time.AfterFunc(delay, func() {
		e.post(func() { e.holdElapsed(gen) })
	})
}

func (e *Engine) holdElapsed(gen uint64) {
	if gen != e.holdGen || !e.keyDown || e.holdFired {
		return
	}
	e.holdFired = true
	e.reg.dispatch(HoldStart)
}

func (e *Engine) onUp(at time.Time) {
	e.holdGen++
	if e.holdTimer != nil {
		e.holdTimer.Stop()
	}

	if e.holdFired {
		e.lastRelease = at
		e.reg.dispatch(HoldEnd)
		return
	}

	// Short press. Two qualifying releases inside the window merge
	// into a double-tap, unless a cooldown from a just-fired
	// double-tap is still active.
	elapsed := at.Sub(e.lastRelease)
	if !e.lastRelease.IsZero() && elapsed <= e.press.DoubleTapWindow && !at.Before(e.cooldownUntil) {
		e.lastRelease = at
		e.cooldownUntil = at.Add(min(e.press.DoubleTapWindow, doubleTapCooldownCeiling))
		e.reg.dispatch(DoubleTap)
		return
	}

	// Defer the single-tap until the double-tap window closes with no
	// further press.
	e.lastRelease = at
	e.tapGen++
	gen := e.tapGen
	if e.tapTimer != nil {
		e.tapTimer.Stop()
	}
	e.tapTimer = time.AfterFunc(e.press.DoubleTapWindow, func() {
		e.post(func() { e.tapElapsed(gen) })
	})
}

func (e *Engine) tapElapsed(gen uint64) {
	if gen != e.tapGen {
		return
	}
	e.reg.dispatch(SingleTap)
}
