package gesture

import "testing"

func TestRegistryFanOut(t *testing.T) {
	r := newRegistry()
	var a, b int
	r.register(HoldStart, func() { a++ })
	r.register(HoldStart, func() { b++ })
	r.register(HoldEnd, func() { t.Fatal("wrong gesture dispatched") })

	r.dispatch(HoldStart)
	if a != 1 || b != 1 {
		t.Fatalf("expected both handlers once, got a=%d b=%d", a, b)
	}
}

func TestRegistryUnregister(t *testing.T) {
	r := newRegistry()
	var calls int
	tok := r.register(SingleTap, func() { calls++ })
	other := r.register(SingleTap, func() {})

	r.unregister(tok)
	r.dispatch(SingleTap)
	if calls != 0 {
		t.Fatalf("unregistered handler ran %d times", calls)
	}
	_ = other
}

func TestRegistryTokensAreUnique(t *testing.T) {
	r := newRegistry()
	seen := make(map[Token]bool)
	for i := 0; i < 100; i++ {
		tok := r.register(DoubleTap, func() {})
		if seen[tok] {
			t.Fatalf("token %d reused", tok)
		}
		seen[tok] = true
		r.unregister(tok)
	}
}

func TestRegistryReentrantUnregister(t *testing.T) {
	r := newRegistry()
	var calls int
	var tok Token
	tok = r.register(SingleTap, func() {
		calls++
		r.unregister(tok) // unregister self mid-dispatch
	})

	r.dispatch(SingleTap)
	r.dispatch(SingleTap)
	if calls != 1 {
		t.Fatalf("self-unregistering handler ran %d times, want 1", calls)
	}
}

func TestRegistryReentrantRegister(t *testing.T) {
	r := newRegistry()
	var late int
	r.register(DoubleTap, func() {
		r.register(DoubleTap, func() { late++ })
	})

	// Registering during dispatch must not affect the current round.
	r.dispatch(DoubleTap)
	if late != 0 {
		t.Fatalf("handler registered mid-dispatch ran in same round")
	}
	r.dispatch(DoubleTap)
	if late != 1 {
		t.Fatalf("late handler ran %d times, want 1", late)
	}
}
