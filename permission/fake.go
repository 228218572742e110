package permission

import "sync"

// Fake is a scriptable Service for tests. Requests block until
// Resolve is called, mimicking an asynchronous grant dialog.
type Fake struct {
	mu      sync.Mutex
	status  Status
	pending []func(Status)
}

func NewFake(initial Status) *Fake {
	return &Fake{status: initial}
}

func (f *Fake) Status(Capability) Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Fake) Request(_ Capability, resolved func(Status)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, resolved)
}

// Resolve completes every pending request with st.
func (f *Fake) Resolve(st Status) {
	f.mu.Lock()
	f.status = st
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()
	for _, cb := range pending {
		cb(st)
	}
}
