package gesture

import (
	"sync"
	"time"
)

// FakeSource is a scriptable Source for tests.
type FakeSource struct {
	mu      sync.Mutex
	emit    func(Observation)
	started bool
	failed  error
}

func NewFakeSource() *FakeSource {
	return &FakeSource{}
}

// FailWith makes the next Start return err.
func (f *FakeSource) FailWith(err error) {
	f.mu.Lock()
	f.failed = err
	f.mu.Unlock()
}

func (f *FakeSource) Start(emit func(Observation)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed != nil {
		return f.failed
	}
	f.emit = emit
	f.started = true
	return nil
}

func (f *FakeSource) Stop() {
	f.mu.Lock()
	f.emit = nil
	f.started = false
	f.mu.Unlock()
}

func (f *FakeSource) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}

// Send emits one observation as if the OS had reported it.
func (f *FakeSource) Send(down bool, src SourceKind) {
	f.mu.Lock()
	emit := f.emit
	f.mu.Unlock()
	if emit != nil {
		emit(Observation{Down: down, Source: src, At: time.Now()})
	}
}

func (f *FakeSource) Press()   { f.Send(true, SourceChannel) }
func (f *FakeSource) Release() { f.Send(false, SourceChannel) }
