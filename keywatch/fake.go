package keywatch

import "sync"

// FakeProbe is a scriptable Probe for tests.
type FakeProbe struct {
	mu   sync.Mutex
	down bool
	err  error
}

func NewFakeProbe() *FakeProbe {
	return &FakeProbe{}
}

func (f *FakeProbe) Set(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *FakeProbe) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *FakeProbe) Down() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down, f.err
}
