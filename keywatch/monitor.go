package keywatch

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.design/x/hotkey"

	"murmur/gesture"
)

// Monitor observes the tracked key through the system hotkey facility.
// It needs no elevated capability, so it is the source of record while
// the low-level channel is denied. It also shadows the last seen state
// so it can stand in as a Probe on platforms without a hardware one.
type Monitor struct {
	hk   *hotkey.Hotkey
	down atomic.Bool

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewMonitor() *Monitor {
	return &Monitor{hk: hotkey.New(nil, monitorKey)}
}

func (m *Monitor) Start(emit func(gesture.Observation)) error {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return nil
	}
	if err := m.hk.Register(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("registering passive monitor: %w", err)
	}
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-m.hk.Keydown():
				m.down.Store(true)
				emit(gesture.Observation{Down: true, Source: gesture.SourceMonitor, At: time.Now()})
			case <-m.hk.Keyup():
				m.down.Store(false)
				emit(gesture.Observation{Down: false, Source: gesture.SourceMonitor, At: time.Now()})
			}
		}
	}()
	return nil
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stop == nil {
		m.mu.Unlock()
		return
	}
	close(m.stop)
	m.stop = nil
	m.mu.Unlock()
	m.hk.Unregister()
	m.wg.Wait()
	m.down.Store(false)
}

// Down implements Probe from the monitor's shadowed state.
func (m *Monitor) Down() (bool, error) {
	return m.down.Load(), nil
}
