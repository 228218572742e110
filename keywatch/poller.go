package keywatch

import (
	"fmt"
	"sync"
	"time"

	"murmur/gesture"
)

// Poller samples the probe on a fixed interval and reports only the
// edges it sees itself. It never carries the primary signal; it exists
// to recover a press or release the push channels silently dropped.
type Poller struct {
	probe    Probe
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewPoller(probe Probe, interval time.Duration) *Poller {
	return &Poller{probe: probe, interval: interval}
}

func (p *Poller) Start(emit func(gesture.Observation)) error {
	if p.interval <= 0 {
		return fmt.Errorf("poller: non-positive interval %v", p.interval)
	}
	p.mu.Lock()
	if p.stop != nil {
		p.mu.Unlock()
		return nil
	}
	p.stop = make(chan struct{})
	stop := p.stop
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(emit, stop)
	return nil
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Poller) run(emit func(gesture.Observation), stop chan struct{}) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last, known bool
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		down, err := p.probe.Down()
		if err != nil {
			continue
		}
		if known && down == last {
			continue
		}
		last, known = down, true
		emit(gesture.Observation{Down: down, Source: gesture.SourcePoller, At: time.Now()})
	}
}
