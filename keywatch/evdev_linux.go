//go:build linux

package keywatch

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"murmur/gesture"
	"murmur/log"
)

const (
	evSyn      = 0
	evKey      = 1
	synDropped = 3
	keyPress   = 1
	keyRelease = 0
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

const rearmDelay = 2 * time.Second

// Channel is the low-level observation source: it reads key events
// straight from /dev/input. Opening the devices requires membership in
// the 'input' group; the kernel may revoke an fd at any time (device
// unplug, seat revocation), in which case the reader re-arms itself.
type Channel struct {
	code  uint16
	probe Probe

	mu    sync.Mutex
	emit  func(gesture.Observation)
	stop  chan struct{}
	files []*os.File
	wg    sync.WaitGroup
}

// NewChannel watches the given evdev key code. probe is consulted when
// the kernel signals that events were dropped and the stream can no
// longer be trusted; it may be nil.
func NewChannel(code uint16, probe Probe) *Channel {
	return &Channel{code: code, probe: probe}
}

func (c *Channel) Start(emit func(gesture.Observation)) error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	c.mu.Lock()
	if c.stop != nil {
		c.mu.Unlock()
		return nil
	}
	c.stop = make(chan struct{})
	c.emit = emit
	stop := c.stop
	c.mu.Unlock()

	opened := 0
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			opened++
		}
		c.wg.Add(1)
		go c.watch(path, stop)
	}
	if opened == 0 {
		c.Stop()
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}
	return nil
}

func (c *Channel) Stop() {
	c.mu.Lock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	files := c.files
	c.files = nil
	c.emit = nil
	c.mu.Unlock()

	for _, f := range files {
		f.Close()
	}
	c.wg.Wait()
}

// watch owns one device node for the life of the channel. A failed
// read means the fd was revoked; re-open after a short delay so
// detection quality degrades to monitor/poll latency instead of dying.
func (c *Channel) watch(path string, stop chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}

		f, err := os.Open(path)
		if err != nil {
			if !sleepOrStop(rearmDelay, stop) {
				return
			}
			continue
		}
		c.track(f)
		c.readEvents(f, stop)
		c.untrack(f)

		select {
		case <-stop:
			return
		default:
			log.Warnf("keywatch: channel %s dropped, re-arming", filepath.Base(path))
		}
		if !sleepOrStop(rearmDelay, stop) {
			return
		}
	}
}

func (c *Channel) track(f *os.File) {
	c.mu.Lock()
	c.files = append(c.files, f)
	c.mu.Unlock()
}

// untrack closes f and drops it from the tracked set, so re-armed
// watches do not pile up stale fds for Stop to double-close.
func (c *Channel) untrack(f *os.File) {
	c.mu.Lock()
	for i, tracked := range c.files {
		if tracked == f {
			c.files = append(c.files[:i], c.files[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	f.Close()
}

func (c *Channel) readEvents(f *os.File, stop chan struct{}) {
	buf := make([]byte, inputEventSize*16)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for _, ev := range decodeEvents(buf, n) {
			c.handle(ev)
		}
	}
}

type inputEvent struct {
	typ   uint16
	code  uint16
	value int32
}

func decodeEvents(buf []byte, n int) []inputEvent {
	var events []inputEvent
	for i := 0; i+inputEventSize <= n; i += inputEventSize {
		events = append(events, inputEvent{
			typ:   binary.LittleEndian.Uint16(buf[i+16:]),
			code:  binary.LittleEndian.Uint16(buf[i+18:]),
			value: int32(binary.LittleEndian.Uint32(buf[i+20:])),
		})
	}
	return events
}

// handle filters the raw stream down to clean tracked-key edges. On
// SYN_DROPPED the kernel lost events and the report no longer
// attributes reliably, so the hardware probe is authoritative and the
// stream's claim is discarded.
func (c *Channel) handle(ev inputEvent) {
	switch {
	case ev.typ == evSyn && ev.code == synDropped:
		if c.probe == nil {
			return
		}
		down, err := c.probe.Down()
		if err != nil {
			return
		}
		c.send(down)
	case ev.typ == evKey && ev.code == c.code:
		switch ev.value {
		case keyPress:
			c.send(true)
		case keyRelease:
			c.send(false)
		}
		// value 2 is auto-repeat: not an edge.
	}
}

func (c *Channel) send(down bool) {
	c.mu.Lock()
	emit := c.emit
	c.mu.Unlock()
	if emit != nil {
		emit(gesture.Observation{Down: down, Source: gesture.SourceChannel, At: time.Now()})
	}
}

func sleepOrStop(d time.Duration, stop chan struct{}) bool {
	select {
	case <-time.After(d):
		return true
	case <-stop:
		return false
	}
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}

// Diagnose reports whether the low-level channel can be used at all.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	var opened string
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err == nil {
			f.Close()
			opened = path
			break
		}
	}
	if opened == "" {
		return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
	}

	return fmt.Sprintf("%d keyboard(s) found, opened %s", len(keyboards), opened), nil
}
