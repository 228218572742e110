//go:build linux

package keywatch

import (
	"encoding/binary"
	"errors"
	"os"
	"testing"

	"murmur/gesture"
)

func packEvent(typ, code uint16, value int32) []byte {
	buf := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(buf[16:], typ)
	binary.LittleEndian.PutUint16(buf[18:], code)
	binary.LittleEndian.PutUint32(buf[20:], uint32(value))
	return buf
}

func TestDecodeEvents(t *testing.T) {
	var buf []byte
	buf = append(buf, packEvent(evKey, DefaultKeyCode, keyPress)...)
	buf = append(buf, packEvent(evSyn, 0, 0)...)
	buf = append(buf, packEvent(evKey, DefaultKeyCode, keyRelease)...)

	events := decodeEvents(buf, len(buf))
	if len(events) != 3 {
		t.Fatalf("decoded %d events, want 3", len(events))
	}
	if events[0].typ != evKey || events[0].code != DefaultKeyCode || events[0].value != keyPress {
		t.Fatalf("bad first event: %+v", events[0])
	}
	if events[2].value != keyRelease {
		t.Fatalf("bad third event: %+v", events[2])
	}
}

func TestDecodeEventsIgnoresTrailingPartial(t *testing.T) {
	buf := append(packEvent(evKey, DefaultKeyCode, keyPress), 0xde, 0xad)
	events := decodeEvents(buf, len(buf))
	if len(events) != 1 {
		t.Fatalf("decoded %d events, want 1", len(events))
	}
}

func channelForTest(probe Probe) (*Channel, *obsSink) {
	c := NewChannel(DefaultKeyCode, probe)
	sink := &obsSink{}
	c.emit = sink.emit
	return c, sink
}

func TestHandleFiltersOtherKeys(t *testing.T) {
	c, sink := channelForTest(nil)

	c.handle(inputEvent{typ: evKey, code: 57, value: keyPress}) // space
	c.handle(inputEvent{typ: evKey, code: DefaultKeyCode, value: keyPress})
	c.handle(inputEvent{typ: evKey, code: 57, value: keyRelease})
	c.handle(inputEvent{typ: evKey, code: DefaultKeyCode, value: keyRelease})

	got := sink.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(got))
	}
	if !got[0].Down || got[1].Down {
		t.Fatalf("wrong edges: %+v", got)
	}
	if got[0].Source != gesture.SourceChannel {
		t.Fatalf("wrong source: %v", got[0].Source)
	}
}

func TestHandleIgnoresAutoRepeat(t *testing.T) {
	c, sink := channelForTest(nil)

	c.handle(inputEvent{typ: evKey, code: DefaultKeyCode, value: keyPress})
	c.handle(inputEvent{typ: evKey, code: DefaultKeyCode, value: 2})
	c.handle(inputEvent{typ: evKey, code: DefaultKeyCode, value: 2})

	if got := sink.snapshot(); len(got) != 1 {
		t.Fatalf("auto-repeat leaked: %d observations", len(got))
	}
}

func TestSynDroppedConsultsProbe(t *testing.T) {
	probe := NewFakeProbe()
	probe.Set(true)
	c, sink := channelForTest(probe)

	c.handle(inputEvent{typ: evSyn, code: synDropped})

	got := sink.snapshot()
	if len(got) != 1 || !got[0].Down {
		t.Fatalf("expected probe-backed down observation, got %+v", got)
	}
}

func TestSynDroppedWithFailingProbeStaysSilent(t *testing.T) {
	probe := NewFakeProbe()
	probe.Fail(errors.New("stale"))
	c, sink := channelForTest(probe)

	c.handle(inputEvent{typ: evSyn, code: synDropped})

	if got := sink.snapshot(); len(got) != 0 {
		t.Fatalf("expected no observation, got %+v", got)
	}
}

func TestUntrackPrunesReArmedWatches(t *testing.T) {
	c, _ := channelForTest(nil)

	// Each re-arm cycle tracks a fresh fd; the previous one must not
	// linger for Stop to close a second time.
	for i := 0; i < 3; i++ {
		f, err := os.Open(os.DevNull)
		if err != nil {
			t.Fatal(err)
		}
		c.track(f)
		c.untrack(f)
	}

	c.mu.Lock()
	tracked := len(c.files)
	c.mu.Unlock()
	if tracked != 0 {
		t.Fatalf("%d stale fds still tracked after re-arm cycles", tracked)
	}
}

func TestSynDroppedWithoutProbeStaysSilent(t *testing.T) {
	c, sink := channelForTest(nil)
	c.handle(inputEvent{typ: evSyn, code: synDropped})
	if got := sink.snapshot(); len(got) != 0 {
		t.Fatalf("expected no observation, got %+v", got)
	}
}
