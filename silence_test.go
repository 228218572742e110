package main

import "testing"

func holdMonitor() *silenceMonitor {
	return newSilenceMonitor(func() bool { return false })
}

func toggleMonitorOn() *silenceMonitor {
	return newSilenceMonitor(func() bool { return true })
}

// collectEvents feeds n ticks, every strideth one flagged as speech
// (stride 0 means all silence), and returns the non-None events in
// order.
func collectEvents(m *silenceMonitor, n, stride int) []SilenceEvent {
	var events []SilenceEvent
	for i := 0; i < n; i++ {
		speech := stride > 0 && i%stride == 0
		if ev := m.Tick(speech); ev != SilenceNone {
			events = append(events, ev)
		}
	}
	return events
}

func TestWarnFiresAtWindowEdge(t *testing.T) {
	m := holdMonitor()
	for i := 1; i < m.warnSpan; i++ {
		if ev := m.Tick(false); ev != SilenceNone {
			t.Fatalf("event %v on tick %d, before the window filled", ev, i)
		}
	}
	if ev := m.Tick(false); ev != SilenceWarn {
		t.Fatalf("tick %d: got %v, want SilenceWarn", m.warnSpan, ev)
	}
}

func TestWarnFiresOnlyOnce(t *testing.T) {
	m := holdMonitor()
	events := collectEvents(m, 3*m.warnSpan, 0)
	if len(events) != 1 || events[0] != SilenceWarn {
		t.Fatalf("events = %v, want a single SilenceWarn", events)
	}
}

func TestOccasionalSpeechPreventsWarn(t *testing.T) {
	m := holdMonitor()
	// One speech tick in five is 20%, above the warn threshold.
	if events := collectEvents(m, 3*m.closeSpan, 5); len(events) != 0 {
		t.Fatalf("unexpected events %v during intermittent speech", events)
	}
}

func TestWarnClearsAfterSustainedSpeech(t *testing.T) {
	m := holdMonitor()
	collectEvents(m, m.warnSpan, 0)

	cleared := false
	for i := 0; i < m.warnSpan; i++ {
		if ev := m.Tick(true); ev == SilenceWarnClear {
			cleared = true
			break
		}
	}
	if !cleared {
		t.Fatal("warning never cleared under sustained speech")
	}
}

func TestSparseSpeechDoesNotClearWarn(t *testing.T) {
	m := holdMonitor()
	collectEvents(m, m.warnSpan, 0)

	// 10% speech lifts the recent ratio above the warn threshold but
	// stays below the clear threshold, so the warning must hold.
	for i := 0; i < m.warnSpan; i++ {
		if ev := m.Tick(i%10 == 0); ev != SilenceNone {
			t.Fatalf("event %v while speech ratio below clear threshold", ev)
		}
	}
}

func TestToggleSessionWarnsRepeatsAndAutoCloses(t *testing.T) {
	m := toggleMonitorOn()
	events := collectEvents(m, m.closeSpan, 0)

	want := []SilenceEvent{SilenceWarn, SilenceRepeat, SilenceRepeat, SilenceAutoClose}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, events[i], want[i])
		}
	}
}

func TestHoldSessionNeverRepeatsOrAutoCloses(t *testing.T) {
	m := holdMonitor()
	for _, ev := range collectEvents(m, 2*m.closeSpan, 0) {
		if ev == SilenceRepeat || ev == SilenceAutoClose {
			t.Fatalf("%v raised outside a toggle session", ev)
		}
	}
}

func TestSpeechKeepsToggleSessionOpen(t *testing.T) {
	m := toggleMonitorOn()
	for _, ev := range collectEvents(m, 2*m.closeSpan, 3) {
		if ev == SilenceAutoClose {
			t.Fatal("auto-close despite regular speech")
		}
	}
}
