package main

import (
	"math/bits"
	"time"
)

const (
	tickInterval        = 100 * time.Millisecond
	silenceWarnEvery    = 8 * time.Second
	silenceAutoCloseDur = 30 * time.Second
	speechMinRatio      = 0.10
	speechClearRatio    = 0.25 // clearing a warning needs more speech than raising one
)

type SilenceEvent int

const (
	SilenceNone      SilenceEvent = iota
	SilenceWarn                   // no voice detected
	SilenceWarnClear              // speech resumed after warning
	SilenceRepeat                 // repeat warning (every 8s)
	SilenceAutoClose              // 30s auto-close (toggle sessions)
)

// silenceMonitor raises warnings when a recording runs quiet. Toggle
// sessions additionally auto-close after a long voiceless stretch, so
// a forgotten double-tap does not record forever. Per-tick speech
// flags live in a ring bitset spanning the auto-close window; ratio
// queries popcount over it.
type silenceMonitor struct {
	toggle func() bool

	warnSpan  int // ticks covered by the warning window
	closeSpan int // ticks covered by the auto-close window

	ring     []uint64
	tick     int
	warned   bool
	warnTick int // tick of the last warning raised
}

func newSilenceMonitor(isToggle func() bool) *silenceMonitor {
	closeSpan := int(silenceAutoCloseDur / tickInterval)
	return &silenceMonitor{
		toggle:    isToggle,
		warnSpan:  int(silenceWarnEvery / tickInterval),
		closeSpan: closeSpan,
		ring:      make([]uint64, (closeSpan+63)/64),
	}
}

func (m *silenceMonitor) mark(speech bool) {
	slot := m.tick % m.closeSpan
	if speech {
		m.ring[slot/64] |= 1 << (slot % 64)
	} else {
		m.ring[slot/64] &^= 1 << (slot % 64)
	}
	m.tick++
}

// recentSpeech counts speech ticks among the most recent span ticks,
// clamped to what has actually been observed.
func (m *silenceMonitor) recentSpeech(span int) (speech, seen int) {
	if m.tick < span {
		span = m.tick
	}
	for i := 1; i <= span; i++ {
		slot := (m.tick - i + m.closeSpan) % m.closeSpan
		if m.ring[slot/64]&(1<<(slot%64)) != 0 {
			speech++
		}
	}
	return speech, span
}

// totalSpeech popcounts the whole ring. Meaningful once the ring has
// wrapped, which is the only point auto-close consults it.
func (m *silenceMonitor) totalSpeech() int {
	n := 0
	for _, word := range m.ring {
		n += bits.OnesCount64(word)
	}
	return n
}

func (m *silenceMonitor) Tick(hasSpeech bool) SilenceEvent {
	m.mark(hasSpeech)

	speech, seen := m.recentSpeech(m.warnSpan)
	ratio := 1.0
	if seen > 0 {
		ratio = float64(speech) / float64(seen)
	}

	switch {
	case !m.warned && m.tick >= m.warnSpan && ratio < speechMinRatio:
		m.warned = true
		m.warnTick = m.tick
		return SilenceWarn
	case m.warned && ratio >= speechClearRatio:
		m.warned = false
		return SilenceWarnClear
	}

	if !m.toggle() {
		return SilenceNone
	}

	// Auto-close wins over a repeat warning on the same tick.
	if m.tick >= m.closeSpan && float64(m.totalSpeech())/float64(m.closeSpan) < speechMinRatio {
		return SilenceAutoClose
	}
	if m.warned && m.tick-m.warnTick >= m.warnSpan {
		m.warnTick = m.tick
		return SilenceRepeat
	}
	return SilenceNone
}
