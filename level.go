package main

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"murmur/encoder"
)

const (
	levelFrameMs    = 20
	levelFrameBytes = encoder.SampleRate * levelFrameMs / 1000 * 2
	speechRMS       = 0.015 // energy floor for a frame to count as speech
	speechDebounce  = 3     // consecutive speech frames to confirm voice
)

// levelMeter tracks RMS energy of the capture stream. It feeds the TUI
// level bar and gates the silence monitor.
type levelMeter struct {
	mu            sync.Mutex
	buf           []byte
	level         float64
	voiceDetected bool
	lastVoiceTime time.Time
	speechRun     int
	totalFrames   int
	speechFrames  int
	tickTotal     int
	tickSpeech    int
}

func newLevelMeter() *levelMeter {
	return &levelMeter{}
}

func frameRMS(frame []byte) float64 {
	var sumSquares float64
	for i := 0; i+1 < len(frame); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(frame[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	n := len(frame) / 2
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSquares / float64(n))
}

func (m *levelMeter) Process(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf = append(m.buf, data...)
	for len(m.buf) >= levelFrameBytes {
		frame := m.buf[:levelFrameBytes]
		m.buf = m.buf[levelFrameBytes:]

		rms := frameRMS(frame)
		m.level = m.level*0.6 + rms*0.4
		m.totalFrames++
		if rms >= speechRMS {
			m.speechFrames++
			m.speechRun++
			if m.voiceDetected {
				m.lastVoiceTime = time.Now()
			} else if m.speechRun >= speechDebounce {
				m.voiceDetected = true
				m.lastVoiceTime = time.Now()
			}
		} else {
			m.speechRun = 0
		}
	}
}

func (m *levelMeter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

func (m *levelMeter) VoiceDetected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voiceDetected
}

// HasSpeechTick reports whether enough frames since the last call
// carried speech energy.
func (m *levelMeter) HasSpeechTick() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.totalFrames - m.tickTotal
	s := m.speechFrames - m.tickSpeech
	m.tickTotal, m.tickSpeech = m.totalFrames, m.speechFrames
	if t == 0 {
		return false
	}
	return float64(s)/float64(t) >= speechMinRatio
}

func (m *levelMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf = m.buf[:0]
	m.level = 0
	m.voiceDetected = false
	m.lastVoiceTime = time.Time{}
	m.speechRun = 0
	m.totalFrames = 0
	m.speechFrames = 0
	m.tickTotal = 0
	m.tickSpeech = 0
}
