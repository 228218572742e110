package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// FakeContext produces synthetic PCM so the recording pipeline can be
// exercised without a microphone.
type FakeContext struct{}

func NewFakeContext() *FakeContext { return &FakeContext{} }

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, cfg CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{rate: cfg.SampleRate}, nil
}

// FakeCapture delivers one chunk of a 440 Hz tone per Pump call;
// nothing is produced spontaneously so tests stay deterministic.
type FakeCapture struct {
	rate uint32

	mu  sync.Mutex
	cb  DataCallback
	pos int
}

func (f *FakeCapture) Start() error { return nil }

func (f *FakeCapture) DeviceName() string { return "fake" }
func (f *FakeCapture) Stop()        {}
func (f *FakeCapture) Close()       {}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

// Pump feeds frames samples of tone into the registered callback.
func (f *FakeCapture) Pump(frames int) {
	f.mu.Lock()
	cb := f.cb
	pos := f.pos
	f.pos += frames
	f.mu.Unlock()
	if cb == nil {
		return
	}
	data := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		t := float64(pos+i) / float64(f.rate)
		s := int16(math.Sin(2*math.Pi*440*t) * 16000)
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	cb(data, uint32(frames))
}
