//go:build linux

package audio

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

// pulseBackend talks to PulseAudio (or pipewire-pulse) over its native
// protocol. No cgo, which keeps cross-compiles clean.
type pulseBackend struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseBackend{client: c}, nil
}

func (b *pulseBackend) Devices() ([]DeviceInfo, error) {
	sources, err := b.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(sources))
	for _, s := range sources {
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (b *pulseBackend) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	return &pulseRecorder{client: b.client, device: device, config: config}, nil
}

func (b *pulseBackend) Close() {
	b.client.Close()
}

type pulseRecorder struct {
	client   *pulse.Client
	device   *DeviceInfo
	config   CaptureConfig
	callback atomic.Pointer[DataCallback]

	mu     sync.Mutex
	stream *pulse.RecordStream
}

// deliver converts one server chunk to little-endian bytes and hands
// it to the registered callback, if any.
func (r *pulseRecorder) deliver(samples []int16) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	cb := r.callback.Load()
	if cb == nil {
		return len(samples), nil
	}
	(*cb)(int16LE(samples), uint32(len(samples)))
	return len(samples), nil
}

func (r *pulseRecorder) source() *pulse.Source {
	if r.device == nil {
		return nil
	}
	source, err := r.client.SourceByID(r.device.ID)
	if err != nil {
		return nil
	}
	return source
}

func (r *pulseRecorder) options() []pulse.RecordOption {
	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(int(r.config.SampleRate)),
		pulse.RecordLatency(0.05),
		pulse.RecordRawOption(func(req *proto.CreateRecordStream) {
			req.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm)}
		}),
	}
	if source := r.source(); source != nil {
		opts = append(opts, pulse.RecordSource(source))
	}
	return opts
}

func (r *pulseRecorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil {
		return nil
	}

	stream, err := r.client.NewRecord(pulse.Int16Writer(r.deliver), r.options()...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}
	stream.Start()
	r.stream = stream
	return nil
}

func (r *pulseRecorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream == nil {
		return
	}
	r.stream.Stop()
	r.stream.Close()
	r.stream = nil
}

func (r *pulseRecorder) Close() {
	r.Stop()
}

func (r *pulseRecorder) DeviceName() string {
	if r.device != nil {
		return r.device.Name
	}
	return "system default"
}

func (r *pulseRecorder) SetCallback(cb DataCallback) {
	r.callback.Store(&cb)
}

func (r *pulseRecorder) ClearCallback() {
	r.callback.Store(nil)
}

func int16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
