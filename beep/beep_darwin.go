//go:build darwin

package beep

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// player owns one shared malgo playback device. Cue PCM is precomputed
// at init; Play just points the render callback at a buffer.
type player struct {
	ctx *malgo.AllocatedContext
	dev *malgo.Device
	mu  sync.Mutex

	// render state, touched from the audio thread
	queued atomic.Pointer[[]byte]
	offset atomic.Uint32
}

var (
	shared   player
	cues     map[Cue][]byte
	initOnce sync.Once
)

func Init() {
	initOnce.Do(setup)
}

func Play(c Cue) {
	if disabled {
		return
	}
	initOnce.Do(setup)
	shared.play(cues[c])
}

func setup() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	shared.ctx = ctx

	cues = map[Cue][]byte{
		Start:  toneBytes(startFreq, 0.03, startVolume, startDecay),
		End:    toneBytes(endFreq, 0.05, endVolume, endDecay),
		Cancel: toneBytes(cancelFreq, 0.04, cancelVolume, cancelDecay),
		Error:  doubleToneBytes(errorFreq, 0.08, 0.05, errorVolume, errorDecay),
	}

	if err := shared.openDevice(); err != nil {
		ctx.Uninit()
		shared.ctx = nil
	}
}

func (p *player) openDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	dev, err := malgo.InitDevice(p.ctx.Context, config, malgo.DeviceCallbacks{
		Data: p.render,
	})
	if err != nil {
		return err
	}
	p.dev = dev
	return nil
}

// render streams the queued cue into the output buffer, zero-filling
// whatever is left of it.
func (p *player) render(out, _ []byte, frameCount uint32) {
	buf := p.queued.Load()
	if buf == nil {
		zero(out)
		return
	}

	pos := p.offset.Load()
	if pos >= uint32(len(*buf)) {
		p.queued.Store(nil)
		zero(out)
		return
	}

	n := uint32(copy(out, (*buf)[pos:]))
	p.offset.Store(pos + n)
	zero(out[n:])
}

func (p *player) play(pcm []byte) {
	if p.ctx == nil || len(pcm) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dev == nil {
		return
	}

	p.dev.Stop()
	p.offset.Store(0)
	p.queued.Store(&pcm)

	if err := p.dev.Start(); err != nil {
		// The device handle goes stale across macOS sleep/wake.
		// Recreate it once before giving up.
		p.dev.Uninit()
		if err := p.openDevice(); err != nil {
			p.queued.Store(nil)
			return
		}
		if err := p.dev.Start(); err != nil {
			p.queued.Store(nil)
		}
	}
}

func zero(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

func toneBytes(freq, duration, volume, decay float64) []byte {
	n := int(sampleRate * duration)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * math.Exp(-t*decay))
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

func doubleToneBytes(freq, toneDur, gapDur, volume, decay float64) []byte {
	tone := toneBytes(freq, toneDur, volume, decay)
	gap := make([]byte, int(sampleRate*gapDur)*2)
	out := make([]byte, 0, 2*len(tone)+len(gap))
	out = append(out, tone...)
	out = append(out, gap...)
	return append(out, tone...)
}
