package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"murmur/audio"
	"murmur/beep"
	"murmur/clipboard"
	"murmur/encoder"
	"murmur/log"
	"murmur/transcriber"
)

type sessionMode int

const (
	modeIdle sessionMode = iota
	modeHold
	modeToggle
)

const (
	transcribeTimeout = 60 * time.Second
	minRecordFrames   = encoder.SampleRate / 10 // ignore blips under 100ms
)

// Controller turns key gestures into recording sessions. Gesture
// handlers arrive on the engine's serial goroutine and must return
// quickly, so session teardown hands the pipeline off to a goroutine.
type Controller struct {
	capture   func() audio.CaptureDevice
	trans     transcriber.Transcriber
	format    string
	autoPaste bool
	send      func(tea.Msg)

	mu       sync.Mutex
	mode     sessionMode
	started  time.Time
	meter    *levelMeter
	tickDone chan struct{}

	// bufMu guards only the PCM buffer so the capture callback never
	// contends with gesture handling.
	bufMu   sync.Mutex
	pcm     []byte
	frames  uint64
	stopped bool

	busy atomic.Bool // a finished session is still transcribing
}

func NewController(capture func() audio.CaptureDevice, trans transcriber.Transcriber, format string, autoPaste bool, send func(tea.Msg)) *Controller {
	return &Controller{
		capture:   capture,
		trans:     trans,
		format:    format,
		autoPaste: autoPaste,
		send:      send,
		meter:     newLevelMeter(),
	}
}

func (c *Controller) HoldStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != modeIdle {
		return
	}
	log.Info("gesture: hold start")
	c.begin(modeHold)
}

func (c *Controller) HoldEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != modeHold {
		return
	}
	log.Info("gesture: hold end")
	c.end()
}

func (c *Controller) DoubleTap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.mode {
	case modeIdle:
		log.Info("gesture: double tap, toggle on")
		c.begin(modeToggle)
	case modeToggle:
		log.Info("gesture: double tap, toggle off")
		c.end()
	}
}

// SingleTap closes an open toggle session. When nothing is recording it
// is a no-op.
func (c *Controller) SingleTap() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != modeToggle {
		return
	}
	log.Info("gesture: single tap, toggle off")
	c.end()
}

func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode != modeIdle
}

// begin starts capture. Caller holds c.mu.
func (c *Controller) begin(mode sessionMode) {
	dev := c.capture()
	if dev == nil {
		return
	}
	if c.busy.Load() {
		log.Warn("recording skipped: previous transcription still running")
		return
	}

	c.meter.Reset()
	c.bufMu.Lock()
	c.pcm = c.pcm[:0]
	c.frames = 0
	c.stopped = false
	c.bufMu.Unlock()
	c.started = time.Now()

	dev.SetCallback(func(data []byte, frameCount uint32) {
		c.bufMu.Lock()
		if c.stopped {
			c.bufMu.Unlock()
			return
		}
		c.pcm = append(c.pcm, data...)
		c.frames += uint64(frameCount)
		c.bufMu.Unlock()
		c.meter.Process(data)
	})

	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		log.Errorf("capture start error: %v", err)
		c.send(LogMsg{Text: fmt.Sprintf("Error starting capture: %v", err)})
		beep.Play(beep.Error)
		return
	}

	c.mode = mode
	c.tickDone = make(chan struct{})
	go c.runTicker(mode, c.started, c.tickDone)

	c.send(RecordingStartMsg{})
	beep.Play(beep.Start)
	log.Info("recording_device: " + dev.DeviceName())
}

// runTicker drives the TUI timer and the silence monitor for one
// session.
func (c *Controller) runTicker(mode sessionMode, started time.Time, done chan struct{}) {
	mon := newSilenceMonitor(func() bool { return mode == modeToggle })
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.send(RecordingTickMsg{Duration: time.Since(started).Seconds()})
			c.send(AudioLevelMsg{Level: c.meter.Level()})
			switch mon.Tick(c.meter.HasSpeechTick()) {
			case SilenceWarn:
				log.Info("no_voice_warning")
				c.send(NoVoiceWarningMsg{})
				beep.Play(beep.Error)
			case SilenceWarnClear:
				c.send(VoiceClearedMsg{})
			case SilenceRepeat:
				log.Info("silence_during_warning")
				c.send(NoVoiceWarningMsg{})
				beep.Play(beep.Error)
			case SilenceAutoClose:
				log.Info("silence_auto_close")
				c.mu.Lock()
				if c.mode == modeToggle {
					c.end()
				}
				c.mu.Unlock()
				return
			}
		}
	}
}

// end stops capture and hands the audio to the transcription pipeline.
// Caller holds c.mu.
func (c *Controller) end() {
	c.bufMu.Lock()
	c.stopped = true
	frames := c.frames
	pcm := make([]byte, len(c.pcm))
	copy(pcm, c.pcm)
	c.bufMu.Unlock()

	dev := c.capture()
	if dev != nil {
		dev.Stop()
		dev.ClearCallback()
	}
	close(c.tickDone)
	c.mode = modeIdle

	recDur := time.Duration(float64(frames) / float64(encoder.SampleRate) * float64(time.Second))

	c.send(RecordingStopMsg{})
	log.Info("recording_stop")

	if frames < minRecordFrames {
		beep.Play(beep.Cancel)
		return
	}
	beep.Play(beep.End)

	c.busy.Store(true)
	go func() {
		defer c.busy.Store(false)
		c.transcribe(pcm, recDur)
	}()
}

func (c *Controller) transcribe(pcm []byte, recDur time.Duration) {
	encodeStart := time.Now()
	payload, format, err := c.encode(pcm)
	if err != nil {
		log.Errorf("encode error: %v", err)
		c.send(LogMsg{Text: fmt.Sprintf("Error encoding audio: %v", err)})
		beep.Play(beep.Error)
		return
	}
	encodeMs := time.Since(encodeStart).Milliseconds()

	ctx, cancel := context.WithTimeout(context.Background(), transcribeTimeout)
	defer cancel()

	result, err := c.trans.Transcribe(ctx, payload, format)
	if err != nil {
		log.Errorf("transcription error: %v", err)
		c.send(LogMsg{Text: fmt.Sprintf("Error: %v", err)})
		beep.Play(beep.Error)
		return
	}

	copied := false
	if result.Text != "" {
		if err := clipboard.Copy(result.Text); err != nil {
			log.Errorf("clipboard error: %v", err)
		} else {
			copied = true
			if c.autoPaste {
				if err := clipboard.Paste(); err != nil {
					log.Errorf("paste error: %v", err)
				}
			}
		}
	}

	metrics := resultMetrics(result, recDur, encodeMs, len(pcm), len(payload))
	noSpeech := result.Text == ""
	c.send(TranscriptionMsg{Text: displayText(result.Text), Metrics: metrics, Copied: copied, NoSpeech: noSpeech})
	if result.RateLimit != "" && result.RateLimit != "?/?" {
		c.send(RateLimitMsg{Text: "requests: " + result.RateLimit + " remaining"})
	}
	if noSpeech {
		log.Info("no_speech")
		return
	}
	tookMs := 0.0
	if result.Metrics != nil {
		tookMs = float64(result.Metrics.Total.Milliseconds())
	}
	log.Transcription(c.trans.Name(), len(result.Text), tookMs)
}

func (c *Controller) encode(pcm []byte) ([]byte, string, error) {
	switch c.format {
	case "flac":
		enc, err := encoder.NewFlac()
		if err != nil {
			return nil, "", err
		}
		if err := enc.Add(pcmToInt16(pcm)); err != nil {
			return nil, "", err
		}
		out, err := enc.Finish()
		if err != nil {
			return nil, "", err
		}
		return out, "flac", nil
	case "wav":
		return encoder.BuildWAV(pcm), "wav", nil
	default:
		return nil, "", fmt.Errorf("unknown format %q", c.format)
	}
}

func pcmToInt16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
	}
	return samples
}

func displayText(text string) string {
	if text == "" {
		return "(no speech detected)"
	}
	return text
}

func resultMetrics(r *transcriber.Result, recDur time.Duration, encodeMs int64, rawBytes, compBytes int) []string {
	lines := []string{
		fmt.Sprintf("audio: %.1fs, %0.1f KB raw, %0.1f KB sent", recDur.Seconds(), float64(rawBytes)/1024, float64(compBytes)/1024),
		fmt.Sprintf("encode: %dms", encodeMs),
	}
	if m := r.Metrics; m != nil {
		reused := "new conn"
		if m.ConnReused {
			reused = "reused conn"
		}
		lines = append(lines,
			fmt.Sprintf("network: ttfb %dms, total %dms (%s)", m.TTFB.Milliseconds(), m.Total.Milliseconds(), reused))
		if m.TLSProtocol != "" {
			lines = append(lines, "tls: "+m.TLSProtocol+fmt.Sprintf(" (%dms)", m.TLS.Milliseconds()))
		}
	}
	return lines
}
