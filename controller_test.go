package main

import (
	"os"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"murmur/audio"
	"murmur/beep"
	"murmur/transcriber"
)

func TestMain(m *testing.M) {
	beep.Disable()
	os.Exit(m.Run())
}

type msgSink struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *msgSink) send(msg tea.Msg) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
}

func (s *msgSink) waitTranscription(t *testing.T) TranscriptionMsg {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		for _, m := range s.msgs {
			if tm, ok := m.(TranscriptionMsg); ok {
				s.mu.Unlock()
				return tm
			}
		}
		s.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for transcription")
	return TranscriptionMsg{}
}

func (s *msgSink) has(t *testing.T, match func(tea.Msg) bool) bool {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if match(m) {
			return true
		}
	}
	return false
}

func newTestController(t *testing.T, trans transcriber.Transcriber) (*Controller, *audio.FakeCapture, *msgSink) {
	t.Helper()
	ctx := audio.NewFakeContext()
	dev, err := ctx.NewCapture(nil, audio.CaptureConfig{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	fake := dev.(*audio.FakeCapture)
	sink := &msgSink{}
	ctrl := NewController(func() audio.CaptureDevice { return dev }, trans, "wav", false, sink.send)
	return ctrl, fake, sink
}

func TestHoldSessionTranscribes(t *testing.T) {
	fakeTrans := transcriber.NewFake("hello world", nil)
	ctrl, capture, sink := newTestController(t, fakeTrans)

	ctrl.HoldStart()
	if !ctrl.Recording() {
		t.Fatal("expected recording after hold start")
	}
	capture.Pump(8000) // half a second of audio
	ctrl.HoldEnd()
	if ctrl.Recording() {
		t.Fatal("expected idle after hold end")
	}

	msg := sink.waitTranscription(t)
	if msg.Text != "hello world" {
		t.Errorf("Text = %q", msg.Text)
	}
	if fakeTrans.Calls() != 1 {
		t.Errorf("Calls = %d, want 1", fakeTrans.Calls())
	}
}

func TestShortBlipDiscarded(t *testing.T) {
	fakeTrans := transcriber.NewFake("x", nil)
	ctrl, capture, _ := newTestController(t, fakeTrans)

	ctrl.HoldStart()
	capture.Pump(100) // well under the minimum
	ctrl.HoldEnd()

	time.Sleep(50 * time.Millisecond)
	if fakeTrans.Calls() != 0 {
		t.Fatalf("Calls = %d, want 0 for blip", fakeTrans.Calls())
	}
}

func TestDoubleTapToggles(t *testing.T) {
	fakeTrans := transcriber.NewFake("toggled", nil)
	ctrl, capture, sink := newTestController(t, fakeTrans)

	ctrl.DoubleTap()
	if !ctrl.Recording() {
		t.Fatal("expected recording after double tap")
	}
	capture.Pump(8000)
	ctrl.DoubleTap()
	if ctrl.Recording() {
		t.Fatal("expected idle after second double tap")
	}
	if msg := sink.waitTranscription(t); msg.Text != "toggled" {
		t.Errorf("Text = %q", msg.Text)
	}
}

func TestSingleTapEndsToggleSession(t *testing.T) {
	fakeTrans := transcriber.NewFake("stopped", nil)
	ctrl, capture, sink := newTestController(t, fakeTrans)

	ctrl.DoubleTap()
	capture.Pump(8000)
	ctrl.SingleTap()
	if ctrl.Recording() {
		t.Fatal("expected idle after single tap")
	}
	sink.waitTranscription(t)
}

func TestSingleTapIdleIsNoop(t *testing.T) {
	fakeTrans := transcriber.NewFake("x", nil)
	ctrl, _, _ := newTestController(t, fakeTrans)

	ctrl.SingleTap()
	ctrl.HoldEnd()
	if ctrl.Recording() {
		t.Fatal("unexpected recording")
	}
	if fakeTrans.Calls() != 0 {
		t.Fatalf("Calls = %d, want 0", fakeTrans.Calls())
	}
}

func TestSingleTapDoesNotEndHoldSession(t *testing.T) {
	fakeTrans := transcriber.NewFake("x", nil)
	ctrl, capture, _ := newTestController(t, fakeTrans)

	ctrl.HoldStart()
	capture.Pump(2000)
	ctrl.SingleTap()
	if !ctrl.Recording() {
		t.Fatal("single tap must not end a hold session")
	}
	ctrl.HoldEnd()
}

func TestTranscriptionErrorReported(t *testing.T) {
	fakeTrans := transcriber.NewFake("", os.ErrDeadlineExceeded)
	ctrl, capture, sink := newTestController(t, fakeTrans)

	ctrl.HoldStart()
	capture.Pump(8000)
	ctrl.HoldEnd()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.has(t, func(m tea.Msg) bool { _, ok := m.(LogMsg); return ok }) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected an error message in the TUI stream")
}
