package transcriber

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFirstNonEmpty(t *testing.T) {
	h := http.Header{}
	h.Set("X-Rate-Limit", "100")

	if got := firstNonEmpty(h, "X-Missing", "X-Rate-Limit"); got != "100" {
		t.Errorf("got %q, want %q", got, "100")
	}
	if got := firstNonEmpty(h, "X-A", "X-B"); got != "?" {
		t.Errorf("got %q, want %q", got, "?")
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("carrier-pigeon"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestGroqTranscribe(t *testing.T) {
	var gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "HEAD" {
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing multipart: %v", err)
		}
		if r.FormValue("model") == "" {
			t.Error("missing model field")
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("x-ratelimit-remaining-requests", "41")
		w.Header().Set("x-ratelimit-limit-requests", "100")
		w.Write([]byte(`{"text":"hello there","duration":1.5}`))
	}))
	defer srv.Close()

	g := NewGroq("test-key")
	g.apiURL = srv.URL
	g.client = NewTracedClient(srv.URL)

	res, err := g.Transcribe(context.Background(), []byte("fakeaudio"), "flac")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello there" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Duration != 1.5 {
		t.Errorf("Duration = %v", res.Duration)
	}
	if res.RateLimit != "41/100" {
		t.Errorf("RateLimit = %q", res.RateLimit)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("Content-Type = %q", gotContentType)
	}
}

func TestGroqTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGroq("test-key")
	g.apiURL = srv.URL
	g.client = NewTracedClient(srv.URL)

	if _, err := g.Transcribe(context.Background(), []byte("x"), "wav"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestFakeTranscriberCountsCalls(t *testing.T) {
	f := NewFake("hi", nil)
	for i := 0; i < 3; i++ {
		if _, err := f.Transcribe(context.Background(), nil, "flac"); err != nil {
			t.Fatal(err)
		}
	}
	if f.Calls() != 3 {
		t.Fatalf("Calls = %d, want 3", f.Calls())
	}
}
