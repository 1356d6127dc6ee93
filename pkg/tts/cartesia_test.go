package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// synthServer fakes the Cartesia endpoint: it records the handshake and
// every synthesis request, and answers each request with one binary frame.
type synthServer struct {
	handshake map[string]any
	requests  chan synthesisRequest
}

func newSynthServer(t *testing.T) (*synthServer, *httptest.Server) {
	t.Helper()
	s := &synthServer{requests: make(chan synthesisRequest, 8)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("cartesia_version"); got != cartesiaVersion {
			t.Errorf("cartesia_version query = %q, want %q", got, cartesiaVersion)
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if err := conn.ReadJSON(&s.handshake); err != nil {
			return
		}
		for {
			var req synthesisRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			s.requests <- req
			if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return s, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestCartesiaHandshakeAndSpeak(t *testing.T) {
	server, srv := newSynthServer(t)

	c := New(Config{APIKey: "key-123", VoiceID: "voice-abc", BaseWSURL: wsURL(srv)})
	defer c.Close()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if err := c.Speak(context.Background(), "Bienvenido a Guests Valencia."); err != nil {
		t.Fatalf("Speak error: %v", err)
	}

	var req synthesisRequest
	select {
	case req = <-server.requests:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for synthesis request")
	}

	if server.handshake["api_key"] != "key-123" {
		t.Errorf("handshake api_key = %v", server.handshake["api_key"])
	}
	if server.handshake["cartesia_version"] != cartesiaVersion {
		t.Errorf("handshake cartesia_version = %v", server.handshake["cartesia_version"])
	}
	if req.ModelID != synthModelID {
		t.Errorf("model_id = %q, want %q", req.ModelID, synthModelID)
	}
	if req.Transcript != "Bienvenido a Guests Valencia." {
		t.Errorf("transcript = %q", req.Transcript)
	}
	if req.Voice.Mode != "id" || req.Voice.ID != "voice-abc" {
		t.Errorf("voice = %+v", req.Voice)
	}
	if req.OutputFormat.Container != "raw" || req.OutputFormat.Encoding != "pcm_f32le" || req.OutputFormat.SampleRate != synthSampleRate {
		t.Errorf("output_format = %+v", req.OutputFormat)
	}
	if !req.Continue {
		t.Error("continue flag not set")
	}

	select {
	case frame := <-c.Chunks():
		if len(frame) != 4 {
			t.Errorf("frame length = %d, want 4", len(frame))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audio frame")
	}
}

func TestCartesiaConnectTimesOut(t *testing.T) {
	// Endpoint accepts TCP but never completes the websocket upgrade.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", VoiceID: "voice", BaseWSURL: wsURL(srv)})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Connect(ctx)
	if err == nil {
		t.Fatal("expected connect failure")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("connect took %v, should have been bounded by the deadline", elapsed)
	}
	if c.Connected() {
		t.Fatal("client reports connected after failed handshake")
	}
}

func TestCartesiaSpeakBeforeConnect(t *testing.T) {
	c := New(Config{APIKey: "key", VoiceID: "voice"})
	err := c.Speak(context.Background(), "hola")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("error = %v, want ErrNotConnected", err)
	}
}

func TestCartesiaRequiresCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing api key", cfg: Config{VoiceID: "voice"}},
		{name: "missing voice id", cfg: Config{APIKey: "key"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New(tt.cfg).Connect(context.Background()); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCartesiaCloseIsIdempotent(t *testing.T) {
	_, srv := newSynthServer(t)

	c := New(Config{APIKey: "key", VoiceID: "voice", BaseWSURL: wsURL(srv)})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	if c.Connected() {
		t.Fatal("client reports connected after Close")
	}

	// The chunk stream drains and closes once the connection ends.
	select {
	case _, ok := <-c.Chunks():
		if ok {
			t.Fatal("unexpected frame after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chunk channel not closed after Close")
	}
}

func TestCartesiaSurfacesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var handshake json.RawMessage
		if err := conn.ReadJSON(&handshake); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]string{"error": "invalid voice id"})
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := New(Config{APIKey: "key", VoiceID: "voice", BaseWSURL: wsURL(srv)})
	defer c.Close()
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.failureReason() == "invalid voice id" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("failure reason = %q, want server error recorded", c.failureReason())
}
