// Package tts provides the secondary speech transport: a realtime
// websocket connection to Cartesia used to re-voice assistant transcript
// text in hybrid mode.
package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultCartesiaWSBase = "wss://api.cartesia.ai/tts/websocket"
	cartesiaVersion       = "2024-06-10"
	synthModelID          = "sonic-multilingual"
	synthSampleRate       = 44100

	// ConnectTimeout bounds the handshake. A provider that cannot answer
	// within this window is treated as unavailable for the whole session.
	ConnectTimeout = 5 * time.Second
)

// ErrNotConnected is returned by Speak before a successful Connect.
var ErrNotConnected = errors.New("cartesia: not connected")

// Config parameterizes the Cartesia connection. APIKey and VoiceID are
// supplied externally by the host application.
type Config struct {
	APIKey  string
	VoiceID string

	// BaseWSURL overrides the endpoint, used by tests.
	BaseWSURL string

	Logger *slog.Logger
}

// Cartesia is one realtime synthesis connection. Connect succeeds or fails
// within ConnectTimeout; connection failure is recoverable for the caller
// (fall back to native audio), never fatal to the session.
type Cartesia struct {
	cfg    Config
	logger *slog.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn

	mu        sync.Mutex
	connected bool

	chunks    chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	errMu           sync.Mutex
	lastServerError string
}

// New creates an unconnected Cartesia client.
func New(cfg Config) *Cartesia {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cartesia{
		cfg:    cfg,
		logger: logger,
		chunks: make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

// Connect dials the synthesis endpoint and performs the credential
// handshake, bounded by ConnectTimeout.
func (c *Cartesia) Connect(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return fmt.Errorf("cartesia api key is required")
	}
	if strings.TrimSpace(c.cfg.VoiceID) == "" {
		return fmt.Errorf("cartesia voice id is required")
	}

	base := strings.TrimSpace(c.cfg.BaseWSURL)
	if base == "" {
		base = defaultCartesiaWSBase
	}
	wsURL := base + "?cartesia_version=" + cartesiaVersion

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ConnectTimeout)
		defer cancel()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("cartesia dial: %w", err)
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	// One-time credential handshake.
	if err := c.writeJSON(ctx, map[string]any{
		"api_key":          strings.TrimSpace(c.cfg.APIKey),
		"cartesia_version": cartesiaVersion,
	}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("cartesia handshake: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Connected reports whether the handshake completed and the connection has
// not been closed.
func (c *Cartesia) Connected() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Speak submits one utterance for streaming synthesis. Valid only once
// connected; audio arrives asynchronously on Chunks.
func (c *Cartesia) Speak(ctx context.Context, text string) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	payload := synthesisRequest{
		ModelID:    synthModelID,
		Transcript: text,
		Voice:      voiceSpec{Mode: "id", ID: strings.TrimSpace(c.cfg.VoiceID)},
		OutputFormat: outputFormat{
			Container:  "raw",
			Encoding:   "pcm_f32le",
			SampleRate: synthSampleRate,
		},
		Continue: true,
	}
	if err := c.writeJSON(ctx, payload); err != nil {
		reason := c.failureReason()
		if reason != "" {
			return fmt.Errorf("cartesia speak: %w (%s)", err, reason)
		}
		return fmt.Errorf("cartesia speak: %w", err)
	}
	return nil
}

// Chunks yields raw pcm_f32le audio frames as they arrive. The channel is
// closed when the connection ends.
func (c *Cartesia) Chunks() <-chan []byte {
	if c == nil {
		ch := make(chan []byte)
		close(ch)
		return ch
	}
	return c.chunks
}

// Close tears down the connection. Idempotent and safe whether or not
// Connect succeeded.
func (c *Cartesia) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.writeMu.Lock()
		conn := c.conn
		c.writeMu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
	})
	return nil
}

func (c *Cartesia) readLoop(conn *websocket.Conn) {
	defer close(c.chunks)
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				c.setLastServerError(fmt.Sprintf("close code=%d msg=%s", closeErr.Code, strings.TrimSpace(closeErr.Text)))
			} else {
				c.setLastServerError(strings.TrimSpace(err.Error()))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			frame := append([]byte(nil), data...)
			select {
			case c.chunks <- frame:
			case <-c.closed:
				return
			}
		case websocket.TextMessage:
			var msg map[string]json.RawMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if serverErr := decodeString(msg["error"]); serverErr != "" {
				c.setLastServerError(serverErr)
				c.logger.Warn("cartesia server error", "error", serverErr)
			}
		default:
		}
	}
}

func (c *Cartesia) writeJSON(ctx context.Context, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	} else {
		_ = c.conn.SetWriteDeadline(time.Now().Add(ConnectTimeout))
	}
	return c.conn.WriteJSON(payload)
}

func (c *Cartesia) setLastServerError(msg string) {
	msg = strings.Join(strings.Fields(msg), " ")
	if msg == "" {
		return
	}
	if len(msg) > 300 {
		msg = msg[:300] + "…"
	}
	c.errMu.Lock()
	c.lastServerError = msg
	c.errMu.Unlock()
}

func (c *Cartesia) failureReason() string {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastServerError
}

type synthesisRequest struct {
	ModelID      string       `json:"model_id"`
	Transcript   string       `json:"transcript"`
	Voice        voiceSpec    `json:"voice"`
	OutputFormat outputFormat `json:"output_format"`
	Continue     bool         `json:"continue"`
}

type voiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type outputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

func decodeString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}
