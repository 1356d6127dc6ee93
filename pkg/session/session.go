// Package session orchestrates one live voice conversation: a primary
// realtime transport to the conversational service, an optional secondary
// speech transport for re-voicing, microphone capture upstream, and
// gapless playback scheduling downstream.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guestsvalencia/galaxy-live/pkg/audio"
)

const (
	defaultGreeting = "SYSTEM: Di exactamente: 'Hola, buenas. Soy Sandra de Guests Valencia. ¿En qué puedo ayudarte hoy?'"

	defaultGreetingDelay = 500 * time.Millisecond
	videoFrameInterval   = time.Second
	speechConnectBound   = 5 * time.Second
)

// AudioCapture is the upstream microphone pipeline.
// *audio.CapturePipeline satisfies it.
type AudioCapture interface {
	Start(onFrame func(pcm []byte)) error
	Stop() error
}

// Playback schedules decoded audio for gapless output.
// *audio.Scheduler satisfies it.
type Playback interface {
	Schedule(chunk audio.Chunk) (time.Duration, error)
	Reset() error
}

// Config holds per-session settings. The zero value requests native
// voice with the default opening utterance.
type Config struct {
	// Mode is the requested voice mode. Hybrid silently degrades to
	// native when the speech transport is missing or fails to connect.
	Mode VoiceMode

	// Greeting is the scripted opening instruction sent once the
	// session is up. Empty selects the default.
	Greeting string

	// GreetingDelay is how long to wait after connecting before
	// sending the greeting. Zero selects the default.
	GreetingDelay time.Duration

	// VideoInterval is the camera sideband cadence. Zero selects the
	// default of one frame per second.
	VideoInterval time.Duration

	// TranscriptCap bounds the in-memory transcript.
	TranscriptCap int
}

// Dependencies are the injected collaborators. Primary and Playback are
// required; the rest are optional.
type Dependencies struct {
	Primary  PrimaryTransport
	Speech   SpeechTransport
	Capture  AudioCapture
	Playback Playback
	Logger   *slog.Logger

	// Tools maps tool names to host handlers. Calls without a handler
	// are acknowledged so the conversation never stalls.
	Tools map[ToolName]ToolHandler

	// OnState observes lifecycle transitions.
	OnState func(State)
	// OnTranscript observes transcript fragments as they stream in.
	OnTranscript func(Role, string)
	// OnVisualState observes avatar state changes requested by the model.
	OnVisualState func(string)
}

// Session is one live conversation. Create with New, start with Connect,
// end with Disconnect. A Session is not reusable after it terminates.
type Session struct {
	cfg    Config
	deps   Dependencies
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	mode    VoiceMode
	lastErr error

	frameMu    sync.Mutex
	latestJPEG []byte
	frameDirty bool

	transcript  *Transcript
	pending     strings.Builder
	pendingUser strings.Builder

	ready     atomic.Bool
	runCtx    context.Context
	runCancel context.CancelFunc
	closeOnce sync.Once
}

// New validates the dependencies and returns an idle session.
func New(cfg Config, deps Dependencies) (*Session, error) {
	if deps.Primary == nil {
		return nil, fmt.Errorf("session: primary transport is required")
	}
	if deps.Playback == nil {
		return nil, fmt.Errorf("session: playback scheduler is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = VoiceModeNative
	}
	if cfg.Greeting == "" {
		cfg.Greeting = defaultGreeting
	}
	if cfg.GreetingDelay <= 0 {
		cfg.GreetingDelay = defaultGreetingDelay
	}
	if cfg.VideoInterval <= 0 {
		cfg.VideoInterval = videoFrameInterval
	}
	return &Session{
		cfg:        cfg,
		deps:       deps,
		logger:     logger,
		state:      StateIdle,
		mode:       cfg.Mode,
		transcript: NewTranscript(cfg.TranscriptCap),
	}, nil
}

// Connect brings the session up: microphone first, then the speech
// transport if hybrid was requested, then the primary transport. It
// returns once the connection is established; the opening utterance goes
// out asynchronously and the session turns LIVE on the first piece of
// inbound content.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session: connect from %s is not allowed", state)
	}
	s.mu.Unlock()
	s.setState(StateConnecting)

	// Microphone access is the precondition for everything else. A
	// denied device must fail the session before any network dial.
	if s.deps.Capture != nil {
		if err := s.deps.Capture.Start(s.onMicFrame); err != nil {
			err = fmt.Errorf("session: microphone capture: %w", err)
			s.fail(err)
			return err
		}
	}

	s.resolveMode(ctx)

	if err := s.deps.Primary.Connect(ctx); err != nil {
		err = fmt.Errorf("session: primary transport: %w", err)
		if s.deps.Capture != nil {
			_ = s.deps.Capture.Stop()
		}
		if s.deps.Speech != nil {
			_ = s.deps.Speech.Close()
		}
		s.fail(err)
		return err
	}
	s.setState(StateConnected)
	s.logger.Info("live session connected", "mode", s.Mode())

	s.runCtx, s.runCancel = context.WithCancel(context.Background())
	s.ready.Store(true)

	go s.eventLoop()
	go s.videoLoop()
	if s.Mode() == VoiceModeHybrid {
		go s.speechLoop()
	}
	go s.sendGreeting()

	return nil
}

// resolveMode freezes the voice mode for the session. A hybrid request
// degrades to native when the speech transport is missing or does not
// come up within the connection bound.
func (s *Session) resolveMode(ctx context.Context) {
	if s.cfg.Mode != VoiceModeHybrid {
		return
	}
	if s.deps.Speech == nil {
		s.logger.Warn("hybrid voice requested without a speech transport, using native voice")
		s.setMode(VoiceModeNative)
		return
	}
	speechCtx, cancel := context.WithTimeout(ctx, speechConnectBound)
	defer cancel()
	if err := s.deps.Speech.Connect(speechCtx); err != nil {
		s.logger.Warn("speech transport unavailable, falling back to native voice", "error", err)
		s.setMode(VoiceModeNative)
		return
	}
	s.setMode(VoiceModeHybrid)
}

func (s *Session) sendGreeting() {
	timer := time.NewTimer(s.cfg.GreetingDelay)
	defer timer.Stop()
	select {
	case <-s.runCtx.Done():
		return
	case <-timer.C:
	}
	if err := s.deps.Primary.SendText(s.runCtx, s.cfg.Greeting, true); err != nil {
		s.logger.Error("opening utterance failed", "error", err)
		s.fail(fmt.Errorf("session: opening utterance: %w", err))
	}
}

// markLive promotes CONNECTED to LIVE. Called on the first inbound
// content from the remote side; a no-op in every other state.
func (s *Session) markLive() {
	s.mu.Lock()
	if s.state != StateConnected {
		s.mu.Unlock()
		return
	}
	s.state = StateLive
	s.mu.Unlock()
	s.logger.Info("session state changed", "state", StateLive)
	if s.deps.OnState != nil {
		s.deps.OnState(StateLive)
	}
}

// onMicFrame forwards one capture frame upstream. Frames arriving before
// the transport is up or after teardown are dropped.
func (s *Session) onMicFrame(pcm []byte) {
	if !s.ready.Load() {
		return
	}
	if err := s.deps.Primary.SendAudio(s.runCtx, pcm); err != nil {
		s.logger.Warn("dropping microphone frame", "error", err)
	}
}

// PushVideoFrame stores one JPEG camera frame for the next sideband
// tick. Only the most recent frame is kept; each stored frame is sent at
// most once.
func (s *Session) PushVideoFrame(jpeg []byte) {
	if len(jpeg) == 0 {
		return
	}
	s.frameMu.Lock()
	s.latestJPEG = append(s.latestJPEG[:0], jpeg...)
	s.frameDirty = true
	s.frameMu.Unlock()
}

func (s *Session) videoLoop() {
	ticker := time.NewTicker(s.cfg.VideoInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.runCtx.Done():
			return
		case <-ticker.C:
		}
		s.frameMu.Lock()
		if !s.frameDirty {
			s.frameMu.Unlock()
			continue
		}
		frame := append([]byte(nil), s.latestJPEG...)
		s.frameDirty = false
		s.frameMu.Unlock()

		if err := s.deps.Primary.SendVideoFrame(s.runCtx, frame); err != nil {
			s.logger.Warn("dropping camera frame", "error", err)
		}
	}
}

func (s *Session) speechLoop() {
	for pcm := range s.deps.Speech.Chunks() {
		// Frames off the wire are untrusted; a truncated one is
		// dropped and playback continues with the next.
		if _, err := audio.DecodeFloat32LE(pcm); err != nil {
			s.logger.Warn("dropping malformed synthesized audio", "error", err, "bytes", len(pcm))
			continue
		}
		chunk := audio.Chunk{
			Data:   pcm,
			Format: audio.SynthPlaybackConfig(),
			Origin: audio.OriginSecondary,
		}
		if _, err := s.deps.Playback.Schedule(chunk); err != nil {
			s.logger.Warn("dropping synthesized audio", "error", err)
		}
	}
}

func (s *Session) eventLoop() {
	hybrid := s.Mode() == VoiceModeHybrid

	for ev := range s.deps.Primary.Events() {
		switch e := ev.(type) {
		case AudioEvent:
			s.markLive()
			// Hybrid mutes the native voice; the transcript drives
			// the speech transport instead.
			if hybrid {
				continue
			}
			// Frames off the wire are untrusted; a malformed one is
			// dropped and playback continues with the next.
			if _, err := audio.DecodePCM16(e.Data, audio.NativePlaybackConfig()); err != nil {
				s.logger.Warn("dropping malformed assistant audio", "error", err, "bytes", len(e.Data))
				continue
			}
			chunk := audio.Chunk{
				Data:   e.Data,
				Format: audio.NativePlaybackConfig(),
				Origin: audio.OriginPrimary,
			}
			if _, err := s.deps.Playback.Schedule(chunk); err != nil {
				s.logger.Warn("dropping assistant audio", "error", err)
			}

		case TranscriptEvent:
			s.markLive()
			s.pending.WriteString(e.Text)
			if s.deps.OnTranscript != nil {
				s.deps.OnTranscript(RoleAssistant, e.Text)
			}
			if hybrid {
				if err := s.deps.Speech.Speak(s.runCtx, e.Text); err != nil {
					s.logger.Warn("speech synthesis request failed", "error", err)
				}
			}

		case UserTranscriptEvent:
			s.markLive()
			s.pendingUser.WriteString(e.Text)
			if s.deps.OnTranscript != nil {
				s.deps.OnTranscript(RoleUser, e.Text)
			}

		case TurnCompleteEvent:
			// The caller spoke before the assistant answered, so the
			// user entry commits first.
			if text := strings.TrimSpace(s.pendingUser.String()); text != "" {
				s.transcript.Append(RoleUser, text)
			}
			s.pendingUser.Reset()
			if text := strings.TrimSpace(s.pending.String()); text != "" {
				s.transcript.Append(RoleAssistant, text)
			}
			s.pending.Reset()

		case InterruptedEvent:
			if err := s.deps.Playback.Reset(); err != nil {
				s.logger.Warn("playback flush failed", "error", err)
			}

		case ToolCallEvent:
			s.handleToolCalls(e.Calls)

		case ErrorEvent:
			s.logger.Error("primary transport failure", "error", e.Err)
			s.fail(e.Err)
		}
	}

	// Remote close without a prior error is a normal hang-up.
	s.shutdown(StateDisconnected)
}

// handleToolCalls answers every call in the batch exactly once. endCall
// is honored only after its response has been submitted.
func (s *Session) handleToolCalls(calls []ToolCall) {
	results := make([]ToolResult, 0, len(calls))
	var hangUp bool
	for _, call := range calls {
		if call.Name == ToolSetVisualState && s.deps.OnVisualState != nil {
			if state, ok := call.Args["state"].(string); ok {
				s.deps.OnVisualState(state)
			}
		}
		if call.Name == ToolEndCall {
			hangUp = true
		}
		results = append(results, ToolResult{
			ID:       call.ID,
			Name:     call.Name,
			Response: dispatchTool(s.runCtx, s.deps.Tools, call, s.logger),
		})
	}
	if err := s.deps.Primary.RespondTools(s.runCtx, results); err != nil {
		s.logger.Warn("tool response failed", "error", err)
	}
	if hangUp {
		s.logger.Info("model requested end of call")
		go s.Disconnect()
	}
}

// Disconnect tears the session down. Safe to call from any state, any
// number of times; teardown happens once.
func (s *Session) Disconnect() error {
	s.shutdown(StateDisconnected)
	return nil
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	if s.lastErr == nil {
		s.lastErr = err
	}
	s.mu.Unlock()
	s.setState(StateError)
	s.shutdown(StateError)
}

func (s *Session) shutdown(final State) {
	s.closeOnce.Do(func() {
		s.ready.Store(false)
		if s.runCancel != nil {
			s.runCancel()
		}
		if s.deps.Capture != nil {
			_ = s.deps.Capture.Stop()
		}
		if s.deps.Speech != nil {
			_ = s.deps.Speech.Close()
		}
		_ = s.deps.Primary.Close()
		_ = s.deps.Playback.Reset()

		s.mu.Lock()
		terminal := s.state.Terminal()
		s.mu.Unlock()
		if !terminal {
			s.setState(final)
		}
	})
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the resolved voice mode. Before Connect resolves it this
// is the requested mode.
func (s *Session) Mode() VoiceMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Err returns the first fatal error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Transcript exposes the conversation record.
func (s *Session) Transcript() *Transcript {
	return s.transcript
}

func (s *Session) setMode(mode VoiceMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()
	s.logger.Info("session state changed", "state", st)
	if s.deps.OnState != nil {
		s.deps.OnState(st)
	}
}
