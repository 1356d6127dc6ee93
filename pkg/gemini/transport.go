// Package gemini implements the primary realtime transport on top of the
// Gemini Live API, plus avatar video generation through Veo.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/guestsvalencia/galaxy-live/pkg/session"
)

const (
	// DefaultModel is the native-audio live model.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-09-2025"
	// DefaultVoice is the prebuilt voice used for native audio.
	DefaultVoice = "Aoede"

	micMIMEType    = "audio/pcm;rate=16000"
	cameraMIMEType = "image/jpeg"
)

// Config parameterizes the live connection.
type Config struct {
	APIKey string

	// Model overrides DefaultModel.
	Model string
	// Voice overrides DefaultVoice.
	Voice string
	// SystemInstruction overrides the built-in receptionist persona.
	SystemInstruction string

	Logger *slog.Logger
}

// Live is one realtime connection to the conversational service. It
// satisfies session.PrimaryTransport.
type Live struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	live *genai.Session

	events    chan session.Event
	closed    chan struct{}
	closeOnce sync.Once
}

var _ session.PrimaryTransport = (*Live)(nil)

// NewLive creates an unconnected transport, filling config defaults.
func NewLive(cfg Config) *Live {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = defaultSystemPrompt
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Live{
		cfg:    cfg,
		logger: logger,
		events: make(chan session.Event, 64),
		closed: make(chan struct{}),
	}
}

// Connect dials the live endpoint with audio responses, output
// transcription and the receptionist toolset enabled.
func (l *Live) Connect(ctx context.Context) error {
	if strings.TrimSpace(l.cfg.APIKey) == "" {
		return fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  l.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}

	live, err := client.Live.Connect(ctx, l.cfg.Model, &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: l.cfg.SystemInstruction}},
		},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: l.cfg.Voice},
			},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		Tools:                    Declarations(),
	})
	if err != nil {
		return fmt.Errorf("gemini live connect: %w", err)
	}

	l.mu.Lock()
	l.live = live
	l.mu.Unlock()

	go l.receiveLoop(live)
	return nil
}

// Events yields server activity in arrival order. Closed when the
// connection ends.
func (l *Live) Events() <-chan session.Event {
	return l.events
}

// SendAudio streams one microphone frame, 16 kHz mono s16le.
func (l *Live) SendAudio(ctx context.Context, pcm []byte) error {
	live, err := l.session()
	if err != nil {
		return err
	}
	return live.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: pcm, MIMEType: micMIMEType},
	})
}

// SendVideoFrame submits one JPEG camera frame. Frames ride the same
// realtime channel as audio but carry no ordering guarantees.
func (l *Live) SendVideoFrame(ctx context.Context, jpeg []byte) error {
	live, err := l.session()
	if err != nil {
		return err
	}
	return live.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{Data: jpeg, MIMEType: cameraMIMEType},
	})
}

// SendText injects a client text turn.
func (l *Live) SendText(ctx context.Context, text string, turnComplete bool) error {
	live, err := l.session()
	if err != nil {
		return err
	}
	return live.SendClientContent(genai.LiveClientContentInput{
		Turns: []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: text}},
		}},
		TurnComplete: turnComplete,
	})
}

// RespondTools answers a batch of tool calls, echoing each call's id.
func (l *Live) RespondTools(ctx context.Context, results []session.ToolResult) error {
	live, err := l.session()
	if err != nil {
		return err
	}
	responses := make([]*genai.FunctionResponse, 0, len(results))
	for _, r := range results {
		responses = append(responses, &genai.FunctionResponse{
			ID:       r.ID,
			Name:     string(r.Name),
			Response: map[string]any{"result": r.Response},
		})
	}
	return live.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: responses,
	})
}

// Close ends the connection. Idempotent.
func (l *Live) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
		l.mu.Lock()
		live := l.live
		l.mu.Unlock()
		if live != nil {
			_ = live.Close()
		}
	})
	return nil
}

func (l *Live) session() (*genai.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.live == nil {
		return nil, fmt.Errorf("gemini live: not connected")
	}
	return l.live, nil
}

func (l *Live) receiveLoop(live *genai.Session) {
	defer close(l.events)
	for {
		msg, err := live.Receive()
		if err != nil {
			select {
			case <-l.closed:
				// Local close, not a failure.
			default:
				l.emit(session.ErrorEvent{Err: err})
			}
			return
		}
		if msg == nil {
			continue
		}
		if sc := msg.ServerContent; sc != nil {
			if sc.Interrupted {
				l.emit(session.InterruptedEvent{})
			}
			if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
				l.emit(session.UserTranscriptEvent{Text: sc.InputTranscription.Text})
			}
			if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
				l.emit(session.TranscriptEvent{Text: sc.OutputTranscription.Text})
			}
			if sc.ModelTurn != nil {
				for _, part := range sc.ModelTurn.Parts {
					if part.InlineData != nil && len(part.InlineData.Data) > 0 {
						l.emit(session.AudioEvent{Data: part.InlineData.Data})
					}
				}
			}
			if sc.TurnComplete {
				l.emit(session.TurnCompleteEvent{})
			}
		}
		if tc := msg.ToolCall; tc != nil && len(tc.FunctionCalls) > 0 {
			calls := make([]session.ToolCall, 0, len(tc.FunctionCalls))
			for _, fc := range tc.FunctionCalls {
				name, known := session.ParseToolName(fc.Name)
				if !known {
					l.logger.Warn("unrecognized tool call", "name", fc.Name, "id", fc.ID)
					name = session.ToolName(fc.Name)
				}
				calls = append(calls, session.ToolCall{ID: fc.ID, Name: name, Args: fc.Args})
			}
			l.emit(session.ToolCallEvent{Calls: calls})
		}
	}
}

func (l *Live) emit(ev session.Event) {
	select {
	case l.events <- ev:
	case <-l.closed:
	}
}
