package session

import "context"

// Event is an item produced by the primary transport's receive loop.
// The concrete types below form a closed set.
type Event interface {
	sessionEventType() string
}

// AudioEvent carries one chunk of assistant speech as raw 16-bit PCM at
// the transport's native playback rate.
type AudioEvent struct {
	Data []byte
}

// TranscriptEvent carries a fragment of the assistant's speech as text.
// Fragments accumulate until a TurnCompleteEvent.
type TranscriptEvent struct {
	Text string
}

// UserTranscriptEvent carries a fragment of the caller's speech as text,
// produced by input transcription on the primary transport.
type UserTranscriptEvent struct {
	Text string
}

// TurnCompleteEvent marks the end of one assistant turn.
type TurnCompleteEvent struct{}

// InterruptedEvent signals that the user barged in and everything queued
// for playback must be flushed.
type InterruptedEvent struct{}

// ToolCallEvent carries one batch of function invocations requested by
// the model. Every call must be answered exactly once.
type ToolCallEvent struct {
	Calls []ToolCall
}

// ErrorEvent reports a transport failure. The receive loop ends after
// emitting it.
type ErrorEvent struct {
	Err error
}

func (AudioEvent) sessionEventType() string          { return "audio" }
func (TranscriptEvent) sessionEventType() string     { return "transcript" }
func (UserTranscriptEvent) sessionEventType() string { return "user_transcript" }
func (TurnCompleteEvent) sessionEventType() string   { return "turn_complete" }
func (InterruptedEvent) sessionEventType() string    { return "interrupted" }
func (ToolCallEvent) sessionEventType() string       { return "tool_call" }
func (ErrorEvent) sessionEventType() string          { return "error" }

// PrimaryTransport is the bidirectional realtime connection to the
// conversational service. Implementations own a receive goroutine that
// feeds Events and close the channel when the connection ends.
type PrimaryTransport interface {
	Connect(ctx context.Context) error
	Events() <-chan Event

	// SendAudio streams one chunk of 16 kHz mono s16le microphone audio.
	SendAudio(ctx context.Context, pcm []byte) error
	// SendVideoFrame submits one JPEG camera frame out of band.
	SendVideoFrame(ctx context.Context, jpeg []byte) error
	// SendText injects a client text turn, optionally closing the turn.
	SendText(ctx context.Context, text string, turnComplete bool) error
	// RespondTools answers a batch of tool calls.
	RespondTools(ctx context.Context, results []ToolResult) error

	Close() error
}

// SpeechTransport is the secondary synthesis connection used in hybrid
// mode. *tts.Cartesia satisfies it.
type SpeechTransport interface {
	Connect(ctx context.Context) error
	Speak(ctx context.Context, text string) error
	Chunks() <-chan []byte
	Close() error
}
