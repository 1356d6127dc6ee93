package session

// State is the lifecycle phase of a live session. Transitions are
// monotonic except that most phases can jump to StateError.
type State string

const (
	StateIdle         State = "IDLE"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StateLive         State = "LIVE"
	StateError        State = "ERROR"
	StateDisconnected State = "DISCONNECTED"
)

func (s State) String() string { return string(s) }

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool {
	return s == StateError || s == StateDisconnected
}

// VoiceMode selects who voices the assistant. It is fixed for the
// lifetime of a session once Connect resolves it.
type VoiceMode string

const (
	// VoiceModeNative plays the conversational service's own audio.
	VoiceModeNative VoiceMode = "NATIVE"
	// VoiceModeHybrid mutes the native audio and re-voices the
	// transcript through the secondary speech transport.
	VoiceModeHybrid VoiceMode = "HYBRID"
)
