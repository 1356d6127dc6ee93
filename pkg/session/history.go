package session

import (
	"sync"
	"time"
)

const defaultTranscriptCap = 200

// Role attributes a transcript entry to one side of the conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one committed utterance.
type Entry struct {
	Role Role
	Text string
	At   time.Time
}

// Transcript is a bounded in-memory record of the conversation. When the
// capacity is exceeded the oldest entries are dropped.
type Transcript struct {
	mu      sync.Mutex
	max     int
	entries []Entry
}

// NewTranscript creates a transcript holding at most max entries.
// Non-positive max selects the default capacity.
func NewTranscript(max int) *Transcript {
	if max <= 0 {
		max = defaultTranscriptCap
	}
	return &Transcript{max: max}
}

// Append records one utterance. Empty text is ignored.
func (t *Transcript) Append(role Role, text string) {
	if text == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{Role: role, Text: text, At: time.Now()})
	if overflow := len(t.entries) - t.max; overflow > 0 {
		t.entries = append([]Entry(nil), t.entries[overflow:]...)
	}
}

// Entries returns a copy of the committed conversation in order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports the number of committed entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
