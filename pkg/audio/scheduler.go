package audio

import (
	"fmt"
	"sync"
	"time"
)

// Origin identifies who produced an audio chunk.
type Origin string

const (
	OriginCapture   Origin = "capture"
	OriginPrimary   Origin = "primary-playback"
	OriginSecondary Origin = "secondary-playback"
)

// Chunk is an immutable unit of audio: PCM bytes plus their format and
// origin. Produced by capture or a transport's inbound handler, consumed
// exactly once, never mutated after creation.
type Chunk struct {
	Data   []byte
	Format Config
	Origin Origin
}

// Duration returns the playback duration of the chunk.
func (c Chunk) Duration() time.Duration {
	return c.Format.Duration(len(c.Data))
}

// Clock is a monotonic audio clock. The zero duration is the session start.
type Clock interface {
	Now() time.Duration
}

// SystemClock measures audio time against a wall-clock epoch.
type SystemClock struct {
	epoch time.Time
}

// NewSystemClock starts an audio clock at the current instant.
func NewSystemClock() *SystemClock {
	return &SystemClock{epoch: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.epoch)
}

// Sink receives scheduled buffers. Play enqueues pcm to begin at the given
// clock offset; buffers arrive with non-decreasing, non-overlapping starts.
// Stop discards everything pending or playing, immediately and without fade.
type Sink interface {
	Play(pcm []byte, format Config, at time.Duration) error
	Stop() error
}

// Scheduler places decoded buffers back-to-back on the audio clock. Each
// buffer starts at max(clock now, previous end), which preserves arrival
// order, never schedules in the past, and introduces no gap of its own
// (network jitter may still leave silence; that is acceptable).
//
// nextPlaybackTime is owned exclusively by the Scheduler and read by nothing
// else.
type Scheduler struct {
	clock Clock
	sink  Sink

	mu   sync.Mutex
	next time.Duration
}

// NewScheduler creates a scheduler over the given clock and sink.
func NewScheduler(clock Clock, sink Sink) (*Scheduler, error) {
	if clock == nil {
		return nil, fmt.Errorf("scheduler clock is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("scheduler sink is required")
	}
	return &Scheduler{clock: clock, sink: sink}, nil
}

// Schedule enqueues one chunk and returns its computed start time. Empty
// chunks are ignored.
func (s *Scheduler) Schedule(chunk Chunk) (time.Duration, error) {
	if len(chunk.Data) == 0 {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.next, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.clock.Now()
	if s.next > start {
		start = s.next
	}
	if err := s.sink.Play(chunk.Data, chunk.Format, start); err != nil {
		return start, fmt.Errorf("schedule playback: %w", err)
	}
	s.next = start + chunk.Duration()
	return start, nil
}

// Reset stops all pending and playing buffers and rewinds the schedule.
// Called on session teardown; idempotent.
func (s *Scheduler) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
	if err := s.sink.Stop(); err != nil {
		return fmt.Errorf("stop playback: %w", err)
	}
	return nil
}
