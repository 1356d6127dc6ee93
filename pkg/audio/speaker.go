package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Speaker is an oto-backed playback Sink at a fixed format. oto pulls audio
// through an io.Reader, so Play appends to an internal buffer; the scheduler
// already guarantees buffers arrive back-to-back, which makes appending
// equivalent to timed playback up to device latency.
type Speaker struct {
	cfg    Config
	otoCtx *oto.Context

	mu      sync.Mutex
	buf     []byte
	player  *oto.Player
	playing bool
	closed  bool
}

// NewSpeaker opens the default output device at the given format. Supported
// formats: 16-bit signed and 32-bit float little-endian PCM.
func NewSpeaker(cfg Config) (*Speaker, error) {
	var format oto.Format
	switch cfg.BitsPerSample {
	case 16:
		format = oto.FormatSignedInt16LE
	case 32:
		format = oto.FormatFloat32LE
	default:
		return nil, fmt.Errorf("unsupported speaker format: %d bits per sample", cfg.BitsPerSample)
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       format,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	<-ready

	return &Speaker{cfg: cfg, otoCtx: otoCtx}, nil
}

// Play appends pcm to the playback buffer. The format must match the
// speaker's; the start offset is satisfied by the scheduler's ordering.
func (s *Speaker) Play(pcm []byte, format Config, _ time.Duration) error {
	if format.SampleRate != s.cfg.SampleRate || format.Channels != s.cfg.Channels || format.BitsPerSample != s.cfg.BitsPerSample {
		return fmt.Errorf("speaker format mismatch: got %dHz/%dch/%dbit, want %dHz/%dch/%dbit",
			format.SampleRate, format.Channels, format.BitsPerSample,
			s.cfg.SampleRate, s.cfg.Channels, s.cfg.BitsPerSample)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("speaker is closed")
	}

	s.buf = append(s.buf, pcm...)

	// Lazily create the player on first audio so the device stays quiet
	// until the session actually speaks.
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	return nil
}

// Read implements io.Reader for oto's pull loop. An empty buffer yields
// silence so scheduling gaps and shutdown never stall the device.
func (s *Speaker) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// Stop discards pending audio and halts playback immediately, no fade.
// The speaker can be reused afterwards.
func (s *Speaker) Stop() error {
	s.mu.Lock()
	s.buf = s.buf[:0]
	player := s.player
	s.player = nil
	s.playing = false
	s.mu.Unlock()

	if player != nil {
		player.Pause()
		_ = player.Close()
	}
	return nil
}

// AdaptiveSink is a Sink that opens one output device per audio format on
// first use. A session whose voice mode falls back at connect time plays
// a different format than the one requested; this sink follows whatever
// format actually arrives.
type AdaptiveSink struct {
	open func(Config) (Sink, error)

	mu    sync.Mutex
	sinks map[Config]Sink
}

// NewAdaptiveSink creates an adaptive sink. A nil open uses real speakers.
func NewAdaptiveSink(open func(Config) (Sink, error)) *AdaptiveSink {
	if open == nil {
		open = func(cfg Config) (Sink, error) { return NewSpeaker(cfg) }
	}
	return &AdaptiveSink{open: open, sinks: make(map[Config]Sink)}
}

func (a *AdaptiveSink) Play(pcm []byte, format Config, at time.Duration) error {
	a.mu.Lock()
	sink, ok := a.sinks[format]
	if !ok {
		var err error
		sink, err = a.open(format)
		if err != nil {
			a.mu.Unlock()
			return fmt.Errorf("open sink for %dHz/%dch/%dbit: %w", format.SampleRate, format.Channels, format.BitsPerSample, err)
		}
		a.sinks[format] = sink
	}
	a.mu.Unlock()
	return sink.Play(pcm, format, at)
}

// Stop halts every opened device. The sink stays usable.
func (a *AdaptiveSink) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var firstErr error
	for _, sink := range a.sinks {
		if err := sink.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close releases every opened device.
func (a *AdaptiveSink) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var firstErr error
	for format, sink := range a.sinks {
		if closer, ok := sink.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(a.sinks, format)
	}
	return firstErr
}

// Close releases the output device.
func (s *Speaker) Close() error {
	s.mu.Lock()
	s.closed = true
	s.buf = s.buf[:0]
	player := s.player
	s.player = nil
	s.mu.Unlock()

	if player != nil {
		_ = player.Close()
	}
	return nil
}
