package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	wav "github.com/youpy/go-wav"
)

// WAVRecorder accumulates s16le PCM and writes a WAV file on Close. The WAV
// header needs the final sample count, so samples are held in memory until
// the session ends; capture sessions are short-lived and mono 16 kHz, which
// keeps this cheap.
type WAVRecorder struct {
	cfg Config

	mu     sync.Mutex
	pcm    []byte
	closed bool
}

// NewWAVRecorder creates a recorder for the given 16-bit format.
func NewWAVRecorder(cfg Config) (*WAVRecorder, error) {
	if cfg.BitsPerSample != 16 {
		return nil, fmt.Errorf("wav recorder supports 16-bit PCM only, got %d", cfg.BitsPerSample)
	}
	return &WAVRecorder{cfg: cfg}, nil
}

// WritePCM appends captured PCM bytes.
func (r *WAVRecorder) WritePCM(pcm []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("wav recorder is closed")
	}
	r.pcm = append(r.pcm, pcm...)
	return nil
}

// WriteTo writes the accumulated audio as a WAV stream.
func (r *WAVRecorder) WriteTo(w io.Writer) error {
	r.mu.Lock()
	pcm := make([]byte, len(r.pcm))
	copy(pcm, r.pcm)
	r.mu.Unlock()

	frames := len(pcm) / r.cfg.BytesPerFrame()
	writer := wav.NewWriter(w, uint32(frames), uint16(r.cfg.Channels), uint32(r.cfg.SampleRate), uint16(r.cfg.BitsPerSample))

	samples := make([]wav.Sample, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < r.cfg.Channels && ch < 2; ch++ {
			v := int16(binary.LittleEndian.Uint16(pcm[(i*r.cfg.Channels+ch)*2:]))
			samples[i].Values[ch] = int(v)
		}
	}
	if err := writer.WriteSamples(samples); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	return nil
}

// SaveTo writes the recording to path and marks the recorder closed.
func (r *WAVRecorder) SaveTo(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}
	defer f.Close()

	if err := r.WriteTo(f); err != nil {
		return err
	}

	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Len returns the recorded byte count.
func (r *WAVRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pcm)
}

// RecorderSink tees scheduled playback into a WAVRecorder on its way to
// the real sink. Only 16-bit streams are recorded; other formats pass
// through untouched.
type RecorderSink struct {
	inner Sink
	rec   *WAVRecorder
}

// NewRecorderSink wraps sink with a recording tap.
func NewRecorderSink(inner Sink, rec *WAVRecorder) *RecorderSink {
	return &RecorderSink{inner: inner, rec: rec}
}

func (s *RecorderSink) Play(pcm []byte, format Config, at time.Duration) error {
	if format.BitsPerSample == 16 {
		_ = s.rec.WritePCM(pcm)
	}
	return s.inner.Play(pcm, format, at)
}

func (s *RecorderSink) Stop() error {
	return s.inner.Stop()
}
