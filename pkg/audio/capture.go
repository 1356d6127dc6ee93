package audio

import (
	"fmt"
	"log/slog"
	"sync"
)

// CaptureFrameSamples is the number of samples per outbound capture frame.
const CaptureFrameSamples = 4096

// Source is an audio input device. Start begins delivering raw PCM bytes to
// onData from the device thread; Stop releases the device. A Source is owned
// by exactly one CapturePipeline at a time.
type Source interface {
	Start(onData func([]byte)) error
	Stop() error
}

// CapturePipeline reads microphone bytes, frames them into fixed-size
// blocks, and hands each block to a sender. The sender receives raw s16le
// PCM in capture order; a frame the sender fails to deliver is simply gone.
type CapturePipeline struct {
	source  Source
	cfg     Config
	chunker *Chunker
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool

	sink Recorder // optional QA tap, may be nil
}

// Recorder receives a copy of every captured frame. Used for WAV dumps.
type Recorder interface {
	WritePCM(pcm []byte) error
}

// CaptureOption configures a CapturePipeline.
type CaptureOption func(*CapturePipeline)

// WithCaptureRecorder taps every outbound frame into rec.
func WithCaptureRecorder(rec Recorder) CaptureOption {
	return func(p *CapturePipeline) { p.sink = rec }
}

// WithCaptureLogger sets the pipeline logger.
func WithCaptureLogger(logger *slog.Logger) CaptureOption {
	return func(p *CapturePipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewCapturePipeline wraps source with frame chunking at the capture format.
func NewCapturePipeline(source Source, opts ...CaptureOption) *CapturePipeline {
	cfg := CaptureConfig()
	p := &CapturePipeline{
		source:  source,
		cfg:     cfg,
		chunker: NewChunker(CaptureFrameSamples * cfg.BytesPerFrame()),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start claims the device and begins forwarding frames to send. If the
// device cannot be opened (permission denied, missing hardware) the error is
// returned and nothing is claimed; the caller must treat this as a
// connection failure, not a silent no-op.
func (p *CapturePipeline) Start(send func(pcm []byte)) error {
	if p == nil || p.source == nil {
		return fmt.Errorf("capture source is required")
	}
	if send == nil {
		return fmt.Errorf("capture sender is required")
	}

	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("capture pipeline already started")
	}
	p.started = true
	p.mu.Unlock()

	err := p.source.Start(func(data []byte) {
		for _, frame := range p.chunker.Push(data) {
			if p.sink != nil {
				if werr := p.sink.WritePCM(frame); werr != nil {
					p.logger.Warn("capture recorder write failed", "error", werr)
				}
			}
			send(frame)
		}
	})
	if err != nil {
		p.mu.Lock()
		p.started = false
		p.mu.Unlock()
		return fmt.Errorf("start capture: %w", err)
	}
	return nil
}

// Stop releases the device. Safe to call more than once and safe to call on
// a pipeline that never started.
func (p *CapturePipeline) Stop() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	p.chunker.Reset()
	if err := p.source.Stop(); err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	return nil
}

// Format returns the capture audio format.
func (p *CapturePipeline) Format() Config {
	return p.cfg
}
