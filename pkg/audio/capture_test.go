package audio

import (
	"errors"
	"testing"
)

// fakeSource delivers canned bytes synchronously on Start.
type fakeSource struct {
	data     []byte
	startErr error
	stopped  int
}

func (f *fakeSource) Start(onData func([]byte)) error {
	if f.startErr != nil {
		return f.startErr
	}
	if len(f.data) > 0 {
		onData(f.data)
	}
	return nil
}

func (f *fakeSource) Stop() error {
	f.stopped++
	return nil
}

func TestCapturePipelineEmitsFixedFrames(t *testing.T) {
	frameBytes := CaptureFrameSamples * CaptureConfig().BytesPerFrame()
	src := &fakeSource{data: make([]byte, frameBytes*2+100)}
	p := NewCapturePipeline(src)

	var frames [][]byte
	if err := p.Start(func(pcm []byte) { frames = append(frames, pcm) }); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frame count = %d, want 2", len(frames))
	}
	for i, f := range frames {
		if len(f) != frameBytes {
			t.Errorf("frame %d length = %d, want %d", i, len(f), frameBytes)
		}
	}
}

func TestCapturePipelineStartFailurePropagates(t *testing.T) {
	denied := errors.New("device access denied")
	src := &fakeSource{startErr: denied}
	p := NewCapturePipeline(src)

	err := p.Start(func([]byte) {})
	if err == nil {
		t.Fatal("expected start error")
	}
	if !errors.Is(err, denied) {
		t.Fatalf("error = %v, want wrapped %v", err, denied)
	}

	// A failed start claimed nothing; Stop must not touch the source.
	if err := p.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	if src.stopped != 0 {
		t.Fatalf("source stopped %d times after failed start", src.stopped)
	}
}

func TestCapturePipelineStopIsIdempotent(t *testing.T) {
	src := &fakeSource{}
	p := NewCapturePipeline(src)
	if err := p.Start(func([]byte) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("first Stop error: %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop error: %v", err)
	}
	if src.stopped != 1 {
		t.Fatalf("source stopped %d times, want exactly 1", src.stopped)
	}
}

func TestCapturePipelineRecorderTap(t *testing.T) {
	frameBytes := CaptureFrameSamples * CaptureConfig().BytesPerFrame()
	src := &fakeSource{data: make([]byte, frameBytes)}
	rec, err := NewWAVRecorder(CaptureConfig())
	if err != nil {
		t.Fatalf("NewWAVRecorder error: %v", err)
	}
	p := NewCapturePipeline(src, WithCaptureRecorder(rec))

	if err := p.Start(func([]byte) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if rec.Len() != frameBytes {
		t.Fatalf("recorder captured %d bytes, want %d", rec.Len(), frameBytes)
	}
}
