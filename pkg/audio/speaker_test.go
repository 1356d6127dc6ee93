package audio

import (
	"errors"
	"testing"
)

func TestAdaptiveSinkOpensOneSinkPerFormat(t *testing.T) {
	opened := make(map[Config]*recordingSink)
	sink := NewAdaptiveSink(func(cfg Config) (Sink, error) {
		s := &recordingSink{}
		opened[cfg] = s
		return s, nil
	})

	// A hybrid request that fell back to native plays 24 kHz s16 even
	// though 44.1 kHz f32 was expected; both must come out.
	if err := sink.Play(make([]byte, 480), NativePlaybackConfig(), 0); err != nil {
		t.Fatalf("Play native error: %v", err)
	}
	if err := sink.Play(make([]byte, 400), SynthPlaybackConfig(), 0); err != nil {
		t.Fatalf("Play synth error: %v", err)
	}
	if err := sink.Play(make([]byte, 480), NativePlaybackConfig(), 0); err != nil {
		t.Fatalf("Play native again error: %v", err)
	}

	if len(opened) != 2 {
		t.Fatalf("opened %d sinks, want 2", len(opened))
	}
	if n := len(opened[NativePlaybackConfig()].plays); n != 2 {
		t.Errorf("native sink plays = %d, want 2", n)
	}
	if n := len(opened[SynthPlaybackConfig()].plays); n != 1 {
		t.Errorf("synth sink plays = %d, want 1", n)
	}
}

func TestAdaptiveSinkStopReachesEveryDevice(t *testing.T) {
	opened := make([]*recordingSink, 0, 2)
	sink := NewAdaptiveSink(func(Config) (Sink, error) {
		s := &recordingSink{}
		opened = append(opened, s)
		return s, nil
	})

	_ = sink.Play(make([]byte, 480), NativePlaybackConfig(), 0)
	_ = sink.Play(make([]byte, 400), SynthPlaybackConfig(), 0)
	if err := sink.Stop(); err != nil {
		t.Fatalf("Stop error: %v", err)
	}
	for i, s := range opened {
		if s.stopped != 1 {
			t.Errorf("sink %d stopped %d times, want 1", i, s.stopped)
		}
	}
}

func TestAdaptiveSinkPropagatesOpenFailure(t *testing.T) {
	deviceErr := errors.New("no output device")
	sink := NewAdaptiveSink(func(Config) (Sink, error) { return nil, deviceErr })

	err := sink.Play(make([]byte, 480), NativePlaybackConfig(), 0)
	if !errors.Is(err, deviceErr) {
		t.Fatalf("error = %v, want wrapped %v", err, deviceErr)
	}
}
