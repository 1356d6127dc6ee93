package audio

import (
	"bytes"
	"testing"
)

func TestChunkerCutsFixedFrames(t *testing.T) {
	c := NewChunker(8)

	if frames := c.Push(make([]byte, 5)); frames != nil {
		t.Fatalf("expected no frames for partial push, got %d", len(frames))
	}
	if c.Pending() != 5 {
		t.Fatalf("pending = %d, want 5", c.Pending())
	}

	frames := c.Push(make([]byte, 20))
	if len(frames) != 3 {
		t.Fatalf("frame count = %d, want 3", len(frames))
	}
	for i, f := range frames {
		if len(f) != 8 {
			t.Errorf("frame %d length = %d, want 8", i, len(f))
		}
	}
	if c.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", c.Pending())
	}
}

func TestChunkerPreservesOrder(t *testing.T) {
	c := NewChunker(4)
	var in []byte
	for i := 0; i < 12; i++ {
		in = append(in, byte(i))
	}

	var out []byte
	for _, frame := range c.Push(in) {
		out = append(out, frame...)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("reassembled frames %v != input %v", out, in)
	}
}

func TestChunkerReset(t *testing.T) {
	c := NewChunker(8)
	c.Push(make([]byte, 3))
	c.Reset()
	if c.Pending() != 0 {
		t.Fatalf("pending after reset = %d, want 0", c.Pending())
	}
}
