package audio

import "sync"

// Chunker accumulates raw PCM bytes and cuts them into fixed-size frames.
// Device callbacks deliver whatever period the backend chose; the transport
// wants uniform frames, so the tail carries over between pushes.
type Chunker struct {
	mu        sync.Mutex
	pending   []byte
	frameSize int
}

// NewChunker creates a chunker that emits frames of frameBytes bytes.
func NewChunker(frameBytes int) *Chunker {
	if frameBytes <= 0 {
		frameBytes = 1
	}
	return &Chunker{
		pending:   make([]byte, 0, frameBytes*2),
		frameSize: frameBytes,
	}
}

// Push appends data and returns every complete frame now available, in order.
// Returned slices are copies; the caller owns them.
func (c *Chunker) Push(data []byte) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append(c.pending, data...)

	var frames [][]byte
	for len(c.pending) >= c.frameSize {
		frame := make([]byte, c.frameSize)
		copy(frame, c.pending[:c.frameSize])
		c.pending = c.pending[c.frameSize:]
		frames = append(frames, frame)
	}
	return frames
}

// Pending returns how many bytes are buffered short of a full frame.
func (c *Chunker) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Reset discards any partial frame.
func (c *Chunker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = c.pending[:0]
}
