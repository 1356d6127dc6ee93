package audio

import "time"

// Config specifies audio format parameters.
type Config struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100.
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int
}

// CaptureConfig is the microphone capture format: 16 kHz mono s16le.
func CaptureConfig() Config {
	return Config{SampleRate: 16000, Channels: 1, BitsPerSample: 16}
}

// NativePlaybackConfig is the primary transport's output format: 24 kHz mono s16le.
func NativePlaybackConfig() Config {
	return Config{SampleRate: 24000, Channels: 1, BitsPerSample: 16}
}

// SynthPlaybackConfig is the secondary speech provider's output format: 44.1 kHz mono f32le.
func SynthPlaybackConfig() Config {
	return Config{SampleRate: 44100, Channels: 1, BitsPerSample: 32}
}

// BytesPerSecond returns the audio byte rate.
func (c Config) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// BytesPerFrame returns the byte size of one sample frame across all channels.
func (c Config) BytesPerFrame() int {
	return c.Channels * (c.BitsPerSample / 8)
}

// Duration returns the playback duration of the given byte count.
func (c Config) Duration(bytes int) time.Duration {
	bps := c.BytesPerSecond()
	if bps <= 0 || bytes <= 0 {
		return 0
	}
	return time.Duration(bytes) * time.Second / time.Duration(bps)
}

// BytesForDuration returns the byte count covering the given duration.
func (c Config) BytesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(int64(c.BytesPerSecond()) * int64(d) / int64(time.Second))
}
