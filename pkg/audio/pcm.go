package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// CodecError reports a malformed audio payload. Callers drop the offending
// chunk and continue with the next one; a codec failure never tears down the
// session.
type CodecError struct {
	Reason string
}

func (e *CodecError) Error() string {
	return "audio codec: " + e.Reason
}

func newCodecError(format string, args ...any) *CodecError {
	return &CodecError{Reason: fmt.Sprintf(format, args...)}
}

// EncodePCM16 converts floating-point samples in [-1, 1] to signed 16-bit
// little-endian PCM. Out-of-range samples are clamped; scaling truncates
// (no dithering).
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		v := int32(f * 32768)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// DecodePCM16 converts signed 16-bit little-endian PCM back to per-channel
// float samples (int16 / 32768), de-interleaving channels.
func DecodePCM16(data []byte, cfg Config) ([][]float32, error) {
	if len(data)%2 != 0 {
		return nil, newCodecError("odd byte count %d for 16-bit samples", len(data))
	}
	channels := cfg.Channels
	if channels <= 0 {
		channels = 1
	}
	frames := len(data) / 2 / channels
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := int16(binary.LittleEndian.Uint16(data[(i*channels+ch)*2:]))
			out[ch][i] = float32(s) / 32768.0
		}
	}
	return out, nil
}

// DecodeFloat32LE converts raw little-endian float32 PCM (the secondary
// speech provider's output format) to samples.
func DecodeFloat32LE(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, newCodecError("byte count %d is not a multiple of 4 for f32le samples", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}

// EncodeBase64 wraps PCM bytes in the transport-safe text encoding used by
// the primary connection.
func EncodeBase64(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeBase64 decodes transport-safe audio payloads. Providers are not
// consistent about padding, so unpadded and URL-safe variants are accepted.
func DecodeBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return nil, newCodecError("invalid base64 payload")
}
