package audio

import (
	"math"
	"testing"
)

func TestEncodePCM16RoundTrip(t *testing.T) {
	samples := []float32{0, 0.25, -0.25, 0.5, -0.5, 0.999, -0.999, 1, -1}

	encoded := EncodePCM16(samples)
	if len(encoded) != len(samples)*2 {
		t.Fatalf("encoded length = %d, want %d", len(encoded), len(samples)*2)
	}

	decoded, err := DecodePCM16(encoded, CaptureConfig())
	if err != nil {
		t.Fatalf("DecodePCM16 error: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("channel count = %d, want 1", len(decoded))
	}
	for i, want := range samples {
		if want > 1 {
			want = 1
		} else if want < -1 {
			want = -1
		}
		got := decoded[0][i]
		if math.Abs(float64(got-want)) > 1.0/32768.0 {
			t.Errorf("sample %d: got %f, want %f within 1/32768", i, got, want)
		}
	}
}

func TestEncodePCM16Clamps(t *testing.T) {
	tests := []struct {
		name   string
		sample float32
		want   int16
	}{
		{name: "over range", sample: 2.5, want: math.MaxInt16},
		{name: "under range", sample: -3.0, want: math.MinInt16},
		{name: "exact max", sample: 1.0, want: math.MaxInt16},
		{name: "exact min", sample: -1.0, want: math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodePCM16([]float32{tt.sample})
			got := int16(uint16(encoded[0]) | uint16(encoded[1])<<8)
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodePCM16RejectsOddLength(t *testing.T) {
	_, err := DecodePCM16([]byte{0x01, 0x02, 0x03}, CaptureConfig())
	if err == nil {
		t.Fatal("expected error for odd byte count")
	}
	if _, ok := err.(*CodecError); !ok {
		t.Fatalf("error type = %T, want *CodecError", err)
	}
}

func TestDecodePCM16DeinterleavesChannels(t *testing.T) {
	// Two frames of stereo: L=16384 R=-16384, L=8192 R=-8192.
	samples := []int16{16384, -16384, 8192, -8192}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[i*2] = byte(s & 0xFF)
		pcm[i*2+1] = byte((s >> 8) & 0xFF)
	}

	decoded, err := DecodePCM16(pcm, Config{SampleRate: 16000, Channels: 2, BitsPerSample: 16})
	if err != nil {
		t.Fatalf("DecodePCM16 error: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("channel count = %d, want 2", len(decoded))
	}
	if decoded[0][0] != 0.5 || decoded[0][1] != 0.25 {
		t.Errorf("left channel = %v", decoded[0])
	}
	if decoded[1][0] != -0.5 || decoded[1][1] != -0.25 {
		t.Errorf("right channel = %v", decoded[1])
	}
}

func TestDecodeFloat32LE(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1}
	data := make([]byte, 0, len(samples)*4)
	for _, f := range samples {
		bits := math.Float32bits(f)
		data = append(data, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}

	decoded, err := DecodeFloat32LE(data)
	if err != nil {
		t.Fatalf("DecodeFloat32LE error: %v", err)
	}
	for i, want := range samples {
		if decoded[i] != want {
			t.Errorf("sample %d: got %f, want %f", i, decoded[i], want)
		}
	}

	if _, err := DecodeFloat32LE(data[:5]); err == nil {
		t.Fatal("expected error for truncated f32le payload")
	}
}

func TestDecodeBase64Variants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{name: "standard padded", payload: "AQIDBA==", want: 4},
		{name: "standard unpadded", payload: "AQIDBA", want: 4},
		{name: "empty", payload: "", want: 0},
		{name: "garbage", payload: "!!not base64!!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64(tt.payload)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeBase64 error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("decoded length = %d, want %d", len(got), tt.want)
			}
		})
	}
}
