package voice

import (
	"encoding/binary"
	"math"
	"time"
)

// ─── PCM16 ──────────────────────────────────────────────────────────────────
// The live endpoint speaks mono little-endian signed 16-bit PCM: 16 kHz
// upstream, 24 kHz downstream.

const (
	InputRate  = 16000
	OutputRate = 24000
	InputMIME  = "audio/pcm;rate=16000"
)

// EncodePCM16 converts float samples in [-1, 1] to PCM16 bytes. Values
// outside the range are clipped.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		v = max(math.MinInt16, min(math.MaxInt16, v))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// DecodePCM16 converts PCM16 bytes to float samples. A trailing odd byte
// is ignored.
func DecodePCM16(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[2*i:]))) / 32768
	}
	return out
}

// Duration is how long n samples last at rate.
func Duration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
