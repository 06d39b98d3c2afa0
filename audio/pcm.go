package audio

import (
	"encoding/binary"
	"math"
)

// FullScale is the int16 magnitude that corresponds to 1.0.
const FullScale = 32767.0

// Quantize converts [-1,1] samples to int16 by scaling with FullScale and
// truncating toward zero. Out-of-range input is clipped.
func Quantize(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * FullScale
		switch {
		case math.IsNaN(v):
			out[i] = 0
		case v > math.MaxInt16:
			out[i] = math.MaxInt16
		case v < math.MinInt16:
			out[i] = math.MinInt16
		default:
			out[i] = int16(v)
		}
	}
	return out
}

// Dequantize converts int16 samples back to floats by dividing by FullScale.
func Dequantize(pcm []int16) []float64 {
	out := make([]float64, len(pcm))
	for i, s := range pcm {
		out[i] = float64(s) / FullScale
	}
	return out
}

// PCMBytes serializes samples as signed 16-bit little-endian.
func PCMBytes(pcm []int16) []byte {
	data := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return data
}

// PCMFromBytes parses signed 16-bit little-endian data. A trailing odd byte
// is ignored.
func PCMFromBytes(data []byte) []int16 {
	pcm := make([]int16, len(data)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return pcm
}
