package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// MaxGain is the largest accepted linear gain (+12 dB).
const MaxGain = 4.0

// GainEffect implements playback volume control on 16-bit PCM.
//
// Gain values: 0.0 = silence, 1.0 = no change, >1.0 = amplification.
// Samples pushed past the int16 range are clipped.
type GainEffect struct {
	gain float64
}

// NewGainEffect creates a gain stage. gain must lie in [0, MaxGain].
func NewGainEffect(gain float64) (*GainEffect, error) {
	if gain < 0.0 || gain > MaxGain {
		logrus.WithFields(logrus.Fields{
			"function": "NewGainEffect",
			"gain":     gain,
			"error":    "gain out of range",
		}).Error("Gain validation failed")
		return nil, fmt.Errorf("%w: %f (must be 0-%.1f)", ErrInvalidGain, gain, MaxGain)
	}

	return &GainEffect{gain: gain}, nil
}

// Process scales samples in place and returns them.
func (g *GainEffect) Process(samples []int16) []int16 {
	if g.gain == 1.0 || len(samples) == 0 {
		return samples
	}

	clipped := 0
	for i, sample := range samples {
		v := float64(sample) * g.gain
		switch {
		case v > 32767.0:
			samples[i] = 32767
			clipped++
		case v < -32768.0:
			samples[i] = -32768
			clipped++
		default:
			samples[i] = int16(v)
		}
	}

	if clipped > 0 {
		logrus.WithFields(logrus.Fields{
			"function":      "GainEffect.Process",
			"sample_count":  len(samples),
			"gain":          g.gain,
			"clipped_count": clipped,
		}).Warn("Audio clipping occurred during gain processing")
	}

	return samples
}

// GetGain returns the current gain.
func (g *GainEffect) GetGain() float64 {
	return g.gain
}
