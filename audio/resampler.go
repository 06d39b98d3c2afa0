package audio

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Resampler converts mono waveforms between sample rates with linear
// interpolation. Tone messages are narrow-band sines well below Nyquist at
// every supported rate, so interpolation error stays far under one code step.
type Resampler struct {
	inputRate  uint32
	outputRate uint32
}

// ResamplerConfig holds configuration for creating a resampler.
type ResamplerConfig struct {
	InputRate  uint32 // Input sample rate in Hz
	OutputRate uint32 // Output sample rate in Hz
}

// NewResampler creates a resampler from InputRate to OutputRate.
func NewResampler(config ResamplerConfig) (*Resampler, error) {
	if config.InputRate == 0 || config.OutputRate == 0 {
		logrus.WithFields(logrus.Fields{
			"function":    "NewResampler",
			"input_rate":  config.InputRate,
			"output_rate": config.OutputRate,
			"error":       "invalid sample rates",
		}).Error("Sample rate validation failed")
		return nil, fmt.Errorf("%w: input=%d, output=%d", ErrInvalidSampleRate, config.InputRate, config.OutputRate)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewResampler",
		"input_rate":  config.InputRate,
		"output_rate": config.OutputRate,
		"ratio":       float64(config.InputRate) / float64(config.OutputRate),
	}).Debug("Audio resampler created")

	return &Resampler{
		inputRate:  config.InputRate,
		outputRate: config.OutputRate,
	}, nil
}

// Resample returns input converted to the output rate. Same-rate input is
// copied unchanged.
func (r *Resampler) Resample(input []float64) ([]float64, error) {
	if len(input) == 0 {
		return []float64{}, nil
	}

	if r.inputRate == r.outputRate {
		out := make([]float64, len(input))
		copy(out, input)
		return out, nil
	}

	ratio := float64(r.inputRate) / float64(r.outputRate)
	outputLen := int(float64(len(input))/ratio + 0.5)
	out := make([]float64, outputLen)
	last := len(input) - 1

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = input[last]
			continue
		}
		frac := pos - float64(idx)
		out[i] = input[idx]*(1-frac) + input[idx+1]*frac
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Resampler.Resample",
		"input_size":  len(input),
		"output_size": len(out),
		"ratio":       ratio,
	}).Debug("Resampling completed")

	return out, nil
}

// GetInputRate returns the configured input sample rate.
func (r *Resampler) GetInputRate() uint32 {
	return r.inputRate
}

// GetOutputRate returns the configured output sample rate.
func (r *Resampler) GetOutputRate() uint32 {
	return r.outputRate
}
