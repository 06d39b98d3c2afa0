package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/dsp/fourier"
)

// EstimatorConfig bounds the spectral search.
type EstimatorConfig struct {
	MinSamples  int     // shorter segments have no estimate
	MaxWindow   int     // STFT window length cap
	BandLow     float64 // Hz, inclusive
	BandHigh    float64 // Hz, inclusive
	Interpolate bool    // refine the peak bin with a parabolic fit
}

// DefaultEstimatorConfig searches 200..1000 Hz with windows of up to 1024
// samples and reports plain bin frequencies.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		MinSamples: 100,
		MaxWindow:  1024,
		BandLow:    200,
		BandHigh:   1000,
	}
}

// Validate checks the band and window settings.
func (c EstimatorConfig) Validate() error {
	if c.MinSamples < 2 || c.MaxWindow < 2 {
		return fmt.Errorf("%w: min samples %d, max window %d", ErrInvalidConfig, c.MinSamples, c.MaxWindow)
	}
	if c.BandLow < 0 || c.BandHigh <= c.BandLow {
		return fmt.Errorf("%w: band [%v, %v]", ErrInvalidConfig, c.BandLow, c.BandHigh)
	}
	return nil
}

// Estimator finds the dominant in-band frequency of a segment.
type Estimator struct {
	config EstimatorConfig
}

// NewEstimator validates config and returns an Estimator.
func NewEstimator(config EstimatorConfig) (*Estimator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{config: config}, nil
}

// Config returns the estimator configuration.
func (e *Estimator) Config() EstimatorConfig {
	return e.config
}

// Dominant returns the in-band frequency with the largest time-averaged STFT
// magnitude, falling back to a single FFT over the whole segment. Zero means
// no estimate: the segment is too short or no bin falls inside the band.
func (e *Estimator) Dominant(samples []float64, sampleRate uint32) float64 {
	if len(samples) < e.config.MinSamples || sampleRate == 0 {
		return 0
	}
	rate := float64(sampleRate)

	nperseg := min(e.config.MaxWindow, len(samples))
	mag := averageSTFT(samples, nperseg)
	if f, ok := e.peak(mag, rate/float64(nperseg)); ok {
		return f
	}

	logrus.WithFields(logrus.Fields{
		"function": "Estimator.Dominant",
		"samples":  len(samples),
		"nperseg":  nperseg,
	}).Debug("No in-band STFT bins, using whole-segment spectrum")

	coeffs := fft.FFTReal(samples)
	full := make([]float64, len(samples)/2+1)
	for k := range full {
		full[k] = cmplx.Abs(coeffs[k])
	}
	if f, ok := e.peak(full, rate/float64(len(samples))); ok {
		return f
	}
	return 0
}

// peak returns the frequency of the largest in-band bin. The first bin wins
// ties. binHz is the spacing between bins.
func (e *Estimator) peak(mag []float64, binHz float64) (float64, bool) {
	best := -1
	for k, m := range mag {
		f := float64(k) * binHz
		if f < e.config.BandLow || f > e.config.BandHigh {
			continue
		}
		if best < 0 || m > mag[best] {
			best = k
		}
	}
	if best < 0 {
		return 0, false
	}
	if e.config.Interpolate {
		return (float64(best) + parabolicOffset(mag, best)) * binHz, true
	}
	return float64(best) * binHz, true
}

// parabolicOffset fits a parabola through the peak bin and its neighbours
// and returns the vertex offset in bins, within [-0.5, 0.5].
func parabolicOffset(mag []float64, k int) float64 {
	if k <= 0 || k >= len(mag)-1 {
		return 0
	}
	a, b, c := mag[k-1], mag[k], mag[k+1]
	den := a - 2*b + c
	if den == 0 {
		return 0
	}
	d := 0.5 * (a - c) / den
	if d < -0.5 || d > 0.5 {
		return 0
	}
	return d
}

// averageSTFT returns the mean magnitude per bin over Hann-windowed frames
// of length nperseg overlapping by nperseg/2. The signal is zero-extended by
// half a window at both ends and zero-padded to fill the last frame.
func averageSTFT(samples []float64, nperseg int) []float64 {
	half := nperseg / 2
	hop := max(nperseg-half, 1)

	padded := make([]float64, half+len(samples)+half)
	copy(padded[half:], samples)
	if rem := (len(padded) - nperseg) % hop; rem != 0 {
		padded = append(padded, make([]float64, hop-rem)...)
	}

	win := hannWindow(nperseg)
	plan := fourier.NewFFT(nperseg)
	buf := make([]float64, nperseg)
	var coeffs []complex128
	mag := make([]float64, nperseg/2+1)

	frames := 0
	for start := 0; start+nperseg <= len(padded); start += hop {
		for i := range buf {
			buf[i] = padded[start+i] * win[i]
		}
		coeffs = plan.Coefficients(coeffs, buf)
		for k := range mag {
			mag[k] += cmplx.Abs(coeffs[k])
		}
		frames++
	}

	if frames > 0 {
		for k := range mag {
			mag[k] /= float64(frames)
		}
	}
	return mag
}

// hannWindow returns the periodic Hann window of length n, the first n points
// of the symmetric window of length n+1.
func hannWindow(n int) []float64 {
	if n < 2 {
		w := make([]float64, n)
		for i := range w {
			w[i] = 1
		}
		return w
	}
	return window.Hann(n + 1)[:n]
}
