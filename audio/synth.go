package audio

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/soniccipher/tone"
)

// DefaultSampleRate is the rate used for every encoded message.
const DefaultSampleRate uint32 = 44100

// fadeSeconds is the longest fade applied at each tone boundary.
const fadeSeconds = 0.01

// Synthesize renders events into one waveform at sampleRate.
//
// The output buffer holds int(sum(durations)*sampleRate) samples. Each tone
// is rendered on its own time axis starting at zero, faded in and out, and
// copied directly after the previous one. When rounding leaves the buffer
// shorter than the rendered tones, the last tone is cut at the buffer end.
func Synthesize(events []tone.Event, sampleRate uint32) []float64 {
	var total float64
	for _, e := range events {
		total += e.Duration
	}

	rate := float64(sampleRate)
	out := make([]float64, int(total*rate))

	logrus.WithFields(logrus.Fields{
		"function":    "Synthesize",
		"event_count": len(events),
		"sample_rate": sampleRate,
		"samples":     len(out),
	}).Debug("Synthesizing tone sequence")

	cursor := 0
	truncated := 0
	for _, e := range events {
		samples := renderTone(e, rate)
		end := cursor + len(samples)
		switch {
		case cursor >= len(out):
			truncated += len(samples)
		case end > len(out):
			n := copy(out[cursor:], samples)
			truncated += len(samples) - n
		default:
			copy(out[cursor:end], samples)
		}
		cursor = end
	}

	if truncated > 0 {
		logrus.WithFields(logrus.Fields{
			"function":          "Synthesize",
			"truncated_samples": truncated,
		}).Debug("Final tone truncated to buffer length")
	}

	return out
}

// renderTone produces amplitude*sin(2πft) for t in [0, duration) with the
// boundary fades applied.
func renderTone(e tone.Event, rate float64) []float64 {
	n := toneLength(e.Duration, rate)
	samples := make([]float64, n)
	w := 2 * math.Pi * e.Frequency
	for i := range samples {
		samples[i] = e.Amplitude * math.Sin(w*float64(i)/rate)
	}
	applyFades(samples, min(int(fadeSeconds*rate), n/4))
	return samples
}

// toneLength counts the sample instants 0, 1/rate, 2/rate ... below duration.
func toneLength(duration, rate float64) int {
	if duration <= 0 {
		return 0
	}
	n := int(math.Ceil(duration * rate))
	// Guard against duration*rate landing a hair above an integer.
	for n > 0 && float64(n-1)/rate >= duration {
		n--
	}
	return n
}

// applyFades ramps the first and last fade samples linearly, endpoints
// included, so the tone starts and ends at zero.
func applyFades(samples []float64, fade int) {
	if fade <= 0 {
		return
	}
	if fade == 1 {
		// A one-point ramp is just the zero at the start.
		samples[0] = 0
		return
	}
	n := len(samples)
	for i := 0; i < fade; i++ {
		gain := float64(i) / float64(fade-1)
		samples[i] *= gain
		samples[n-1-i] *= gain
	}
}
