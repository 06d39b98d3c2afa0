package tone

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/soniccipher/symbol"
)

// Plan is the ordered tone sequence for a message, together with the codes
// it was derived from.
type Plan struct {
	Events   []Event
	Original []int // codepoints before the shift
	Shifted  []int // codes after the shift
}

// Frequencies returns the frequency of every event, in order.
func (p *Plan) Frequencies() []float64 {
	out := make([]float64, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Frequency
	}
	return out
}

// Durations returns the duration of every event, in order.
func (p *Plan) Durations() []float64 {
	out := make([]float64, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Duration
	}
	return out
}

// Amplitudes returns the amplitude of every event, in order.
func (p *Plan) Amplitudes() []float64 {
	out := make([]float64, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Amplitude
	}
	return out
}

// TotalDuration is the sum of all event durations in seconds.
func (p *Plan) TotalDuration() float64 {
	var total float64
	for _, e := range p.Events {
		total += e.Duration
	}
	return total
}

// Build turns text into one Event per rune. The key is not range checked
// here; callers validate it at their configuration boundary.
func (m Mapper) Build(text string, key int, baseDuration float64, alg Algorithm) *Plan {
	original := symbol.Codepoints(text)
	plan := &Plan{
		Events:   make([]Event, len(original)),
		Original: original,
		Shifted:  make([]int, len(original)),
	}

	for i, r := range []rune(text) {
		code := symbol.Encode(r, key)
		plan.Shifted[i] = code
		plan.Events[i] = Event{
			Frequency: m.CodeToFrequency(code),
			Duration:  alg.Duration(baseDuration, i, key),
			Amplitude: alg.Amplitude(code),
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Mapper.Build",
		"char_count": len(plan.Events),
		"algorithm":  alg.String(),
		"base_freq":  m.BaseFreq,
		"freq_range": m.FreqRange,
	}).Debug("Tone plan built")

	return plan
}
