// Package tone maps symbol codes onto audible frequencies and builds the
// ordered tone plan for a message.
//
// A Mapper spreads the 256 codes linearly over [BaseFreq, BaseFreq+FreqRange].
// One code unit is FreqRange/256 Hz wide; any frequency error larger than half
// of that step decodes to a neighbouring code.
package tone

import (
	"errors"
	"fmt"
	"math"

	"github.com/opd-ai/soniccipher/symbol"
)

var (
	// ErrInvalidRange indicates a non-positive base frequency or range.
	ErrInvalidRange = errors.New("invalid frequency range")

	// ErrUnknownAlgorithm indicates an unrecognised algorithm label.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// Default mapping and timing.
const (
	DefaultBaseFreq     = 220.0
	DefaultFreqRange    = 660.0
	DefaultBaseDuration = 0.1
)

// Event is one tone: the audible form of a single character.
type Event struct {
	Frequency float64 // Hz
	Duration  float64 // seconds
	Amplitude float64 // 0..1
}

// Mapper converts between codes and frequencies.
type Mapper struct {
	BaseFreq  float64
	FreqRange float64
}

// NewMapper returns a validated mapper.
func NewMapper(baseFreq, freqRange float64) (Mapper, error) {
	m := Mapper{BaseFreq: baseFreq, FreqRange: freqRange}
	if err := m.Validate(); err != nil {
		return Mapper{}, err
	}
	return m, nil
}

// DefaultMapper covers 220..880 Hz.
func DefaultMapper() Mapper {
	return Mapper{BaseFreq: DefaultBaseFreq, FreqRange: DefaultFreqRange}
}

// Validate checks that both bounds are positive and finite.
func (m Mapper) Validate() error {
	if !(m.BaseFreq > 0) || math.IsInf(m.BaseFreq, 0) {
		return fmt.Errorf("%w: base frequency %v must be positive", ErrInvalidRange, m.BaseFreq)
	}
	if !(m.FreqRange > 0) || math.IsInf(m.FreqRange, 0) {
		return fmt.Errorf("%w: frequency range %v must be positive", ErrInvalidRange, m.FreqRange)
	}
	return nil
}

// CodeToFrequency returns base + (code/256)*range.
func (m Mapper) CodeToFrequency(code int) float64 {
	return m.BaseFreq + (float64(code)/symbol.Alphabet)*m.FreqRange
}

// FrequencyToCode is the exact inverse of CodeToFrequency for noiseless input.
func (m Mapper) FrequencyToCode(freq float64) int {
	return CodeFromNormalized(m.Normalize(freq))
}

// Normalize maps freq onto [0,1] for frequencies inside the range.
func (m Mapper) Normalize(freq float64) float64 {
	return (freq - m.BaseFreq) / m.FreqRange
}

// Step is the width of one code unit in Hz.
func (m Mapper) Step() float64 {
	return m.FreqRange / symbol.Alphabet
}

// Max is the highest frequency the mapper can produce.
func (m Mapper) Max() float64 {
	return m.BaseFreq + m.FreqRange
}

// CodeFromNormalized rounds a normalized frequency to the nearest code,
// ties to even.
func CodeFromNormalized(n float64) int {
	return int(math.RoundToEven(n * symbol.Alphabet))
}
