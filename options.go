package soniccipher

import (
	"fmt"
	"math"

	"github.com/opd-ai/soniccipher/analysis"
	"github.com/opd-ai/soniccipher/audio"
	"github.com/opd-ai/soniccipher/tone"
)

// Key bounds accepted by Options.Validate.
const (
	MinKey = 1
	MaxKey = 25
)

// DefaultKey is the shift applied when none is configured.
const DefaultKey = 7

// DefaultTolerance is the relative frequency tolerance of the analysis path.
const DefaultTolerance = 0.05

// Options contains configuration for a Codec.
type Options struct {
	Key          int
	BaseFreq     float64 // Hz
	FreqRange    float64 // Hz above BaseFreq covered by the 256 codes
	BaseDuration float64 // seconds per tone before algorithm variation
	Algorithm    tone.Algorithm
	SampleRate   uint32
	Tolerance    float64 // relative, used only without metadata
	Segmenter    analysis.SegmenterConfig
	Estimator    analysis.EstimatorConfig
	TimeProvider TimeProvider
}

// NewOptions creates a new default options.
func NewOptions() *Options {
	return &Options{
		Key:          DefaultKey,
		BaseFreq:     tone.DefaultBaseFreq,
		FreqRange:    tone.DefaultFreqRange,
		BaseDuration: tone.DefaultBaseDuration,
		Algorithm:    tone.Standard,
		SampleRate:   audio.DefaultSampleRate,
		Tolerance:    DefaultTolerance,
		Segmenter:    analysis.DefaultSegmenterConfig(),
		Estimator:    analysis.DefaultEstimatorConfig(),
		TimeProvider: DefaultTimeProvider{},
	}
}

// Validate reports the first unusable setting as an error matching ErrConfig.
func (o *Options) Validate() error {
	if o.Key < MinKey || o.Key > MaxKey {
		return fmt.Errorf("%w: key %d outside %d..%d", ErrConfig, o.Key, MinKey, MaxKey)
	}
	if err := (tone.Mapper{BaseFreq: o.BaseFreq, FreqRange: o.FreqRange}).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if !(o.BaseDuration > 0) || math.IsInf(o.BaseDuration, 0) {
		return fmt.Errorf("%w: base duration %v must be positive", ErrConfig, o.BaseDuration)
	}
	if !o.Algorithm.Valid() {
		return fmt.Errorf("%w: %w: %d", ErrConfig, tone.ErrUnknownAlgorithm, o.Algorithm)
	}
	if o.SampleRate == 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrConfig)
	}
	if !(o.Tolerance >= 0) || o.Tolerance >= 1 {
		return fmt.Errorf("%w: tolerance %v outside [0,1)", ErrConfig, o.Tolerance)
	}
	if err := o.Segmenter.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := o.Estimator.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}
