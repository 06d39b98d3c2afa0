// Package decode turns tone frequencies back into text.
//
// WithMetadata inverts the stored frequency list exactly. Analyzer works from
// the waveform alone: it segments the signal, estimates one frequency per
// segment and snaps each estimate to a code, emitting symbol.Unknown where no
// code is within tolerance.
package decode

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/soniccipher/analysis"
	"github.com/opd-ai/soniccipher/metadata"
	"github.com/opd-ai/soniccipher/symbol"
	"github.com/opd-ai/soniccipher/tone"
)

// ErrMalformedMetadata indicates metadata whose mapping cannot be inverted.
var ErrMalformedMetadata = errors.New("malformed metadata")

// minSegmentSamples is the shortest segment handed to the estimator.
const minSegmentSamples = 10

// Symbol is one decoded position. Unknown symbols render as symbol.Unknown.
type Symbol struct {
	Code  int
	Known bool
}

// Rune returns the character for s under key.
func (s Symbol) Rune(key int) rune {
	if !s.Known {
		return symbol.Unknown
	}
	return symbol.Decode(s.Code, key)
}

// WithMetadata decodes the frequencies stored in md. A record without
// frequencies decodes to "".
func WithMetadata(md *metadata.Metadata, key int) (string, error) {
	if md == nil {
		return "", fmt.Errorf("%w: nil record", ErrMalformedMetadata)
	}
	mapper := md.Mapper()
	if err := mapper.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}

	codes := make([]int, len(md.Frequencies))
	for i, f := range md.Frequencies {
		codes[i] = mapper.FrequencyToCode(f)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "WithMetadata",
		"char_count": len(codes),
		"base_freq":  mapper.BaseFreq,
		"freq_range": mapper.FreqRange,
	}).Debug("Decoded from metadata")

	return symbol.DecodeCodes(codes, key), nil
}

// Resolve snaps freq to a code. The normalized frequency n is scaled by
// (1-tolerance), 1 and (1+tolerance); candidates outside [0,1] are
// discarded and the one with the smallest adjustment wins.
func Resolve(freq float64, mapper tone.Mapper, tolerance float64) Symbol {
	n := mapper.Normalize(freq)
	best := Symbol{}
	bestAdj := math.Inf(1)
	for _, t := range []float64{-tolerance, 0, tolerance} {
		adjusted := n * (1 + t)
		if adjusted < 0 || adjusted > 1 {
			continue
		}
		if math.Abs(t) < bestAdj {
			bestAdj = math.Abs(t)
			best = Symbol{Code: tone.CodeFromNormalized(adjusted), Known: true}
		}
	}
	return best
}

// Result holds the text recovered by an Analyzer and what it was built from.
// Frequencies and Symbols are parallel; segments that were too short or had
// no estimate contribute to neither.
type Result struct {
	Text        string
	Symbols     []Symbol
	Segments    []analysis.Segment
	Frequencies []float64
}

// Unknown counts the symbols that could not be resolved.
func (r *Result) Unknown() int {
	n := 0
	for _, s := range r.Symbols {
		if !s.Known {
			n++
		}
	}
	return n
}

// Analyzer decodes a bare waveform.
type Analyzer struct {
	Segmenter *analysis.Segmenter
	Estimator *analysis.Estimator
	Mapper    tone.Mapper

	// Progress, when set, receives a percentage after each segment.
	Progress func(percent int)
}

// NewAnalyzer builds an Analyzer from the two analysis configs.
func NewAnalyzer(seg analysis.SegmenterConfig, est analysis.EstimatorConfig, mapper tone.Mapper) (*Analyzer, error) {
	s, err := analysis.NewSegmenter(seg)
	if err != nil {
		return nil, err
	}
	e, err := analysis.NewEstimator(est)
	if err != nil {
		return nil, err
	}
	if err := mapper.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{Segmenter: s, Estimator: e, Mapper: mapper}, nil
}

// Analyze recovers text from samples. It never fails: unusable audio yields
// fewer characters or symbol.Unknown in place of a character.
func (a *Analyzer) Analyze(samples []float64, sampleRate uint32, key int, tolerance float64) *Result {
	segments := a.Segmenter.Segment(samples, sampleRate)
	res := &Result{Segments: segments}

	var text strings.Builder
	for i, seg := range segments {
		if seg.Len() > minSegmentSamples {
			if f := a.Estimator.Dominant(samples[seg.Start:seg.End], sampleRate); f > 0 {
				sym := Resolve(f, a.Mapper, tolerance)
				res.Frequencies = append(res.Frequencies, f)
				res.Symbols = append(res.Symbols, sym)
				text.WriteRune(sym.Rune(key))
			}
		}
		if a.Progress != nil {
			a.Progress((i + 1) * 100 / len(segments))
		}
	}
	res.Text = text.String()
	if len(segments) == 0 && a.Progress != nil {
		a.Progress(100)
	}

	fields := logrus.Fields{
		"function":  "Analyzer.Analyze",
		"samples":   len(samples),
		"segments":  len(segments),
		"decoded":   len(res.Symbols),
		"unknown":   res.Unknown(),
		"tolerance": tolerance,
	}
	if res.Unknown() > 0 {
		logrus.WithFields(fields).Warn("Some segments could not be resolved")
	} else {
		logrus.WithFields(fields).Debug("Analysis decode completed")
	}
	return res
}
