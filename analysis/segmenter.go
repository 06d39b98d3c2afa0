package analysis

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Segment is a half-open sample range [Start, End) believed to hold one tone.
type Segment struct {
	Start int
	End   int
}

// Len returns the number of samples in the segment.
func (s Segment) Len() int {
	return s.End - s.Start
}

// SegmenterConfig holds the framing and threshold parameters.
type SegmenterConfig struct {
	FrameDuration time.Duration // analysis window
	HopDuration   time.Duration // distance between frame starts
	Threshold     float64       // normalized energy above which a frame is active

	// CloseOpenRuns treats activity at the first or last frame as the start
	// or end of a run. When false, a rise or fall is only padded with the
	// sequence start or end when their counts differ, so a signal active
	// throughout yields no segments.
	CloseOpenRuns bool
}

// DefaultSegmenterConfig returns 20ms frames, a 10ms hop and a 0.1 threshold.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		FrameDuration: 20 * time.Millisecond,
		HopDuration:   10 * time.Millisecond,
		Threshold:     0.1,
	}
}

// Validate checks that the durations are positive and the threshold is in [0,1).
func (c SegmenterConfig) Validate() error {
	if c.FrameDuration <= 0 || c.HopDuration <= 0 {
		return fmt.Errorf("%w: frame %v, hop %v", ErrInvalidConfig, c.FrameDuration, c.HopDuration)
	}
	if c.Threshold < 0 || c.Threshold >= 1 {
		return fmt.Errorf("%w: threshold %v must be in [0,1)", ErrInvalidConfig, c.Threshold)
	}
	return nil
}

// Segmenter finds tone segments by short-time energy.
type Segmenter struct {
	config SegmenterConfig
}

// NewSegmenter validates config and returns a Segmenter.
func NewSegmenter(config SegmenterConfig) (*Segmenter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Segmenter{config: config}, nil
}

// Config returns the segmenter configuration.
func (s *Segmenter) Config() SegmenterConfig {
	return s.config
}

// Segment returns the tone segments of samples in order. Silence, signals
// below the threshold and signals shorter than one frame yield no segments.
// Unless CloseOpenRuns is set, neither does a signal active from the first
// frame to the last.
func (s *Segmenter) Segment(samples []float64, sampleRate uint32) []Segment {
	frameLen := int(s.config.FrameDuration.Seconds() * float64(sampleRate))
	hop := int(s.config.HopDuration.Seconds() * float64(sampleRate))
	if frameLen <= 0 || hop <= 0 {
		return []Segment{}
	}

	active := s.activeFrames(samples, frameLen, hop)
	runs := activeRuns(active, s.config.CloseOpenRuns)

	segments := make([]Segment, 0, len(runs))
	for _, r := range runs {
		start := r[0] * hop
		end := (r[1]+1)*hop + frameLen
		if end > len(samples) {
			end = len(samples)
		}
		// A rise paired with an earlier fall can describe an empty range.
		if end <= start {
			continue
		}
		segments = append(segments, Segment{Start: start, End: end})
	}
	merged := mergeSegments(segments, frameLen)

	logrus.WithFields(logrus.Fields{
		"function":      "Segmenter.Segment",
		"samples":       len(samples),
		"frames":        len(active),
		"raw_segments":  len(segments),
		"segment_count": len(merged),
	}).Debug("Segmentation completed")

	return merged
}

// activeFrames scores each frame by energy normalized to the loudest frame.
// Frames start at 0, hop, 2*hop ... while start < len(samples)-frameLen.
func (s *Segmenter) activeFrames(samples []float64, frameLen, hop int) []bool {
	var energy []float64
	for i := 0; i < len(samples)-frameLen; i += hop {
		frame := samples[i : i+frameLen]
		energy = append(energy, floats.Dot(frame, frame))
	}
	if len(energy) == 0 {
		return nil
	}

	if peak := floats.Max(energy); peak > 0 {
		floats.Scale(1/peak, energy)
	}

	active := make([]bool, len(energy))
	for i, e := range energy {
		active[i] = e > s.config.Threshold
	}
	return active
}

// activeRuns pairs rising and falling edges of the active sequence into
// [first, last] frame indices. A rise is recorded at the frame before the
// first active one and a fall at the last active frame.
//
// By default a missing edge is padded only when the counts differ: an extra
// rise gets the final frame as its fall, an extra fall gets frame 0 as its
// rise. Edges are then paired in order. With closeOpen set, a run active at
// frame 0 always starts there and a run active at the end always closes on
// the final frame.
func activeRuns(active []bool, closeOpen bool) [][2]int {
	var starts, ends []int
	for i := 0; i+1 < len(active); i++ {
		switch {
		case !active[i] && active[i+1]:
			starts = append(starts, i)
		case active[i] && !active[i+1]:
			ends = append(ends, i)
		}
	}

	if closeOpen {
		if len(active) > 0 && active[0] {
			starts = append([]int{0}, starts...)
		}
		if len(active) > 0 && active[len(active)-1] {
			ends = append(ends, len(active)-1)
		}
	} else {
		switch {
		case len(starts) > len(ends):
			ends = append(ends, len(active)-1)
		case len(starts) < len(ends):
			starts = append([]int{0}, starts...)
		}
	}

	runs := make([][2]int, 0, len(starts))
	for i := 0; i < len(starts) && i < len(ends); i++ {
		runs = append(runs, [2]int{starts[i], ends[i]})
	}
	return runs
}

// mergeSegments joins neighbours separated by less than one frame. Fades at
// tone boundaries can dip a frame under the threshold inside one tone.
func mergeSegments(segments []Segment, frameLen int) []Segment {
	if len(segments) == 0 {
		return segments
	}
	merged := []Segment{segments[0]}
	for _, cur := range segments[1:] {
		prev := &merged[len(merged)-1]
		if cur.Start-prev.End < frameLen {
			prev.End = cur.End
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}
