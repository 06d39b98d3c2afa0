package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, seconds float64, rate uint32) []float64 {
	n := int(seconds * float64(rate))
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func gapped(rate uint32, tone, gap float64, freqs ...float64) []float64 {
	var out []float64
	for i, f := range freqs {
		if i > 0 {
			out = append(out, make([]float64, int(gap*float64(rate)))...)
		}
		out = append(out, sine(f, tone, rate)...)
	}
	return out
}

func newSegmenter(t *testing.T) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(DefaultSegmenterConfig())
	require.NoError(t, err)
	return s
}

func newEstimator(t *testing.T, cfg EstimatorConfig) *Estimator {
	t.Helper()
	e, err := NewEstimator(cfg)
	require.NoError(t, err)
	return e
}

func TestSegmenterConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*SegmenterConfig)
		expectErr bool
	}{
		{"default", func(*SegmenterConfig) {}, false},
		{"zero_frame", func(c *SegmenterConfig) { c.FrameDuration = 0 }, true},
		{"negative_hop", func(c *SegmenterConfig) { c.HopDuration = -time.Millisecond }, true},
		{"threshold_one", func(c *SegmenterConfig) { c.Threshold = 1 }, true},
		{"threshold_negative", func(c *SegmenterConfig) { c.Threshold = -0.1 }, true},
		{"threshold_zero", func(c *SegmenterConfig) { c.Threshold = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSegmenterConfig()
			tt.mutate(&cfg)
			s, err := NewSegmenter(cfg)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg, s.Config())
		})
	}
}

func TestSegment_Silence(t *testing.T) {
	s := newSegmenter(t)
	assert.Empty(t, s.Segment(make([]float64, 8000), 8000))
}

func TestSegment_ShorterThanFrame(t *testing.T) {
	s := newSegmenter(t)
	assert.Empty(t, s.Segment(sine(440, 0.01, 8000), 8000))
	assert.Empty(t, s.Segment(nil, 8000))
	assert.Empty(t, s.Segment(sine(440, 0.1, 10), 10))
}

// withSilence surrounds samples with pad seconds of silence on both sides.
func withSilence(rate uint32, pad float64, samples []float64) []float64 {
	n := int(pad * float64(rate))
	out := make([]float64, n, 2*n+len(samples))
	out = append(out, samples...)
	return append(out, make([]float64, n)...)
}

func TestSegment_GappedTones(t *testing.T) {
	const rate = 8000
	s := newSegmenter(t)
	samples := withSilence(rate, 0.1, gapped(rate, 0.2, 0.1, 300, 500, 700))

	segs := s.Segment(samples, rate)
	require.Len(t, segs, 3)

	lead := int(0.1 * rate)
	toneLen := int(0.2 * rate)
	gapLen := int(0.1 * rate)
	for i, seg := range segs {
		toneStart := lead + i*(toneLen+gapLen)
		assert.LessOrEqual(t, seg.Start, toneStart, "segment %d", i)
		assert.GreaterOrEqual(t, seg.End, toneStart+toneLen-1, "segment %d", i)
		assert.LessOrEqual(t, seg.End, len(samples))
		assert.Greater(t, seg.Len(), 0)
	}
	for i := 1; i < len(segs); i++ {
		assert.Greater(t, segs[i].Start, segs[i-1].End)
	}
}

func TestSegment_ContinuousSignal(t *testing.T) {
	const rate = 8000
	samples := sine(440, 0.5, rate)

	// Active from the first frame to the last: no rise and no fall.
	assert.Empty(t, newSegmenter(t).Segment(samples, rate))

	cfg := DefaultSegmenterConfig()
	cfg.CloseOpenRuns = true
	closing, err := NewSegmenter(cfg)
	require.NoError(t, err)

	segs := closing.Segment(samples, rate)
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].Start)
	assert.Equal(t, len(samples), segs[0].End)
}

func TestSegment_ToneAtBothEdges(t *testing.T) {
	const rate = 8000
	samples := gapped(rate, 0.2, 0.1, 300, 500)

	// The only rise (before the second tone) pairs with the only fall (after
	// the first), which leaves an empty range.
	assert.Empty(t, newSegmenter(t).Segment(samples, rate))

	cfg := DefaultSegmenterConfig()
	cfg.CloseOpenRuns = true
	closing, err := NewSegmenter(cfg)
	require.NoError(t, err)
	assert.Len(t, closing.Segment(samples, rate), 2)
}

func TestSegment_LeadingToneIsPadded(t *testing.T) {
	const rate = 8000
	samples := append(sine(440, 0.2, rate), make([]float64, int(0.1*rate))...)

	segs := newSegmenter(t).Segment(samples, rate)
	require.Len(t, segs, 1)
	assert.Equal(t, 0, segs[0].Start)
	assert.GreaterOrEqual(t, segs[0].End, int(0.2*rate)-1)
}

func TestActiveRuns(t *testing.T) {
	tests := []struct {
		name      string
		active    []bool
		counted   [][2]int
		closeOpen [][2]int
	}{
		{"none", []bool{false, false, false}, [][2]int{}, [][2]int{}},
		{"interior", []bool{false, true, true, false}, [][2]int{{0, 2}}, [][2]int{{0, 2}}},
		{"leading", []bool{true, true, false, false}, [][2]int{{0, 1}}, [][2]int{{0, 1}}},
		{"trailing", []bool{false, false, true, true}, [][2]int{{1, 3}}, [][2]int{{1, 3}}},
		{"all", []bool{true, true, true}, [][2]int{}, [][2]int{{0, 2}}},
		{"two", []bool{false, true, false, true, false}, [][2]int{{0, 1}, {2, 3}}, [][2]int{{0, 1}, {2, 3}}},
		{"both_edges", []bool{true, false, true}, [][2]int{{1, 0}}, [][2]int{{0, 0}, {1, 2}}},
		{"both_edges_wide", []bool{true, false, false, true}, [][2]int{{2, 0}}, [][2]int{{0, 0}, {2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.counted, activeRuns(tt.active, false))
			assert.Equal(t, tt.closeOpen, activeRuns(tt.active, true))
		})
	}
}

func TestMergeSegments(t *testing.T) {
	in := []Segment{{0, 100}, {150, 300}, {600, 700}}
	out := mergeSegments(in, 160)
	assert.Equal(t, []Segment{{0, 300}, {600, 700}}, out)

	assert.Empty(t, mergeSegments(nil, 160))
}

func TestEstimatorConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*EstimatorConfig)
		expectErr bool
	}{
		{"default", func(*EstimatorConfig) {}, false},
		{"inverted_band", func(c *EstimatorConfig) { c.BandLow, c.BandHigh = 1000, 200 }, true},
		{"negative_low", func(c *EstimatorConfig) { c.BandLow = -1 }, true},
		{"tiny_window", func(c *EstimatorConfig) { c.MaxWindow = 1 }, true},
		{"tiny_min", func(c *EstimatorConfig) { c.MinSamples = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEstimatorConfig()
			tt.mutate(&cfg)
			e, err := NewEstimator(cfg)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Nil(t, e)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cfg, e.Config())
		})
	}
}

func TestDominant_TooShort(t *testing.T) {
	e := newEstimator(t, DefaultEstimatorConfig())
	assert.Zero(t, e.Dominant(sine(440, 0.001, 44100), 44100))
	assert.Zero(t, e.Dominant(make([]float64, 99), 44100))
	assert.Zero(t, e.Dominant(make([]float64, 500), 0))
}

func TestDominant_PureTone(t *testing.T) {
	const rate = 44100
	binHz := float64(rate) / 1024

	e := newEstimator(t, DefaultEstimatorConfig())
	for _, f := range []float64{250, 440, 660, 875} {
		got := e.Dominant(sine(f, 0.1, rate), rate)
		assert.InDelta(t, f, got, binHz, "tone %v Hz", f)
	}
}

func TestDominant_Interpolated(t *testing.T) {
	const rate = 44100
	cfg := DefaultEstimatorConfig()
	cfg.Interpolate = true
	e := newEstimator(t, cfg)

	got := e.Dominant(sine(440, 0.1, rate), rate)
	assert.InDelta(t, 440, got, 15)
}

func TestDominant_SilenceReturnsFirstBandBin(t *testing.T) {
	const rate = 44100
	e := newEstimator(t, DefaultEstimatorConfig())
	got := e.Dominant(make([]float64, 2048), rate)
	assert.InDelta(t, 5*float64(rate)/1024, got, 1e-9)
}

func TestDominant_WholeSegmentFallback(t *testing.T) {
	const rate = 44100
	// 100-sample windows put STFT bins 441 Hz apart, none inside 600..800.
	e := newEstimator(t, EstimatorConfig{MinSamples: 100, MaxWindow: 100, BandLow: 600, BandHigh: 800})
	got := e.Dominant(sine(700, 0.1, rate), rate)
	assert.InDelta(t, 700, got, 10)
}

func TestDominant_NoBandBins(t *testing.T) {
	// At 300 Hz sampling nothing reaches 200 Hz.
	e := newEstimator(t, DefaultEstimatorConfig())
	assert.Zero(t, e.Dominant(sine(50, 1, 300), 300))
}

func TestHannWindow_Periodic(t *testing.T) {
	w := hannWindow(4)
	require.Len(t, w, 4)
	for i, want := range []float64{0, 0.5, 1, 0.5} {
		assert.InDelta(t, want, w[i], 1e-12, "point %d", i)
	}
	assert.Equal(t, []float64{1}, hannWindow(1))
}

func TestAverageSTFT_OddLengthHop(t *testing.T) {
	// A 5-point window overlaps by 2 and steps by 3. Two zeros extend each end
	// and two more fill the last frame, giving frames at 0, 3 and 6. The
	// impulse sits at offset 3 of the first frame and at offset 0, where the
	// window is zero, of the second.
	impulse := []float64{0, 1, 0, 0, 0}
	mag := averageSTFT(impulse, 5)
	require.Len(t, mag, 3)

	want := hannWindow(5)[3] / 3
	for k, m := range mag {
		assert.InDelta(t, want, m, 1e-12, "bin %d", k)
	}
}

func TestParabolicOffset(t *testing.T) {
	assert.Zero(t, parabolicOffset([]float64{1, 2}, 0))
	assert.Zero(t, parabolicOffset([]float64{1, 1, 1}, 1))
	assert.InDelta(t, 0.0, parabolicOffset([]float64{1, 2, 1}, 1), 1e-12)
	assert.Greater(t, parabolicOffset([]float64{1, 2, 1.5}, 1), 0.0)
	assert.Less(t, parabolicOffset([]float64{1.5, 2, 1}, 1), 0.0)
}
