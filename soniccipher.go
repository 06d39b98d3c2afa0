package soniccipher

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/soniccipher/audio"
	"github.com/opd-ai/soniccipher/decode"
	"github.com/opd-ai/soniccipher/limits"
	"github.com/opd-ai/soniccipher/metadata"
	"github.com/opd-ai/soniccipher/store"
	"github.com/opd-ai/soniccipher/symbol"
	"github.com/opd-ai/soniccipher/tone"
)

// EncodedMessage is the output of Encrypt. The caller owns it.
type EncodedMessage struct {
	Waveform   []float64
	SampleRate uint32
	Metadata   *metadata.Metadata
}

// Duration returns the playing time of the waveform in seconds.
func (m *EncodedMessage) Duration() float64 {
	if m.SampleRate == 0 {
		return 0
	}
	return float64(len(m.Waveform)) / float64(m.SampleRate)
}

// Save writes the waveform and its metadata side files to path.
func (m *EncodedMessage) Save(path string) error {
	return store.Save(path, m.Waveform, m.SampleRate, m.Metadata)
}

// SaveSealed writes the waveform to path and the metadata sealed under
// passphrase next to it.
func (m *EncodedMessage) SaveSealed(path string, passphrase []byte) error {
	return store.SaveSealed(path, m.Waveform, m.SampleRate, m.Metadata, passphrase)
}

// Codec encodes text to tones and decodes tones back to text with one fixed
// configuration. It is safe for concurrent use.
type Codec struct {
	options  Options
	mapper   tone.Mapper
	analyzer *decode.Analyzer

	progressMu sync.RWMutex
	progress   func(percent int)
}

// New validates opts and creates a Codec. A nil opts uses NewOptions.
func New(opts *Options) (*Codec, error) {
	if opts == nil {
		opts = NewOptions()
	}
	if err := opts.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "New",
			"error":    err.Error(),
		}).Error("Invalid codec options")
		return nil, err
	}

	c := &Codec{
		options: *opts,
		mapper:  tone.Mapper{BaseFreq: opts.BaseFreq, FreqRange: opts.FreqRange},
	}
	if c.options.TimeProvider == nil {
		c.options.TimeProvider = DefaultTimeProvider{}
	}

	analyzer, err := decode.NewAnalyzer(opts.Segmenter, opts.Estimator, c.mapper)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	analyzer.Progress = c.report
	c.analyzer = analyzer

	logrus.WithFields(logrus.Fields{
		"function":    "New",
		"algorithm":   opts.Algorithm.String(),
		"base_freq":   opts.BaseFreq,
		"freq_range":  opts.FreqRange,
		"sample_rate": opts.SampleRate,
	}).Debug("Codec created")

	return c, nil
}

// Options returns a copy of the codec configuration.
func (c *Codec) Options() Options {
	return c.options
}

// OnProgress sets the callback that receives completion percentages from
// Encrypt and from the analysis path of Decrypt. Pass nil to remove it.
func (c *Codec) OnProgress(fn func(percent int)) {
	c.progressMu.Lock()
	defer c.progressMu.Unlock()
	c.progress = fn
}

func (c *Codec) report(percent int) {
	c.progressMu.RLock()
	fn := c.progress
	c.progressMu.RUnlock()
	if fn != nil {
		fn(percent)
	}
}

// Encrypt renders text as a tone sequence and builds its metadata record.
// An empty text yields an empty waveform.
func (c *Codec) Encrypt(text string) (*EncodedMessage, error) {
	if err := limits.ValidateMessage(text); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if !symbol.IsLossless(text) {
		logrus.WithFields(logrus.Fields{
			"function": "Codec.Encrypt",
		}).Warn("Message contains characters above U+00FF, they will not decode to the same character")
	}

	start := c.options.TimeProvider.Now()

	plan := c.mapper.Build(text, c.options.Key, c.options.BaseDuration, c.options.Algorithm)
	c.report(50)

	waveform := audio.Synthesize(plan.Events, c.options.SampleRate)
	md := metadata.New(plan, c.mapper, c.options.BaseDuration, c.options.Algorithm, start)
	c.report(100)

	logrus.WithFields(logrus.Fields{
		"function":   "Codec.Encrypt",
		"char_count": len(plan.Events),
		"samples":    len(waveform),
		"algorithm":  c.options.Algorithm.String(),
		"elapsed":    c.options.TimeProvider.Since(start).String(),
	}).Info("Message encrypted")

	return &EncodedMessage{
		Waveform:   waveform,
		SampleRate: c.options.SampleRate,
		Metadata:   md,
	}, nil
}

// Decrypt recovers text. With metadata the stored frequencies are inverted
// exactly and the waveform is ignored. Without it the waveform is analyzed
// and unresolvable tones become '?'.
func (c *Codec) Decrypt(waveform []float64, sampleRate uint32, md *metadata.Metadata) (string, error) {
	if md != nil {
		text, err := decode.WithMetadata(md, c.options.Key)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFormat, err)
		}
		c.report(100)
		return text, nil
	}

	res, err := c.Analyze(waveform, sampleRate)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Analyze decodes waveform without metadata and returns the full analysis.
func (c *Codec) Analyze(waveform []float64, sampleRate uint32) (*decode.Result, error) {
	if sampleRate == 0 {
		return nil, fmt.Errorf("%w: sample rate must be positive", ErrConfig)
	}
	if err := limits.ValidateWaveform(len(waveform)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return c.analyzer.Analyze(waveform, sampleRate, c.options.Key, c.options.Tolerance), nil
}

// Encrypt encodes text with the default sample rate, mapping range and
// analysis settings.
func Encrypt(text string, key int, baseFreq, baseDuration float64, algorithm tone.Algorithm) (*EncodedMessage, error) {
	opts := NewOptions()
	opts.Key = key
	opts.BaseFreq = baseFreq
	opts.BaseDuration = baseDuration
	opts.Algorithm = algorithm

	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	return c.Encrypt(text)
}

// Decrypt decodes a waveform. When md is nil the default 220..880 Hz mapping
// is assumed and tolerance controls symbol recovery.
func Decrypt(waveform []float64, sampleRate uint32, key int, tolerance float64, md *metadata.Metadata) (string, error) {
	opts := NewOptions()
	opts.Key = key
	opts.Tolerance = tolerance

	c, err := New(opts)
	if err != nil {
		return "", err
	}
	return c.Decrypt(waveform, sampleRate, md)
}
