// Package metadata defines the side record written next to every encoded
// waveform. It carries enough information to decode the waveform exactly:
// the mapping parameters and the frequency of every tone.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/soniccipher/limits"
	"github.com/opd-ai/soniccipher/tone"
)

// FormatVersion is written to every record.
const FormatVersion = "1.0.0"

// DateLayout is the layout of the encryption_date field.
const DateLayout = "2006-01-02 15:04:05"

// infoFrequencies is how many frequencies the info summary lists.
const infoFrequencies = 10

// Metadata is the JSON side record of one encoded message.
type Metadata struct {
	Algorithm      string    `json:"algorithm"`
	BaseFreq       float64   `json:"base_freq"`
	BaseDuration   float64   `json:"base_duration"`
	FreqRange      float64   `json:"freq_range"`
	CharCount      int       `json:"char_count"`
	Frequencies    []float64 `json:"frequencies"`
	Durations      []float64 `json:"durations"`
	Amplitudes     []float64 `json:"amplitudes"`
	OriginalChars  []int     `json:"original_chars"`
	ShiftedChars   []int     `json:"shifted_chars"`
	EncryptionDate Timestamp `json:"encryption_date"`
	Version        string    `json:"version"`
}

// New builds the record for plan, encoded at the given time.
func New(plan *tone.Plan, mapper tone.Mapper, baseDuration float64, alg tone.Algorithm, at time.Time) *Metadata {
	return &Metadata{
		Algorithm:      alg.String(),
		BaseFreq:       mapper.BaseFreq,
		BaseDuration:   baseDuration,
		FreqRange:      mapper.FreqRange,
		CharCount:      len(plan.Events),
		Frequencies:    plan.Frequencies(),
		Durations:      plan.Durations(),
		Amplitudes:     plan.Amplitudes(),
		OriginalChars:  append([]int{}, plan.Original...),
		ShiftedChars:   append([]int{}, plan.Shifted...),
		EncryptionDate: Timestamp{Time: at},
		Version:        FormatVersion,
	}
}

// Mapper returns the tone mapping the record was encoded with.
func (m *Metadata) Mapper() tone.Mapper {
	return tone.Mapper{BaseFreq: m.BaseFreq, FreqRange: m.FreqRange}
}

// Variant returns the algorithm named by the record. Unknown labels resolve
// to tone.Standard.
func (m *Metadata) Variant() tone.Algorithm {
	alg, err := tone.ParseAlgorithm(m.Algorithm)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Metadata.Variant",
			"algorithm": m.Algorithm,
		}).Warn("Unknown algorithm label, using standard")
	}
	return alg
}

// Validate checks the mapping parameters and that every per-tone list
// matches CharCount. The character lists are optional. A record with no
// frequencies holds zero characters whatever CharCount says.
func (m *Metadata) Validate() error {
	if err := m.Mapper().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if m.CharCount < 0 {
		return fmt.Errorf("%w: negative char_count %d", ErrInvalid, m.CharCount)
	}
	if len(m.Frequencies) == 0 {
		return nil
	}

	lists := []struct {
		name     string
		n        int
		optional bool
	}{
		{"frequencies", len(m.Frequencies), false},
		{"durations", len(m.Durations), false},
		{"amplitudes", len(m.Amplitudes), false},
		{"original_chars", len(m.OriginalChars), true},
		{"shifted_chars", len(m.ShiftedChars), true},
	}
	for _, l := range lists {
		if l.optional && l.n == 0 {
			continue
		}
		if l.n != m.CharCount {
			return fmt.Errorf("%w: %s has %d entries, char_count is %d", ErrInvalid, l.name, l.n, m.CharCount)
		}
	}
	return nil
}

// Marshal encodes m as indented JSON.
func Marshal(m *Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a record. Missing base_freq and freq_range take the
// default mapping so records written without them still decode.
func Unmarshal(data []byte) (*Metadata, error) {
	if err := limits.ValidateMetadata(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	m := &Metadata{
		Algorithm: tone.Standard.String(),
		BaseFreq:  tone.DefaultBaseFreq,
		FreqRange: tone.DefaultFreqRange,
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return m, nil
}

// WriteInfo writes a plain-text summary of m, listing the first ten
// frequencies.
func WriteInfo(w io.Writer, m *Metadata) error {
	var b bytes.Buffer

	date := "Unknown"
	if !m.EncryptionDate.IsZero() {
		date = m.EncryptionDate.Format(DateLayout)
	}

	fmt.Fprintln(&b, "SonicCipher Encrypted Audio")
	fmt.Fprintf(&b, "Encrypted on: %s\n", date)
	fmt.Fprintf(&b, "Algorithm: %s\n", m.Algorithm)
	fmt.Fprintf(&b, "Base Frequency: %g Hz\n", m.BaseFreq)
	fmt.Fprintf(&b, "Frequency Range: %g Hz\n", m.FreqRange)
	fmt.Fprintf(&b, "Character Count: %d\n", m.CharCount)

	if m.Frequencies != nil {
		shown := m.Frequencies[:min(len(m.Frequencies), infoFrequencies)]
		parts := make([]string, len(shown))
		for i, f := range shown {
			parts[i] = fmt.Sprintf("%.2f", f)
		}
		fmt.Fprintf(&b, "Frequencies: %s", strings.Join(parts, ", "))
		if extra := len(m.Frequencies) - infoFrequencies; extra > 0 {
			fmt.Fprintf(&b, "... (and %d more)", extra)
		}
		b.WriteByte('\n')
	}

	if _, err := w.Write(b.Bytes()); err != nil {
		return fmt.Errorf("failed to write info summary: %w", err)
	}
	return nil
}

// Timestamp is the encryption date. It is written in DateLayout and read
// from DateLayout or RFC 3339.
type Timestamp struct {
	time.Time
}

// MarshalJSON writes the timestamp in DateLayout, or "" when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(DateLayout))
}

// UnmarshalJSON accepts DateLayout, RFC 3339 and the empty string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("encryption_date: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{DateLayout, time.RFC3339Nano, "2006-01-02T15:04:05.999999999"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("encryption_date: unrecognized time %q", s)
}
