package metadata

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/soniccipher/tone"
)

var testDate = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func buildRecord(t *testing.T, text string, key int, alg tone.Algorithm) *Metadata {
	t.Helper()
	mapper := tone.DefaultMapper()
	plan := mapper.Build(text, key, tone.DefaultBaseDuration, alg)
	m := New(plan, mapper, tone.DefaultBaseDuration, alg, testDate)
	require.NoError(t, m.Validate())
	return m
}

func TestNew(t *testing.T) {
	m := buildRecord(t, "Hi", 7, tone.Enhanced)

	assert.Equal(t, "FSAE Enhanced", m.Algorithm)
	assert.Equal(t, tone.Enhanced, m.Variant())
	assert.Equal(t, 220.0, m.BaseFreq)
	assert.Equal(t, 660.0, m.FreqRange)
	assert.Equal(t, 0.1, m.BaseDuration)
	assert.Equal(t, 2, m.CharCount)
	assert.Equal(t, []int{'H', 'i'}, m.OriginalChars)
	assert.Equal(t, []int{'H' + 7, 'i' + 7}, m.ShiftedChars)
	assert.Len(t, m.Frequencies, 2)
	assert.InDelta(t, 0.15, m.Durations[1], 1e-12)
	assert.Equal(t, FormatVersion, m.Version)
	assert.Equal(t, tone.DefaultMapper(), m.Mapper())
}

func TestNew_EmptyPlanMarshalsArrays(t *testing.T) {
	m := buildRecord(t, "", 3, tone.Standard)
	data, err := Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"frequencies": []`)
	assert.NotContains(t, string(data), "null")
}

func TestMarshalUnmarshal(t *testing.T) {
	m := buildRecord(t, "Hello, World", 13, tone.PlusAES)

	data, err := Marshal(m)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"algorithm\": \"FSAE + AES\"")
	assert.Contains(t, string(data), `"encryption_date": "2024-03-15 10:30:00"`)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestUnmarshal_Defaults(t *testing.T) {
	back, err := Unmarshal([]byte(`{"frequencies": [300.5], "durations": [0.1], "amplitudes": [0.5], "char_count": 1}`))
	require.NoError(t, err)
	assert.Equal(t, tone.DefaultBaseFreq, back.BaseFreq)
	assert.Equal(t, tone.DefaultFreqRange, back.FreqRange)
	assert.Equal(t, "FSAE Standard", back.Algorithm)
	assert.True(t, back.EncryptionDate.IsZero())
	assert.NoError(t, back.Validate())
}

func TestUnmarshal_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not_json", "not json"},
		{"wrong_type", `{"base_freq": "high"}`},
		{"bad_date", `{"encryption_date": "yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Unmarshal([]byte(tt.data))
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Nil(t, m)
		})
	}
}

func TestTimestamp_RFC3339(t *testing.T) {
	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-15T10:30:00Z"`), &ts))
	assert.True(t, testDate.Equal(ts.Time))

	data, err := json.Marshal(Timestamp{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Metadata)
	}{
		{"zero_range", func(m *Metadata) { m.FreqRange = 0 }},
		{"negative_base", func(m *Metadata) { m.BaseFreq = -1 }},
		{"negative_count", func(m *Metadata) { m.CharCount = -1 }},
		{"short_frequencies", func(m *Metadata) { m.Frequencies = m.Frequencies[:1] }},
		{"missing_durations", func(m *Metadata) { m.Durations = nil }},
		{"long_shifted", func(m *Metadata) { m.ShiftedChars = append(m.ShiftedChars, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := buildRecord(t, "abc", 1, tone.Standard)
			tt.mutate(m)
			assert.ErrorIs(t, m.Validate(), ErrInvalid)
		})
	}

	m := buildRecord(t, "abc", 1, tone.Standard)
	m.OriginalChars, m.ShiftedChars = nil, nil
	assert.NoError(t, m.Validate())

	m = buildRecord(t, "abc", 1, tone.Standard)
	m.Frequencies = []float64{}
	assert.NoError(t, m.Validate(), "no frequencies means zero characters")

	m.FreqRange = 0
	assert.ErrorIs(t, m.Validate(), ErrInvalid)
}

func TestVariant_UnknownFallsBack(t *testing.T) {
	m := &Metadata{Algorithm: "FSAE Quantum"}
	assert.Equal(t, tone.Standard, m.Variant())
}

func TestWriteInfo(t *testing.T) {
	m := buildRecord(t, strings.Repeat("a", 12), 1, tone.Standard)

	var buf bytes.Buffer
	require.NoError(t, WriteInfo(&buf, m))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "SonicCipher Encrypted Audio\n"))
	assert.Contains(t, out, "Encrypted on: 2024-03-15 10:30:00\n")
	assert.Contains(t, out, "Algorithm: FSAE Standard\n")
	assert.Contains(t, out, "Base Frequency: 220 Hz\n")
	assert.Contains(t, out, "Frequency Range: 660 Hz\n")
	assert.Contains(t, out, "Character Count: 12\n")
	assert.Contains(t, out, "... (and 2 more)\n")
	assert.Equal(t, 9, strings.Count(out[strings.Index(out, "Frequencies:"):], ", "))

	buf.Reset()
	require.NoError(t, WriteInfo(&buf, &Metadata{Algorithm: "FSAE Standard"}))
	assert.Contains(t, buf.String(), "Encrypted on: Unknown\n")
	assert.NotContains(t, buf.String(), "Frequencies:")
}

func TestSealOpen(t *testing.T) {
	m := buildRecord(t, "secret", 5, tone.Enhanced)
	pass := []byte("correct horse")

	sealed, err := Seal(m, pass)
	require.NoError(t, err)
	assert.Equal(t, byte(0), sealed[0])
	assert.Equal(t, byte(SealVersion), sealed[1])

	again, err := Seal(m, pass)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "salt and nonce must differ per seal")

	back, err := Open(sealed, pass)
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestOpen_Failures(t *testing.T) {
	m := buildRecord(t, "secret", 5, tone.Standard)
	sealed, err := Seal(m, []byte("pass"))
	require.NoError(t, err)

	_, err = Open(sealed, []byte("wrong"))
	assert.ErrorIs(t, err, ErrOpenFailed)

	tampered := append([]byte{}, sealed...)
	tampered[len(tampered)-1] ^= 0xff
	_, err = Open(tampered, []byte("pass"))
	assert.ErrorIs(t, err, ErrOpenFailed)

	badVersion := append([]byte{}, sealed...)
	badVersion[1] = 9
	_, err = Open(badVersion, []byte("pass"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Open(sealed[:10], []byte("pass"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Open(sealed, nil)
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
	_, err = Seal(m, nil)
	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}
