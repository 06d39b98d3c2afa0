package store

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/soniccipher/audio"
	"github.com/opd-ai/soniccipher/decode"
	"github.com/opd-ai/soniccipher/metadata"
	"github.com/opd-ai/soniccipher/tone"
)

func encoded(t *testing.T, text string) ([]float64, *metadata.Metadata) {
	t.Helper()
	mapper := tone.DefaultMapper()
	plan := mapper.Build(text, 9, tone.DefaultBaseDuration, tone.Enhanced)
	md := metadata.New(plan, mapper, tone.DefaultBaseDuration, tone.Enhanced, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	return audio.Synthesize(plan.Events, audio.DefaultSampleRate), md
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message.wav")
	samples, md := encoded(t, "Hello")

	require.NoError(t, Save(path, samples, audio.DefaultSampleRate, md))
	for _, suffix := range []string{"", MetadataSuffix, InfoSuffix} {
		_, err := os.Stat(path + suffix)
		assert.NoError(t, err, "missing %q", path+suffix)
	}

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, audio.DefaultSampleRate, loaded.SampleRate)
	require.Len(t, loaded.Samples, len(samples))
	for i, s := range samples {
		// Quantization truncates toward zero, so the error is below one step.
		require.InDelta(t, s, loaded.Samples[i], 1.0/32767, "sample %d", i)
	}
	assert.Equal(t, md, loaded.Metadata)

	info, err := os.ReadFile(path + InfoSuffix)
	require.NoError(t, err)
	assert.Contains(t, string(info), "Encrypted on: 2024-01-02 03:04:05")
	assert.Contains(t, string(info), "Algorithm: FSAE Enhanced")
}

func TestSave_WithoutMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.wav")
	require.NoError(t, Save(path, []float64{0, 0.5, -0.5, 1}, 8000, nil))

	_, err := os.Stat(path + MetadataSuffix)
	assert.True(t, os.IsNotExist(err))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, loaded.Metadata)
	assert.Equal(t, uint32(8000), loaded.SampleRate)
	assert.InDeltaSlice(t, []float64{0, 16383.0 / 32767, -16383.0 / 32767, 1}, loaded.Samples, 1e-12)
}

func TestSave_Errors(t *testing.T) {
	dir := t.TempDir()

	err := Save(filepath.Join(dir, "zero.wav"), []float64{0}, 0, nil)
	assert.ErrorIs(t, err, ErrFormat)

	err = Save(filepath.Join(dir, "missing", "dir.wav"), []float64{0}, 8000, nil)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "absent.wav"))
	assert.ErrorIs(t, err, ErrFormat)

	notWav := filepath.Join(dir, "text.wav")
	require.NoError(t, os.WriteFile(notWav, []byte(strings.Repeat("not a wav file ", 10)), 0o644))
	_, err = Load(notWav)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoad_CorruptMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message.wav")
	samples, md := encoded(t, "Hi")
	require.NoError(t, Save(path, samples, audio.DefaultSampleRate, md))

	require.NoError(t, os.WriteFile(path+MetadataSuffix, []byte("{broken"), 0o644))
	loaded, err := Load(path)
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, metadata.ErrInvalid)
	assert.Nil(t, loaded)

	require.NoError(t, os.WriteFile(path+MetadataSuffix, []byte(`{"freq_range": -5}`), 0o644))
	_, err = Load(path)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoad_EmptyFrequenciesIsZeroCharacters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.wav")
	require.NoError(t, Save(path, []float64{0, 0.1}, 8000, nil))

	record := `{
  "algorithm": "FSAE Standard",
  "base_freq": 220,
  "base_duration": 0.1,
  "freq_range": 660,
  "char_count": 3,
  "frequencies": [],
  "durations": [0.1, 0.1, 0.1],
  "amplitudes": [0.5, 0.5, 0.5],
  "encryption_date": "2024-01-02 03:04:05",
  "version": "1.0.0"
}`
	require.NoError(t, os.WriteFile(path+MetadataSuffix, []byte(record), 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.Metadata)
	assert.Empty(t, loaded.Metadata.Frequencies)

	text, err := decode.WithMetadata(loaded.Metadata, 7)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestSave_RejectsInvalidMetadata(t *testing.T) {
	dir := t.TempDir()
	samples, md := encoded(t, "Hi")
	md.Durations = md.Durations[:1]

	path := filepath.Join(dir, "bad.wav")
	err := Save(path, samples, audio.DefaultSampleRate, md)
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, metadata.ErrInvalid)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing is written for a rejected record")

	err = SaveSealed(path, samples, audio.DefaultSampleRate, md, []byte("pass"))
	assert.ErrorIs(t, err, metadata.ErrInvalid)
	_, statErr = os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSealed_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealed.wav")
	samples, md := encoded(t, "top secret")
	pass := []byte("hunter2")

	require.NoError(t, SaveSealed(path, samples, audio.DefaultSampleRate, md, pass))

	_, err := os.Stat(path + MetadataSuffix)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + InfoSuffix)
	assert.True(t, os.IsNotExist(err))

	loaded, err := LoadSealed(path, pass)
	require.NoError(t, err)
	assert.Equal(t, md, loaded.Metadata)
	assert.Len(t, loaded.Samples, len(samples))

	_, err = LoadSealed(path, []byte("wrong"))
	assert.ErrorIs(t, err, ErrFormat)
	assert.ErrorIs(t, err, metadata.ErrOpenFailed)

	// The plain loader sees no JSON side file.
	plain, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, plain.Metadata)
}

func TestSaveSealed_EmptyPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealed.wav")
	samples, md := encoded(t, "x")
	err := SaveSealed(path, samples, audio.DefaultSampleRate, md, nil)
	assert.ErrorIs(t, err, metadata.ErrEmptyPassphrase)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadSealed_NoSideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.wav")
	require.NoError(t, Save(path, []float64{0.25, -0.25}, 8000, nil))

	loaded, err := LoadSealed(path, []byte("pass"))
	require.NoError(t, err)
	assert.Nil(t, loaded.Metadata)
	assert.Len(t, loaded.Samples, 2)
	assert.False(t, math.IsNaN(loaded.Samples[0]))
}
