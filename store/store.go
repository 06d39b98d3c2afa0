// Package store persists encoded waveforms as mono 16-bit PCM WAV files with
// their metadata in side files next to them:
//
//	message.wav                  the audio
//	message.wav.metadata         indented JSON record
//	message.wav.info.txt         human-readable summary
//	message.wav.metadata.sealed  passphrase-sealed record (SaveSealed only)
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/sirupsen/logrus"

	sonicaudio "github.com/opd-ai/soniccipher/audio"
	"github.com/opd-ai/soniccipher/limits"
	"github.com/opd-ai/soniccipher/metadata"
)

// Side file suffixes appended to the WAV path.
const (
	MetadataSuffix = ".metadata"
	InfoSuffix     = ".info.txt"
	SealedSuffix   = ".metadata.sealed"
)

const (
	bitDepth      = 16
	pcmFormat     = 1
	monoChannels  = 1
	filePerm      = 0o644
	sealedPerm    = 0o600
	tempExtension = ".tmp"
)

// ErrFormat indicates a WAV or side file that could not be read or written.
var ErrFormat = errors.New("format error")

// Loaded is a waveform read back from disk.
type Loaded struct {
	Samples    []float64
	SampleRate uint32
	Metadata   *metadata.Metadata // nil when no side file exists
}

// Save writes samples to path as a WAV file. When md is not nil the JSON
// record and the info summary are written next to it. A record that Load
// would reject is refused before anything is written.
func Save(path string, samples []float64, sampleRate uint32, md *metadata.Metadata) (err error) {
	if md != nil {
		if err := md.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrFormat, err)
		}
	}
	if err := writeWAV(path, samples, sampleRate); err != nil {
		return err
	}
	if md == nil {
		return nil
	}

	data, err := metadata.Marshal(md)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := writeAtomic(path+MetadataSuffix, data, filePerm); err != nil {
		return err
	}

	info, err := os.Create(path + InfoSuffix)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer func() {
		if cerr := info.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrFormat, cerr)
		}
	}()
	if err := metadata.WriteInfo(info, md); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "Save",
		"path":       path,
		"samples":    len(samples),
		"char_count": md.CharCount,
	}).Info("Saved waveform and metadata")

	return nil
}

// Load reads a WAV file and, if present, its JSON metadata side file.
func Load(path string) (*Loaded, error) {
	samples, rate, err := readWAV(path)
	if err != nil {
		return nil, err
	}

	loaded := &Loaded{Samples: samples, SampleRate: rate}

	data, err := os.ReadFile(path + MetadataSuffix)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"path":     path,
		}).Info("No metadata side file, analysis decoding required")
		return loaded, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	md, err := metadata.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, path+MetadataSuffix, err)
	}
	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, path+MetadataSuffix, err)
	}
	loaded.Metadata = md
	return loaded, nil
}

// SaveSealed writes samples to path and md, sealed under passphrase, to the
// sealed side file. No plaintext side files are written.
func SaveSealed(path string, samples []float64, sampleRate uint32, md *metadata.Metadata, passphrase []byte) error {
	if md != nil {
		if err := md.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrFormat, err)
		}
	}
	sealed, err := metadata.Seal(md, passphrase)
	if err != nil {
		return err
	}
	if err := writeWAV(path, samples, sampleRate); err != nil {
		return err
	}
	return writeAtomic(path+SealedSuffix, sealed, sealedPerm)
}

// LoadSealed reads a WAV file and opens its sealed side file, if present.
// A wrong passphrase returns an error matching metadata.ErrOpenFailed.
func LoadSealed(path string, passphrase []byte) (*Loaded, error) {
	samples, rate, err := readWAV(path)
	if err != nil {
		return nil, err
	}

	loaded := &Loaded{Samples: samples, SampleRate: rate}

	data, err := os.ReadFile(path + SealedSuffix)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return loaded, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	md, err := metadata.Open(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, path+SealedSuffix, err)
	}
	if err := md.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, path+SealedSuffix, err)
	}
	loaded.Metadata = md
	return loaded, nil
}

func writeWAV(path string, samples []float64, sampleRate uint32) (err error) {
	if sampleRate == 0 {
		return fmt.Errorf("%w: sample rate must be positive", ErrFormat)
	}
	if err := limits.ValidateWaveform(len(samples)); err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrFormat, cerr)
		}
	}()

	pcm := sonicaudio.Quantize(samples)
	data := make([]int, len(pcm))
	for i, s := range pcm {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(f, int(sampleRate), bitDepth, monoChannels, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: monoChannels, SampleRate: int(sampleRate)},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("%w: failed to encode WAV: %v", ErrFormat, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("%w: failed to finalize WAV: %v", ErrFormat, err)
	}
	return nil
}

// readWAV returns the samples of a PCM WAV file scaled to [-1, 1]. Channels
// are averaged into one.
func readWAV(path string) ([]float64, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: %s is not a valid WAV file", ErrFormat, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to decode WAV: %v", ErrFormat, err)
	}

	depth := int(dec.BitDepth)
	if depth != 16 && depth != 24 && depth != 32 {
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", ErrFormat, depth)
	}
	channels := max(buf.Format.NumChannels, 1)
	frames := len(buf.Data) / channels
	if err := limits.ValidateWaveform(frames); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	scale := float64(int64(1)<<(depth-1) - 1)
	samples := make([]float64, frames)
	for i := range samples {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		samples[i] = float64(sum) / float64(channels) / scale
	}

	logrus.WithFields(logrus.Fields{
		"function":    "readWAV",
		"path":        path,
		"sample_rate": buf.Format.SampleRate,
		"channels":    channels,
		"bit_depth":   depth,
		"samples":     frames,
	}).Debug("WAV decoded")

	return samples, uint32(buf.Format.SampleRate), nil
}

// writeAtomic writes data to a temporary file and renames it over path.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+tempExtension)
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return nil
}
