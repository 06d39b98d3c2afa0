// Package limits provides centralized size limits for messages, waveforms and
// metadata side files.
package limits

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// MaxMessageChars is the longest message, in characters, that is encoded
	// into tones. Each character becomes at least one base duration of audio.
	MaxMessageChars = 4096

	// MaxWaveformSamples caps a waveform accepted for decoding or storage:
	// ten minutes of mono audio at 44.1 kHz.
	MaxWaveformSamples = 44100 * 60 * 10

	// MaxMetadataBytes caps a metadata side file read from disk (4MB).
	MaxMetadataBytes = 4 * 1024 * 1024
)

var (
	// ErrMessageEmpty indicates an empty input where one is required
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates the input exceeds its limit
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateMessage checks the character count of text against MaxMessageChars.
// An empty message is valid; it encodes to an empty waveform.
func ValidateMessage(text string) error {
	if n := utf8.RuneCountInString(text); n > MaxMessageChars {
		return fmt.Errorf("%w: %d characters exceeds limit %d", ErrMessageTooLarge, n, MaxMessageChars)
	}
	return nil
}

// ValidateWaveform checks a sample count against MaxWaveformSamples.
func ValidateWaveform(samples int) error {
	if samples > MaxWaveformSamples {
		return fmt.Errorf("%w: %d samples exceeds limit %d", ErrMessageTooLarge, samples, MaxWaveformSamples)
	}
	return nil
}

// ValidateMetadata checks a raw metadata document before it is parsed.
// Returns ErrMessageEmpty for an empty document.
func ValidateMetadata(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if len(data) > MaxMetadataBytes {
		return fmt.Errorf("%w: metadata size %d exceeds limit %d", ErrMessageTooLarge, len(data), MaxMetadataBytes)
	}
	return nil
}
