package audio

import "errors"

// Sentinel errors for audio package operations.
var (
	// ErrInvalidSampleRate indicates a zero or otherwise unusable sample rate.
	ErrInvalidSampleRate = errors.New("invalid sample rate")

	// ErrInvalidGain indicates a gain outside the supported range.
	ErrInvalidGain = errors.New("invalid gain")

	// ErrDecode indicates an Opus frame could not be decoded.
	ErrDecode = errors.New("audio decode failed")

	// ErrPlayerClosed indicates Play was called after Close.
	ErrPlayerClosed = errors.New("player closed")
)
