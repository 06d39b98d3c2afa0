package soniccipher

import (
	"errors"

	"github.com/opd-ai/soniccipher/store"
)

var (
	// ErrConfig indicates invalid options or arguments: a key outside
	// MinKey..MaxKey, a non-positive frequency, duration or sample rate, a
	// tolerance outside [0,1) or a message over the size limit.
	ErrConfig = errors.New("invalid configuration")

	// ErrFormat indicates a waveform, WAV file or metadata record that could
	// not be read, written or interpreted.
	ErrFormat = store.ErrFormat
)
