package metadata

import "errors"

var (
	// ErrInvalid indicates a metadata record that cannot describe a tone
	// sequence: unparsable JSON, inconsistent lengths or a bad range.
	ErrInvalid = errors.New("invalid metadata")

	// ErrEmptyPassphrase indicates Seal or Open was called without a passphrase.
	ErrEmptyPassphrase = errors.New("passphrase cannot be empty")

	// ErrOpenFailed indicates sealed metadata could not be authenticated,
	// either because the passphrase is wrong or the data was modified.
	ErrOpenFailed = errors.New("failed to open sealed metadata")
)
