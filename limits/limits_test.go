package limits

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessage(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"empty", "", nil},
		{"short", "Hello", nil},
		{"at_limit", strings.Repeat("a", MaxMessageChars), nil},
		{"over_limit", strings.Repeat("a", MaxMessageChars+1), ErrMessageTooLarge},
		// Multi-byte runes count once each.
		{"multibyte_at_limit", strings.Repeat("é", MaxMessageChars), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMessage(tt.text)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateWaveform(t *testing.T) {
	assert.NoError(t, ValidateWaveform(0))
	assert.NoError(t, ValidateWaveform(MaxWaveformSamples))

	err := ValidateWaveform(MaxWaveformSamples + 1)
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestValidateMetadata(t *testing.T) {
	assert.ErrorIs(t, ValidateMetadata(nil), ErrMessageEmpty)
	assert.ErrorIs(t, ValidateMetadata([]byte{}), ErrMessageEmpty)
	assert.NoError(t, ValidateMetadata([]byte("{}")))
	assert.ErrorIs(t, ValidateMetadata(make([]byte, MaxMetadataBytes+1)), ErrMessageTooLarge)
}
