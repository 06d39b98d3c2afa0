package tone

import (
	"fmt"
	"strings"
)

// Algorithm selects the duration and amplitude policy applied to each tone.
// The variants only swap formulas; the frequency mapping is shared.
type Algorithm uint8

const (
	// Standard uses a constant duration and amplitude.
	Standard Algorithm = iota
	// Enhanced varies duration by position and amplitude by code.
	Enhanced
	// PlusAES varies duration by position and key. Despite the name it is
	// not AES; the label is kept for compatibility with existing side files.
	PlusAES
)

// Display labels as written into metadata side files.
const (
	LabelStandard = "FSAE Standard"
	LabelEnhanced = "FSAE Enhanced"
	LabelPlusAES  = "FSAE + AES"
)

// DefaultAmplitude is the amplitude of every Standard tone.
const DefaultAmplitude = 0.5

// String returns the display label.
func (a Algorithm) String() string {
	switch a {
	case Standard:
		return LabelStandard
	case Enhanced:
		return LabelEnhanced
	case PlusAES:
		return LabelPlusAES
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// Valid reports whether a is one of the known variants.
func (a Algorithm) Valid() bool {
	return a <= PlusAES
}

// ParseAlgorithm accepts a display label or a short name
// (standard, enhanced, aes). Unknown names return Standard together with
// ErrUnknownAlgorithm so lenient callers can keep going.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case strings.ToLower(LabelStandard), "standard", "":
		return Standard, nil
	case strings.ToLower(LabelEnhanced), "enhanced":
		return Enhanced, nil
	case strings.ToLower(LabelPlusAES), "aes", "plusaes", "plus-aes":
		return PlusAES, nil
	default:
		return Standard, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Duration returns the length in seconds of the tone at position i.
func (a Algorithm) Duration(base float64, i, key int) float64 {
	switch a {
	case Enhanced:
		return base + float64(i%5)*0.05
	case PlusAES:
		return base + float64((i*key)%10)/100
	default:
		return base
	}
}

// Amplitude returns the peak amplitude of the tone carrying code.
// Varying variants stay within [0.40, 0.89].
func (a Algorithm) Amplitude(code int) float64 {
	switch a {
	case Enhanced, PlusAES:
		return 0.4 + float64(code%50)/100
	default:
		return DefaultAmplitude
	}
}
