// Package symbol implements the character shift used by SonicCipher.
//
// Every character is mapped to a code in 0..255 by adding the key to its
// codepoint modulo 256. The transform is an additive shift and offers no
// confidentiality on its own.
//
// Codepoints above 255 are truncated by the modulus and do not survive a
// round trip. Use IsLossless to find out before encoding.
package symbol

// Alphabet is the number of distinct codes.
const Alphabet = 256

// Unknown is the character emitted for a code that could not be recovered.
const Unknown = '?'

// Encode returns the shifted code for r.
func Encode(r rune, key int) int {
	return mod(int(r)+key, Alphabet)
}

// Decode reverses Encode for codepoints up to 255.
func Decode(code, key int) rune {
	return rune(mod(code-key, Alphabet))
}

// EncodeString returns the codes for every rune of text, in order.
func EncodeString(text string, key int) []int {
	codes := make([]int, 0, len(text))
	for _, r := range text {
		codes = append(codes, Encode(r, key))
	}
	return codes
}

// Codepoints returns the unshifted codepoints of text.
func Codepoints(text string) []int {
	points := make([]int, 0, len(text))
	for _, r := range text {
		points = append(points, int(r))
	}
	return points
}

// DecodeCodes reverses EncodeString.
func DecodeCodes(codes []int, key int) string {
	out := make([]rune, len(codes))
	for i, c := range codes {
		out[i] = Decode(c, key)
	}
	return string(out)
}

// IsLossless reports whether every rune of text fits in a single code.
func IsLossless(text string) bool {
	for _, r := range text {
		if r > Alphabet-1 {
			return false
		}
	}
	return true
}

// mod is the non-negative remainder.
func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
