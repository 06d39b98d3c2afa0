package soniccipher

import (
	"github.com/sirupsen/logrus"
)

// Mismatch is one position where a decoded character differs.
type Mismatch struct {
	Index int
	Want  rune
	Got   rune
}

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	Text        string
	Decrypted   string
	Key         int
	Frequencies []float64
	Mismatches  []Mismatch
}

// OK reports whether the decrypted text equals the input.
func (r *VerifyReport) OK() bool {
	return r.Text == r.Decrypted
}

// Verify encrypts text with default settings, decrypts it from the metadata
// and reports every differing position. Only positions present in both
// strings are compared; OK also catches a length difference.
func Verify(text string, key int) (*VerifyReport, error) {
	opts := NewOptions()
	opts.Key = key

	c, err := New(opts)
	if err != nil {
		return nil, err
	}

	msg, err := c.Encrypt(text)
	if err != nil {
		return nil, err
	}
	decrypted, err := c.Decrypt(nil, msg.SampleRate, msg.Metadata)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{
		Text:        text,
		Decrypted:   decrypted,
		Key:         key,
		Frequencies: msg.Metadata.Frequencies,
	}

	want, got := []rune(text), []rune(decrypted)
	for i := 0; i < len(want) && i < len(got); i++ {
		if want[i] != got[i] {
			report.Mismatches = append(report.Mismatches, Mismatch{Index: i, Want: want[i], Got: got[i]})
		}
	}

	entry := logrus.WithFields(logrus.Fields{
		"function":   "Verify",
		"key":        key,
		"char_count": len(want),
		"mismatches": len(report.Mismatches),
	})
	if report.OK() {
		entry.Info("Round trip verified")
	} else {
		entry.Warn("Round trip mismatch")
	}

	return report, nil
}
