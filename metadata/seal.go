package metadata

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the number of iterations for key derivation
	PBKDF2Iterations = 100000
	// SealVersion is the current sealed format version
	SealVersion = 1
	// SaltSize is the size of the per-record PBKDF2 salt
	SaltSize = 16

	headerSize = 2 + SaltSize + chacha20poly1305.NonceSizeX
)

// Seal encrypts the JSON form of m under a key derived from passphrase.
// Format: [version:2][salt:16][nonce:24][ciphertext+tag:N]
func Seal(m *Metadata, passphrase []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}

	plaintext, err := Marshal(m)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, headerSize, headerSize+len(plaintext)+aead.Overhead())
	binary.BigEndian.PutUint16(out[0:2], SealVersion)
	copy(out[2:2+SaltSize], salt)
	copy(out[2+SaltSize:headerSize], nonce)
	out = aead.Seal(out, nonce, plaintext, out[:2])

	logrus.WithFields(logrus.Fields{
		"function":   "Seal",
		"char_count": m.CharCount,
		"size":       len(out),
	}).Debug("Metadata sealed")

	return out, nil
}

// Open reverses Seal. A wrong passphrase or modified data returns
// ErrOpenFailed.
func Open(data, passphrase []byte) (*Metadata, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if len(data) < headerSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: sealed data too short (%d bytes)", ErrInvalid, len(data))
	}

	version := binary.BigEndian.Uint16(data[0:2])
	if version != SealVersion {
		return nil, fmt.Errorf("%w: unsupported sealed version %d", ErrInvalid, version)
	}

	salt := data[2 : 2+SaltSize]
	nonce := data[2+SaltSize : headerSize]

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, data[headerSize:], data[:2])
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Open",
			"size":     len(data),
		}).Warn("Sealed metadata failed authentication")
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	return Unmarshal(plaintext)
}

func newAEAD(passphrase, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(passphrase, salt, PBKDF2Iterations, chacha20poly1305.KeySize, sha256.New)
	defer wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return aead, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
