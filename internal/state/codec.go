package state

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/parley-stack/parley/internal/errors"
)

// KeySize is the secretbox key length in bytes.
const KeySize = 32

// nonceSize is the secretbox nonce length in bytes.
const nonceSize = 24

// Key is a symmetric state encryption key.
type Key [KeySize]byte

// ParseKey decodes a base64 32-byte key.
func ParseKey(encoded string) (*Key, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decoding key: %w", err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(raw))
	}
	var key Key
	copy(key[:], raw)
	return &key, nil
}

// LoadKeyFile reads a base64 key from a file.
func LoadKeyFile(path string) (*Key, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return ParseKey(string(raw))
}

// GenerateKey returns a fresh random key.
func GenerateKey() (*Key, error) {
	var key Key
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return &key, nil
}

// Encode returns the base64 form of the key.
func (k *Key) Encode() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Encrypt serializes and encrypts a state into a URL-safe token:
// base64(nonce || box(json, nonce, key)).
func Encrypt(s *State, key *Key) (string, error) {
	plaintext, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding state: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, (*[KeySize]byte)(key))
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt decodes, verifies and parses a token. Every failure mode collapses
// into the same invalid-state error; callers cannot distinguish tampering
// from corruption.
func Decrypt(token string, key *Key) (*State, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.InvalidState(err)
	}
	if len(raw) < nonceSize {
		return nil, errors.InvalidState(fmt.Errorf("token too short"))
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, (*[KeySize]byte)(key))
	if !ok {
		return nil, errors.InvalidState(fmt.Errorf("decryption failed"))
	}

	var s State
	if err := json.Unmarshal(plaintext, &s); err != nil {
		return nil, errors.InvalidState(err)
	}
	return &s, nil
}

// Validate rejects expired states and, when currentVersion is non-empty,
// states for another interview version.
func (s *State) Validate(currentVersion string, now time.Time) error {
	if !now.Before(s.ExpirationDate) {
		return errors.InvalidState(fmt.Errorf("state expired"))
	}
	if currentVersion != "" && s.InterviewVersion != currentVersion {
		return errors.InvalidState(fmt.Errorf("interview version mismatch"))
	}
	return nil
}

// DecryptValidated decrypts a token and validates it in one step.
func DecryptValidated(token string, key *Key, currentVersion string, now time.Time) (*State, error) {
	s, err := Decrypt(token, key)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(currentVersion, now); err != nil {
		return nil, err
	}
	return s, nil
}
