package audit

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const (
	KeyringService = "appkeys"
	KeyringUser    = "audit-key"

	keySize = 32
	keyFile = ".key"
)

// loadOrCreateKey returns the log key, preferring the OS keychain and
// falling back to <dir>/.key.
func loadOrCreateKey(dir string) (*[keySize]byte, error) {
	if encoded, err := keyring.Get(KeyringService, KeyringUser); err == nil {
		return decodeKey(encoded)
	}

	data, err := os.ReadFile(filepath.Join(dir, keyFile))
	if err == nil {
		return decodeKey(string(data))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read audit key: %w", err)
	}

	var key [keySize]byte
	if _, err := rand.Read(key[:]); err != nil {
		return nil, fmt.Errorf("failed to generate audit key: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key[:])

	// Try to store in OS keychain
	if err := keyring.Set(KeyringService, KeyringUser, encoded); err != nil {
		// Fallback to file storage with restrictive permissions
		if err := saveKeyToFile(dir, encoded); err != nil {
			return nil, err
		}
	}
	return &key, nil
}

// DeleteKey removes the stored key. Existing history becomes unreadable.
func DeleteKey(dir string) error {
	err := keyring.Delete(KeyringService, KeyringUser)

	// Also try to delete file storage (ignore errors)
	_ = os.Remove(filepath.Join(dir, keyFile))

	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete audit key from keychain: %w", err)
	}
	return nil
}

func saveKeyToFile(dir, encoded string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, keyFile), []byte(encoded), 0600); err != nil {
		return fmt.Errorf("failed to write audit key to file: %w", err)
	}
	return nil
}

func decodeKey(encoded string) (*[keySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) != keySize {
		return nil, errors.New("stored audit key is corrupt")
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}
