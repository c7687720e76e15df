// Package audit keeps an encrypted, append-only history of the credentials
// the tool has created, so a lost secret can be recovered locally.
package audit

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// ErrDecrypt means the history was written with a different key.
var ErrDecrypt = errors.New("audit history could not be decrypted")

// Entry is one recorded credential.
type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Provider     string    `json:"provider"`
	AppName      string    `json:"app_name"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	Homepage     string    `json:"homepage"`
	EnvType      string    `json:"env_type"`
}

type history struct {
	Entries []Entry `json:"entries"`
}

// Log is the history of one provider.
type Log struct {
	path     string
	provider string
	key      *[keySize]byte
}

// DefaultDir is ~/.oauth-automator.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".oauth-automator"), nil
}

// Open prepares <dir>/<provider>/history.enc, creating the key on first use.
func Open(dir, provider string) (*Log, error) {
	sub := filepath.Join(dir, provider)
	if err := os.MkdirAll(sub, 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	key, err := loadOrCreateKey(dir)
	if err != nil {
		return nil, err
	}
	return &Log{path: filepath.Join(sub, "history.enc"), provider: provider, key: key}, nil
}

// Path returns the encrypted history file.
func (l *Log) Path() string {
	return l.path
}

// Record appends e, filling in its ID, timestamp and provider when unset.
func (l *Log) Record(e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Provider == "" {
		e.Provider = l.provider
	}

	entries, err := l.List()
	if err != nil {
		return e, err
	}
	entries = append(entries, e)

	plain, err := json.MarshalIndent(history{Entries: entries}, "", "  ")
	if err != nil {
		return e, fmt.Errorf("failed to marshal audit history: %w", err)
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return e, fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, l.key)
	if err := os.WriteFile(l.path, sealed, 0600); err != nil {
		return e, fmt.Errorf("failed to write audit history: %w", err)
	}
	return e, nil
}

// List returns the recorded entries, oldest first.
func (l *Log) List() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit history: %w", err)
	}
	if len(data) < nonceSize+secretbox.Overhead {
		return nil, ErrDecrypt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, l.key)
	if !ok {
		return nil, ErrDecrypt
	}
	var h history
	if err := json.Unmarshal(plain, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit history: %w", err)
	}
	return h.Entries, nil
}
