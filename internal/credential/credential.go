// Package credential holds the active API key and implements the
// credential-selection step that premium capabilities run first.
package credential

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// ErrSelectionUnavailable is returned when no selection source is configured.
	ErrSelectionUnavailable = errors.New("credential selection is not available")
	// ErrNoCredential is returned when selection completed without yielding a key.
	ErrNoCredential = errors.New("no credential selected")
)

// envKeys are read in order by EnvKey.
var envKeys = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// EnvKey returns the first non-empty key from GEMINI_API_KEY or
// GOOGLE_API_KEY, or "" when neither is set.
func EnvKey() string {
	for _, name := range envKeys {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			return key
		}
	}
	return ""
}

// Keyring is the process-wide active API key. A key can be set at start-up,
// selected at runtime through Select, or reloaded from a key file.
type Keyring struct {
	mu   sync.RWMutex
	key  string
	path string
}

// NewKeyring creates a Keyring. path, when set, is the file RequestSelection
// reads the key from.
func NewKeyring(initial, path string) *Keyring {
	return &Keyring{key: strings.TrimSpace(initial), path: path}
}

// Key returns the active key, or "" when none is selected.
func (k *Keyring) Key() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key
}

// Select makes key the active credential.
func (k *Keyring) Select(key string) {
	k.mu.Lock()
	k.key = strings.TrimSpace(key)
	k.mu.Unlock()
	slog.Info("credential selected", "key", Mask(key))
}

// HasCredential reports whether a key is active.
func (k *Keyring) HasCredential(_ context.Context) (bool, error) {
	return k.Key() != "", nil
}

// RequestSelection loads the key from the configured key file.
func (k *Keyring) RequestSelection(ctx context.Context) error {
	if k.path == "" {
		return ErrSelectionUnavailable
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(k.path)
	if err != nil {
		return fmt.Errorf("read key file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return ErrNoCredential
	}
	k.Select(key)
	return nil
}

// Mask hides all but the last four characters of a key for logging.
func Mask(key string) string {
	key = strings.TrimSpace(key)
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
