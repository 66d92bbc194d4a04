// Package prefs persists small user toggles across sessions.
package prefs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/normanking/tutoravatar/internal/config"
)

// Keys
const (
	KeySpeechEnabled = "speech_enabled"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name.
var ErrUnknownBackend = errors.New("prefs: unknown backend")

// Store is a key-value store of boolean preferences.
type Store interface {
	// Bool returns the stored value, or def when the key was never set.
	Bool(key string, def bool) (bool, error)
	SetBool(key string, value bool) error
	Close() error
}

// Open returns the store selected by cfg.
func Open(cfg config.PrefsConfig) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "yaml":
		return NewYAMLStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
