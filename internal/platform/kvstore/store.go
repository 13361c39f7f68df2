// Package kvstore abstracts the durable per-visitor storage that backs guest
// carts, wishlists, sessions, and redirect intents. The interface mirrors the
// browser storage the storefront pages rely on: one semantic value per key,
// synchronous same-visitor consistency, no cross-visitor coordination.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyKey is returned when a caller passes a blank key.
var ErrEmptyKey = errors.New("kvstore: key must not be empty")

// Store persists opaque values under string keys.
type Store interface {
	// Get returns the stored value and whether the key was present.
	Get(key string) ([]byte, bool, error)
	// Set stores the value, replacing any previous one.
	Set(key string, value []byte) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key string) error
}

// GetJSON decodes the stored value into out. Missing keys leave out untouched
// and report found=false.
func GetJSON(s Store, key string, out any) (bool, error) {
	raw, found, err := s.Get(key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("kvstore: decode %q: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes value and stores it under key.
func SetJSON(s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: encode %q: %w", key, err)
	}
	return s.Set(key, raw)
}

// GetString reads a plain string value, the shape redirect-intent keys use.
func GetString(s Store, key string) (string, bool, error) {
	raw, found, err := s.Get(key)
	if err != nil || !found {
		return "", found, err
	}
	return string(raw), true, nil
}

// SetString stores a plain string value.
func SetString(s Store, key, value string) error {
	return s.Set(key, []byte(value))
}

type prefixed struct {
	inner  Store
	prefix string
}

// Namespace returns a view of the store where every key is prefixed, giving
// each visitor an isolated keyspace inside a shared backing store.
func Namespace(inner Store, prefix string) Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return inner
	}
	return &prefixed{inner: inner, prefix: prefix + ":"}
}

func (p *prefixed) Get(key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	return p.inner.Get(p.prefix + key)
}

func (p *prefixed) Set(key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	return p.inner.Set(p.prefix+key, value)
}

func (p *prefixed) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return p.inner.Delete(p.prefix + key)
}
