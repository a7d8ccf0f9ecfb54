// Package config persists per-application settings for appdock.
//
// All settings live in a single JSON document (apps.json) in the user
// config directory, mapping a key derived from the application identity
// to a settings record. Every write is a full load-modify-save cycle
// guarded by a store-level lock, and saves go through a temp file plus
// rename so a crash can never leave a half-written document behind.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	// ErrStoreUnavailable marks a config document that cannot be read or
	// written. The triggering operation is aborted, nothing is partially
	// applied.
	ErrStoreUnavailable = errors.New("config store unavailable")

	// ErrInvalidIdentity is returned when a key is requested for an
	// empty application identity.
	ErrInvalidIdentity = errors.New("invalid application identity")
)

// Dir returns the appdock config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/appdock if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "appdock"), nil
}

// DeriveKey turns an application identity into the stable store key.
// The encoding is deterministic and reversible (base64 of the UTF-8
// identity), so arbitrary display names with spaces, slashes, or
// unicode are valid keys.
func DeriveKey(identity string) (string, error) {
	if identity == "" {
		return "", ErrInvalidIdentity
	}
	return base64.URLEncoding.EncodeToString([]byte(identity)), nil
}

// Record is the settings document for one application. Known fields are
// exposed through accessors; everything else is preserved verbatim
// across read-modify-write cycles.
type Record struct {
	// Key is the derived store key this record is filed under.
	Key string

	fields map[string]json.RawMessage
}

// NewRecord returns an empty record tagged with the given key.
func NewRecord(key string) *Record {
	return &Record{Key: key, fields: make(map[string]json.RawMessage)}
}

// UnmarshalJSON captures every field, recognized or not.
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	r.fields = fields
	return nil
}

// MarshalJSON writes the full field set back out, unknown fields
// included.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.fields)
}

func (r *Record) stringField(name string) string {
	raw, ok := r.fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (r *Record) setStringField(name, value string) {
	if r.fields == nil {
		r.fields = make(map[string]json.RawMessage)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.fields[name] = raw
}

// Website returns the user-assigned website, if any.
func (r *Record) Website() string { return r.stringField("website") }

// SetWebsite stores the user-assigned website.
func (r *Record) SetWebsite(url string) { r.setStringField("website", url) }

// UpdateURL returns the update descriptor URL, if any.
func (r *Record) UpdateURL() string { return r.stringField("update_url") }

// SetUpdateURL stores the update descriptor URL.
func (r *Record) SetUpdateURL(url string) { r.setStringField("update_url", url) }

// Store reads and writes the persisted apps.json document.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the given file path. The file does
// not need to exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Default returns the store at the standard config location, creating
// the config directory if needed.
func Default() (*Store, error) {
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	return NewStore(filepath.Join(dir, "apps.json")), nil
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load reads the full key-to-record mapping. A missing document is an
// empty mapping, not an error; an unreadable or malformed one is
// ErrStoreUnavailable.
func (s *Store) Load() (map[string]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (map[string]*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Record), nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStoreUnavailable, s.path, err)
	}

	records := make(map[string]*Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrStoreUnavailable, s.path, err)
	}
	if records == nil {
		// A document holding JSON null unmarshals to a nil map.
		records = make(map[string]*Record)
	}
	for key, rec := range records {
		rec.Key = key
	}
	return records, nil
}

// Save atomically replaces the persisted document with the given
// mapping. The write goes to a temp file in the same directory first
// and is renamed into place.
func (s *Store) Save(records map[string]*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(records)
}

func (s *Store) saveLocked(records map[string]*Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encoding records: %v", ErrStoreUnavailable, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStoreUnavailable, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".apps-*.json")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing %s: %v", ErrStoreUnavailable, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing %s: %v", ErrStoreUnavailable, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %v", ErrStoreUnavailable, s.path, err)
	}
	return nil
}

// RecordFor loads the store and returns the record for the given
// identity, or a fresh empty record tagged with the derived key. This
// is a read; mutations must be persisted with Save or Mutate.
func (s *Store) RecordFor(identity string) (*Record, error) {
	key, err := DeriveKey(identity)
	if err != nil {
		return nil, err
	}

	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	if rec, ok := records[key]; ok {
		return rec, nil
	}
	return NewRecord(key), nil
}

// Mutate runs fn against the record for identity inside a single
// load-modify-save cycle under the store lock. Fields not touched by fn
// round-trip untouched, for this record and all others.
func (s *Store) Mutate(identity string, fn func(*Record)) error {
	key, err := DeriveKey(identity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	rec, ok := records[key]
	if !ok {
		rec = NewRecord(key)
		records[key] = rec
	}
	fn(rec)
	return s.saveLocked(records)
}

// Delete removes the record for identity, if present. Deleting an
// absent record is not an error.
func (s *Store) Delete(identity string) error {
	key, err := DeriveKey(identity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	if _, ok := records[key]; !ok {
		return nil
	}
	delete(records, key)
	return s.saveLocked(records)
}
