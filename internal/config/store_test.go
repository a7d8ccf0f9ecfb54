package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDeriveKey_DistinctIdentities(t *testing.T) {
	identities := []string{"MyApp", "myapp", "My App", "My/App", "アプリ"}
	seen := make(map[string]string)

	for _, id := range identities {
		key, err := DeriveKey(id)
		if err != nil {
			t.Fatalf("DeriveKey(%q) failed: %v", id, err)
		}
		if prev, ok := seen[key]; ok {
			t.Errorf("identities %q and %q derived the same key %q", prev, id, key)
		}
		seen[key] = id
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	a, err := DeriveKey("MyApp")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	b, err := DeriveKey("MyApp")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if a != b {
		t.Errorf("expected stable key, got %q and %q", a, b)
	}
}

func TestDeriveKey_EmptyIdentity(t *testing.T) {
	_, err := DeriveKey("")
	if !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "apps.json"))

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty mapping, got %d records", len(records))
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	store := NewStore(path)
	_, err := store.Load()
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestStore_NullDocumentIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	if err := os.WriteFile(path, []byte("null"), 0644); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	store := NewStore(path)
	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load on null document failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty mapping, got %d records", len(records))
	}

	if err := store.Mutate("MyApp", func(rec *Record) {
		rec.SetWebsite("https://example.org")
	}); err != nil {
		t.Fatalf("Mutate over null document failed: %v", err)
	}
	rec, err := store.RecordFor("MyApp")
	if err != nil {
		t.Fatalf("RecordFor failed: %v", err)
	}
	if rec.Website() != "https://example.org" {
		t.Errorf("Website = %q, want https://example.org", rec.Website())
	}
}

func TestStore_MutateRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "apps.json"))

	err := store.Mutate("MyApp", func(rec *Record) {
		rec.SetWebsite("https://example.org")
		rec.SetUpdateURL("https://example.org/myapp.json")
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	rec, err := store.RecordFor("MyApp")
	if err != nil {
		t.Fatalf("RecordFor failed: %v", err)
	}
	if rec.Website() != "https://example.org" {
		t.Errorf("Website = %q, want https://example.org", rec.Website())
	}
	if rec.UpdateURL() != "https://example.org/myapp.json" {
		t.Errorf("UpdateURL = %q, want https://example.org/myapp.json", rec.UpdateURL())
	}
}

func TestStore_PreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "apps.json")
	key, err := DeriveKey("MyApp")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	seeded := `{"` + key + `": {"website": "https://old.example.org", "custom_flag": {"nested": [1, 2, 3]}}}`
	if err := os.WriteFile(path, []byte(seeded), 0644); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	store := NewStore(path)
	err = store.Mutate("MyApp", func(rec *Record) {
		rec.SetWebsite("https://new.example.org")
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read store back: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"custom_flag"`) || !strings.Contains(content, `"nested"`) {
		t.Errorf("unknown field dropped on rewrite: %s", content)
	}
	if !strings.Contains(content, "https://new.example.org") {
		t.Errorf("mutation not persisted: %s", content)
	}
}

func TestStore_RecordForUnknownIdentity(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "apps.json"))

	rec, err := store.RecordFor("Nowhere")
	if err != nil {
		t.Fatalf("RecordFor failed: %v", err)
	}
	if rec.Website() != "" || rec.UpdateURL() != "" {
		t.Errorf("expected empty record, got website=%q updateURL=%q", rec.Website(), rec.UpdateURL())
	}
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "apps.json"))

	if err := store.Mutate("MyApp", func(rec *Record) { rec.SetWebsite("x") }); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if err := store.Delete("MyApp"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected record gone, got %d records", len(records))
	}
}

func TestStore_DeleteAbsentIsNoError(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "apps.json"))
	if err := store.Delete("NeverExisted"); err != nil {
		t.Errorf("deleting absent record should not fail, got %v", err)
	}
}
