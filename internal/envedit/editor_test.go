package envedit

import (
	"reflect"
	"testing"
)

func TestEditor_CommitSkipsDuplicateKeys(t *testing.T) {
	e := New(nil)
	e.Add("A", "1")
	e.Add("A", "2")
	e.Add("B", "3")

	got := e.Commit()
	want := []string{"B=3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Commit = %v, want %v", got, want)
	}
}

func TestEditor_DuplicateInvalidatesAllInstances(t *testing.T) {
	e := New(nil)
	e.Add("A", "1")
	e.Add("A", "2")

	rows := e.Rows()
	if rows[0].Valid || rows[1].Valid {
		t.Errorf("both duplicate rows should be invalid, got %v and %v", rows[0].Valid, rows[1].Valid)
	}
	if !e.HasInvalid() {
		t.Error("HasInvalid should report the duplicate")
	}
}

func TestEditor_DeleteRevalidatesFormerDuplicate(t *testing.T) {
	e := New(nil)
	e.Add("A", "1")
	e.Add("A", "2")

	if err := e.Delete(0); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	rows := e.Rows()
	if len(rows) != 1 || !rows[0].Valid {
		t.Errorf("surviving row should be valid again, got %+v", rows)
	}
	if got := e.Commit(); !reflect.DeepEqual(got, []string{"A=2"}) {
		t.Errorf("Commit = %v, want [A=2]", got)
	}
}

func TestEditor_EmptyKeyRow(t *testing.T) {
	e := New(nil)
	e.Add("", "orphan")

	rows := e.Rows()
	if rows[0].Valid {
		t.Error("empty-key row should be invalid")
	}
	if rows[0].ValueEditable {
		t.Error("empty-key row should have value input disabled")
	}
	if got := e.Commit(); len(got) != 0 {
		t.Errorf("Commit should skip empty-key rows, got %v", got)
	}
	if e.HasInvalid() {
		t.Error("empty-key rows alone should not block saving")
	}
}

func TestEditor_SetReplacesExistingValue(t *testing.T) {
	e := New([]string{"A=1", "B=2"})
	e.Set("A", "9")

	got := e.Commit()
	want := []string{"A=9", "B=2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Commit = %v, want %v", got, want)
	}
}

func TestEditor_DeleteKey(t *testing.T) {
	e := New([]string{"A=1", "B=2"})

	if !e.DeleteKey("A") {
		t.Fatal("DeleteKey should find A")
	}
	if e.DeleteKey("A") {
		t.Error("second DeleteKey should find nothing")
	}
	if got := e.Commit(); !reflect.DeepEqual(got, []string{"B=2"}) {
		t.Errorf("Commit = %v, want [B=2]", got)
	}
}

func TestEditor_MutationsDoNotTouchCommittedInput(t *testing.T) {
	committed := []string{"A=1"}
	e := New(committed)
	e.Set("A", "changed")
	e.Add("B", "2")

	if committed[0] != "A=1" {
		t.Errorf("committed input mutated: %v", committed)
	}
}

func TestEditor_CommitTrimsKeysAndValues(t *testing.T) {
	e := New(nil)
	e.Add("  KEY  ", "  value  ")

	got := e.Commit()
	want := []string{"KEY=value"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Commit = %v, want %v", got, want)
	}
}

func TestEditor_RecommitIsStable(t *testing.T) {
	e := New(nil)
	e.Set("A", "a b")
	e.Set("B", "plain")
	first := e.Commit()
	want := []string{"A='a b'", "B=plain"}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("first Commit = %v, want %v", first, want)
	}

	// A later editing session starts from the committed list. Saving
	// again without changes must not re-quote the already quoted value.
	second := New(first).Commit()
	if !reflect.DeepEqual(second, first) {
		t.Errorf("second Commit = %v, want %v", second, first)
	}

	e3 := New(second)
	e3.Set("C", "x")
	third := e3.Commit()
	want = []string{"A='a b'", "B=plain", "C=x"}
	if !reflect.DeepEqual(third, want) {
		t.Errorf("third Commit = %v, want %v", third, want)
	}
}

func TestEditor_SeededValuesAreUnquoted(t *testing.T) {
	e := New([]string{"A='two words'"})

	rows := e.Rows()
	if rows[0].Value != "two words" {
		t.Errorf("seeded value = %q, want the raw form", rows[0].Value)
	}
}

func TestEditor_WhitespacePaddedKeysAreDuplicates(t *testing.T) {
	e := New(nil)
	e.Add("A", "1")
	e.Add("A ", "2")

	if !e.HasInvalid() {
		t.Error("padded key must collide with its trimmed twin")
	}
	if got := e.Commit(); len(got) != 0 {
		t.Errorf("Commit = %v, want no rows with duplicate keys", got)
	}

	e.Set(" A", "3")
	rows := e.Rows()
	if len(rows) != 2 {
		t.Errorf("Set with padded key added a row instead of updating, rows = %+v", rows)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"safe passthrough", "simple-value_1.0", "simple-value_1.0"},
		{"empty", "", "''"},
		{"spaces", "two words", "'two words'"},
		{"single quote", "it's", `'it'"'"'s'`},
		{"dollar", "$HOME", "'$HOME'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quote(tt.value); got != tt.want {
				t.Errorf("Quote(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestUnquote_RoundTrip(t *testing.T) {
	values := []string{"simple", "two words", "it's", "$HOME", ""}
	for _, v := range values {
		if got := Unquote(Quote(v)); got != v {
			t.Errorf("Unquote(Quote(%q)) = %q", v, got)
		}
	}
}
