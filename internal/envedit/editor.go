// Package envedit maintains a working set of environment variable rows
// for an application, separate from the committed KEY=value list until
// explicitly saved.
package envedit

import (
	"fmt"
	"regexp"
	"strings"
)

// Row is one key/value pair in the working set.
type Row struct {
	Key   string
	Value string
}

// RowState is a row plus its validation result.
type RowState struct {
	Row

	// Valid rows are included in the next commit. A key shared by more
	// than one row invalidates every row carrying it.
	Valid bool

	// ValueEditable is false for rows with an empty key; their value
	// input stays disabled until a key is entered.
	ValueEditable bool
}

// Editor holds the working set. Mutations never touch the committed
// list; call Commit to produce a new one.
type Editor struct {
	rows []Row
}

// New builds an editor seeded from committed KEY=value entries. Entries
// without a "=" are skipped. Committed values are shell-quoted; the
// working set holds them raw, so reloading and re-committing is a
// no-op rather than a second layer of quoting.
func New(committed []string) *Editor {
	e := &Editor{}
	for _, kv := range committed {
		idx := strings.IndexByte(kv, '=')
		if idx <= 0 {
			continue
		}
		e.rows = append(e.rows, Row{Key: strings.TrimSpace(kv[:idx]), Value: Unquote(kv[idx+1:])})
	}
	return e
}

// Len returns the number of rows in the working set.
func (e *Editor) Len() int { return len(e.rows) }

// Add appends a row to the working set. Keys are trimmed on the way in
// so that "A" and "A " cannot slip past duplicate validation as
// distinct keys.
func (e *Editor) Add(key, value string) {
	e.rows = append(e.rows, Row{Key: strings.TrimSpace(key), Value: value})
}

// Update replaces the row at index i.
func (e *Editor) Update(i int, key, value string) error {
	if i < 0 || i >= len(e.rows) {
		return fmt.Errorf("no row at index %d", i)
	}
	e.rows[i] = Row{Key: strings.TrimSpace(key), Value: value}
	return nil
}

// Delete removes the row at index i. Remaining rows that shared its key
// are re-validated on the next Rows or Commit call, so a former
// duplicate becomes valid again once only one instance remains.
func (e *Editor) Delete(i int) error {
	if i < 0 || i >= len(e.rows) {
		return fmt.Errorf("no row at index %d", i)
	}
	e.rows = append(e.rows[:i], e.rows[i+1:]...)
	return nil
}

// DeleteKey removes the first row with the given key (exact match).
func (e *Editor) DeleteKey(key string) bool {
	key = strings.TrimSpace(key)
	for i, row := range e.rows {
		if row.Key == key {
			e.rows = append(e.rows[:i], e.rows[i+1:]...)
			return true
		}
	}
	return false
}

// Set updates the value of the first row with the given key, or adds a
// new row when the key is not present.
func (e *Editor) Set(key, value string) {
	key = strings.TrimSpace(key)
	for i, row := range e.rows {
		if row.Key == key {
			e.rows[i].Value = value
			return
		}
	}
	e.Add(key, value)
}

// Rows validates the working set. Keys are compared exactly and
// case-sensitively: any key appearing more than once marks every row
// sharing it invalid. Empty-key rows are always invalid and their value
// input is disabled.
func (e *Editor) Rows() []RowState {
	counts := make(map[string]int, len(e.rows))
	for _, row := range e.rows {
		counts[row.Key]++
	}

	states := make([]RowState, len(e.rows))
	for i, row := range e.rows {
		states[i] = RowState{
			Row:           row,
			Valid:         row.Key != "" && counts[row.Key] == 1,
			ValueEditable: row.Key != "",
		}
	}
	return states
}

// HasInvalid reports whether any non-empty-key row fails validation.
func (e *Editor) HasInvalid() bool {
	for _, st := range e.Rows() {
		if st.Key != "" && !st.Valid {
			return true
		}
	}
	return false
}

// Commit rebuilds the committed list from valid rows only. Values are
// trimmed and shell-quoted before formatting as KEY=value; keys were
// already trimmed when the rows entered the working set, so the keys
// validated for uniqueness are the keys that get committed.
func (e *Editor) Commit() []string {
	committed := []string{}
	for _, st := range e.Rows() {
		if !st.Valid {
			continue
		}
		committed = append(committed, fmt.Sprintf("%s=%s", st.Key, Quote(strings.TrimSpace(st.Value))))
	}
	return committed
}

var safeValue = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// Quote returns a shell-safe single-quoted form of s. Values made of
// safe characters pass through unquoted.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeValue.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// Unquote reverses Quote. Strings that were never quoted pass through
// unchanged.
func Unquote(s string) string {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return s
	}
	return strings.ReplaceAll(s[1:len(s)-1], `'"'"'`, "'")
}
