// Package intern provides the string store: a bidirectional map between
// strings and stable integer ids ("orths"). Ids are assigned monotonically in
// insertion order; id 0 is reserved for the empty string.
//
// The store is the canonical identity for every lexeme. Consumers that bring
// their own interning (e.g. a shared cross-process table) implement
// StringStore; Table is the default in-memory implementation.
package intern

import (
	"encoding/json"
	"fmt"
	"io"
)

// ErrUnknownOrth is returned when an id does not resolve to a string.
var ErrUnknownOrth = fmt.Errorf("intern: unknown orth")

// StringStore maps strings to stable integer ids and back.
type StringStore interface {
	// Orth returns the id for s, inserting it if absent.
	Orth(s string) uint64
	// Lookup returns the id for s without inserting.
	Lookup(s string) (uint64, bool)
	// String resolves an id back to its string.
	String(orth uint64) (string, error)
	// Len reports the number of interned strings, including the empty string.
	Len() int
	// Strings returns all interned strings in insertion order.
	Strings() []string
}

// Table is the default in-memory StringStore.
type Table struct {
	byString map[string]uint64
	byOrth   []string
}

var _ StringStore = (*Table)(nil)

// NewTable creates an empty Table with "" pre-interned at id 0.
func NewTable() *Table {
	t := &Table{
		byString: make(map[string]uint64),
	}
	t.byOrth = append(t.byOrth, "")
	t.byString[""] = 0
	return t
}

// Orth returns the id for s, inserting it if absent.
func (t *Table) Orth(s string) uint64 {
	if id, ok := t.byString[s]; ok {
		return id
	}
	id := uint64(len(t.byOrth))
	t.byOrth = append(t.byOrth, s)
	t.byString[s] = id
	return id
}

// Lookup returns the id for s without inserting.
func (t *Table) Lookup(s string) (uint64, bool) {
	id, ok := t.byString[s]
	return id, ok
}

// String resolves an id back to its string.
func (t *Table) String(orth uint64) (string, error) {
	if orth >= uint64(len(t.byOrth)) {
		return "", fmt.Errorf("%w: %d", ErrUnknownOrth, orth)
	}
	return t.byOrth[orth], nil
}

// Len reports the number of interned strings.
func (t *Table) Len() int { return len(t.byOrth) }

// Strings returns all interned strings in insertion order.
// The returned slice is a copy.
func (t *Table) Strings() []string {
	out := make([]string, len(t.byOrth))
	copy(out, t.byOrth)
	return out
}

// WriteJSON writes a store as a UTF-8 JSON array of strings in insertion
// order. The leading empty string (id 0) is included so that ids are the
// array indexes.
func WriteJSON(w io.Writer, ss StringStore) error {
	enc := json.NewEncoder(w)
	return enc.Encode(ss.Strings())
}

// ReadJSON builds a Table from a JSON array written by WriteJSON.
func ReadJSON(r io.Reader) (*Table, error) {
	var strs []string
	if err := json.NewDecoder(r).Decode(&strs); err != nil {
		return nil, fmt.Errorf("intern: decode strings: %w", err)
	}
	t := NewTable()
	for i, s := range strs {
		if i == 0 {
			if s != "" {
				return nil, fmt.Errorf("intern: id 0 must be the empty string, got %q", s)
			}
			continue
		}
		t.Orth(s)
	}
	return t, nil
}
