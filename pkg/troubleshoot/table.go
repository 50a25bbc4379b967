// Package troubleshoot holds the optional lookup from error-code tokens to
// human-authored troubleshooting text.
package troubleshoot

// Table maps error-code tokens (e.g. "0x20001011") to descriptive text.
// A nil or empty Table is treated as absent. Tables are read-only once a
// scan starts.
type Table struct {
	entries map[string]string
}

// New copies entries into a Table. It returns nil when entries is empty.
func New(entries map[string]string) *Table {
	if len(entries) == 0 {
		return nil
	}
	t := &Table{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		t.entries[k] = v
	}
	return t
}

// Present reports whether the table can be consulted at all.
func (t *Table) Present() bool {
	return t != nil && len(t.entries) > 0
}

// Lookup returns the text for a token.
func (t *Table) Lookup(token string) (string, bool) {
	if t == nil {
		return "", false
	}
	text, ok := t.entries[token]
	return text, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}
