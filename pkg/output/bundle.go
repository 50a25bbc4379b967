package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ccollicutt/faultscope/pkg/analyzer"
	"github.com/ccollicutt/faultscope/pkg/patterns"
)

// Bundle keys.
const (
	KeyVersion     = "version"
	KeyError       = "Error"
	KeyTimeCreated = "TimeCreated"
	KeyComputer    = "Computer"
	KeyKeywords    = "Keywords"
	KeyUserID      = "UserId"
	KeyErrorRepeat = "Error_repeat"
	KeyWarning     = "Warning"

	descriptionSuffix = " Description"
	detailsSuffix     = " Details"
)

// MissingTableWarning is emitted when no troubleshooting table was available.
const MissingTableWarning = "Can't find Troubleshooting Spreadsheet"

// Details describes one surviving error code.
type Details struct {
	TimeBefore int    `json:"TimeBefore"`
	Computer   string `json:"Computer"`
	Keywords   string `json:"Keywords"`
	UserID     string `json:"UserId"`
	Metadata   string `json:"Metadata"`
	Repeat     int    `json:"Repeat"`
}

// Bundle is a flat, insertion-ordered mapping from feature name to a
// string, an int or a Details value.
type Bundle struct {
	keys   []string
	values map[string]any
}

// NewBundle creates an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{values: make(map[string]any)}
}

// Set stores a value. Overwriting a key keeps its original position.
func (b *Bundle) Set(key string, value any) {
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
}

// Get returns the value stored under key.
func (b *Bundle) Get(key string) (any, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Len returns the number of keys.
func (b *Bundle) Len() int {
	return len(b.keys)
}

// Keys returns the keys in insertion order.
func (b *Bundle) Keys() []string {
	return append([]string(nil), b.keys...)
}

// MarshalJSON encodes the bundle as an object in key order.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range b.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(b.values[k])
		if err != nil {
			return nil, fmt.Errorf("encoding %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, keeping key order. Numbers become int,
// objects become Details.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("bundle must be a JSON object")
	}

	*b = Bundle{values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		b.Set(key, value)
	}
	return nil
}

func decodeValue(msg json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty value")
	}

	switch trimmed[0] {
	case '"':
		var s string
		err := json.Unmarshal(trimmed, &s)
		return s, err
	case '{':
		var d Details
		err := json.Unmarshal(trimmed, &d)
		return d, err
	default:
		var n int
		err := json.Unmarshal(trimmed, &n)
		return n, err
	}
}

// reportedEntries returns the open entries that belong in the bundle: none
// when the window never closed, and never a Fault Cleared entry.
func reportedEntries(t *analyzer.Terminal) []analyzer.OpenErrorEntry {
	if !t.HasAnchor() || t.Exhausted {
		return nil
	}
	var entries []analyzer.OpenErrorEntry
	for _, e := range t.Entries {
		if _, cleared := patterns.FaultCleared(e.Description); cleared {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Build flattens a terminal engine state into a feature bundle. The bundle
// is empty when no anchor was found, and carries only the anchor fields when
// the input ended before the window closed.
func Build(version string, t *analyzer.Terminal) *Bundle {
	b := NewBundle()
	if !t.HasAnchor() {
		return b
	}

	b.Set(KeyVersion, version)
	b.Set(KeyError, t.Anchor.Error)
	b.Set(KeyTimeCreated, t.Anchor.TimeCreated)
	b.Set(KeyComputer, t.Anchor.Computer)
	b.Set(KeyKeywords, t.Anchor.Keywords)
	b.Set(KeyUserID, t.Anchor.UserID)
	if t.ErrorRepeat != 0 {
		b.Set(KeyErrorRepeat, t.ErrorRepeat)
	}

	for _, e := range reportedEntries(t) {
		code := e.Code.Token()
		b.Set(code, 1)
		b.Set(code+descriptionSuffix, e.Description)
		b.Set(code+detailsSuffix, Details{
			TimeBefore: e.TimeBefore,
			Computer:   e.Computer,
			Keywords:   e.Keywords,
			UserID:     e.UserID,
			Metadata:   joinMetadata(e.Metadata),
			Repeat:     e.Repeat,
		})
	}

	if !t.TablePresent && !t.Exhausted {
		b.Set(KeyWarning, MissingTableWarning)
	}

	return b
}

func joinMetadata(lines []string) string {
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte(';')
	}
	return sb.String()
}
