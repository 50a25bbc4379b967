package parser

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"
)

// recordElement is the local name of one event record.
const recordElement = "Event"

// FileSource implements RecordSource for XML event export files. Each file
// holds a sequence of <Event> elements, optionally wrapped in a root element.
// Namespaces declared on enclosing elements are copied onto each record so
// that it parses on its own.
type FileSource struct {
	files []string

	currentData    []byte
	currentDecoder *xml.Decoder
	currentSource  string
	currentIndex   int
	fileIndex      int

	// namespace declarations of the open enclosing elements, outermost first
	scopes []map[string]string
}

// NewFileSource creates a RecordSource that reads from the given files in order.
func NewFileSource(files []string) *FileSource {
	return &FileSource{
		files:     files,
		fileIndex: -1,
	}
}

// Next returns the next raw record.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*RawRecord, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.currentDecoder == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		start := s.currentDecoder.InputOffset()
		tok, err := s.currentDecoder.Token()
		if err == io.EOF {
			s.closeCurrentFile()
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			if _, isEnd := tok.(xml.EndElement); isEnd && len(s.scopes) > 0 {
				s.scopes = s.scopes[:len(s.scopes)-1]
			}
			continue
		}
		if se.Name.Local != recordElement {
			s.scopes = append(s.scopes, namespaceDecls(se))
			continue
		}

		if err := s.currentDecoder.Skip(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}
		end := s.currentDecoder.InputOffset()

		content := bytes.TrimSpace(s.currentData[start:end])
		content = inheritNamespaces(content, s.inherited(se))

		s.currentIndex++
		return &RawRecord{
			Content: string(content),
			Source:  s.currentSource,
			Index:   s.currentIndex,
		}, nil
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	s.closeCurrentFile()
	return nil
}

func (s *FileSource) openNextFile() error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.fileIndex]
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening event file %s: %w", path, err)
	}

	s.currentData = data
	s.currentDecoder = xml.NewDecoder(bytes.NewReader(data))
	s.currentSource = path
	s.currentIndex = 0

	return nil
}

func (s *FileSource) closeCurrentFile() {
	s.currentData = nil
	s.currentDecoder = nil
	s.scopes = nil
}

// inherited returns the declarations in scope for se that se does not make
// itself. Inner declarations override outer ones.
func (s *FileSource) inherited(se xml.StartElement) map[string]string {
	own := namespaceDecls(se)
	decls := make(map[string]string)
	for _, scope := range s.scopes {
		for prefix, uri := range scope {
			if _, ok := own[prefix]; !ok {
				decls[prefix] = uri
			}
		}
	}
	return decls
}

// namespaceDecls returns the namespace declarations on se keyed by prefix,
// with "" for the default namespace.
func namespaceDecls(se xml.StartElement) map[string]string {
	decls := make(map[string]string)
	for _, a := range se.Attr {
		switch {
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			decls[""] = a.Value
		case a.Name.Space == "xmlns":
			decls[a.Name.Local] = a.Value
		}
	}
	return decls
}

// inheritNamespaces adds decls to the start tag at the head of fragment.
func inheritNamespaces(fragment []byte, decls map[string]string) []byte {
	if len(decls) == 0 || len(fragment) < 2 || fragment[0] != '<' {
		return fragment
	}

	nameEnd := bytes.IndexAny(fragment[1:], " \t\r\n/>")
	if nameEnd < 0 {
		return fragment
	}
	nameEnd++

	prefixes := make([]string, 0, len(decls))
	for prefix := range decls {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	var buf bytes.Buffer
	buf.Write(fragment[:nameEnd])
	for _, prefix := range prefixes {
		buf.WriteString(" xmlns")
		if prefix != "" {
			buf.WriteByte(':')
			buf.WriteString(prefix)
		}
		buf.WriteString(`="`)
		_ = xml.EscapeText(&buf, []byte(decls[prefix]))
		buf.WriteByte('"')
	}
	buf.Write(fragment[nameEnd:])
	return buf.Bytes()
}

// SliceSource implements RecordSource over records already held in memory.
type SliceSource struct {
	records []*RawRecord
	pos     int
}

// NewSliceSource creates a RecordSource over XML record texts, in order.
func NewSliceSource(source string, records ...string) *SliceSource {
	s := &SliceSource{records: make([]*RawRecord, 0, len(records))}
	for i, r := range records {
		s.records = append(s.records, &RawRecord{Content: r, Source: source, Index: i + 1})
	}
	return s
}

// Next returns the next record or io.EOF.
func (s *SliceSource) Next(ctx context.Context) (*RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error {
	return nil
}
