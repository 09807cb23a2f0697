package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
)

// Sections is an ordered title -> content mapping. Iteration order is
// insertion order. The zero value is ready to use.
type Sections struct {
	keys []string
	vals map[string]string
}

// NewSections returns an empty mapping.
func NewSections() *Sections {
	return &Sections{vals: make(map[string]string)}
}

// Len returns the number of titles.
func (s *Sections) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the titles in order.
func (s *Sections) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the content stored for title.
func (s *Sections) Get(title string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.vals[title]
	return v, ok
}

// Set stores content under title, keeping the original position if the title
// already exists.
func (s *Sections) Set(title, content string) {
	if s.vals == nil {
		s.vals = make(map[string]string)
	}
	if _, ok := s.vals[title]; !ok {
		s.keys = append(s.keys, title)
	}
	s.vals[title] = content
}

// Append upserts content under title. Existing content is joined with a
// newline, even when either side is empty.
func (s *Sections) Append(title, content string) {
	if prev, ok := s.Get(title); ok {
		s.Set(title, prev+"\n"+content)
		return
	}
	s.Set(title, content)
}

// All iterates titles and contents in order.
func (s *Sections) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if s == nil {
			return
		}
		for _, k := range s.keys {
			if !yield(k, s.vals[k]) {
				return
			}
		}
	}
}

// MarshalJSON encodes the mapping as a JSON object in insertion order.
func (s *Sections) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	i := 0
	for k, v := range s.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		i++
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of strings, preserving key order.
func (s *Sections) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sections: expected object, got %v", tok)
	}
	s.keys = nil
	s.vals = make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("sections: expected key, got %v", tok)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("sections: value for %q: %w", key, err)
		}
		s.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
