// Package outline builds canonical section outlines from a reference
// rendering of a document and reconciles parsed sections against them.
package outline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// ErrUnavailable means the reference outline could not be read at all. It is
// distinct from an outline that was read and turned out empty.
var ErrUnavailable = errors.New("outline: reference outline unavailable")

// DefaultFallback titles are appended to every canonical outline.
var DefaultFallback = []string{"Abstract", "Conclusion", "Conclusions"}

var numberPrefix = regexp.MustCompile(`^\d+(\.\d+)*\s*`)

// StripNumbering removes a leading "3.1.2 " style section number.
func StripNumbering(title string) string {
	return strings.TrimSpace(numberPrefix.ReplaceAllString(strings.TrimSpace(title), ""))
}

// FromPDF reads the bookmark tree of a PDF and returns its titles in
// depth-first order with numbering stripped. Unreadable input yields
// ErrUnavailable.
func FromPDF(r io.Reader) (titles []string, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrUnavailable, err)
	}

	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if p := recover(); p != nil {
			titles, err = nil, fmt.Errorf("%w: %v", ErrUnavailable, p)
		}
	}()

	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Titles(reader.Outline()), nil
}

// Titles flattens a bookmark tree in pre-order. Empty titles are skipped.
func Titles(root pdflib.Outline) []string {
	var out []string
	var walk func(o pdflib.Outline)
	walk = func(o pdflib.Outline) {
		if t := StripNumbering(o.Title); t != "" {
			out = append(out, t)
		}
		for _, c := range o.Child {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Canonical appends each fallback title not already present (exact match).
func Canonical(titles, fallback []string) []string {
	out := make([]string, 0, len(titles)+len(fallback))
	out = append(out, titles...)
	for _, f := range fallback {
		if !contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// IsFallbackOnly reports whether outline is exactly the fallback list, which
// means the reference rendering contributed no titles of its own.
func IsFallbackOnly(outline, fallback []string) bool {
	if len(outline) != len(fallback) {
		return false
	}
	for i := range outline {
		if outline[i] != fallback[i] {
			return false
		}
	}
	return true
}

// ParseList splits a newline, semicolon or comma separated title list.
func ParseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == ';' || r == ','
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
