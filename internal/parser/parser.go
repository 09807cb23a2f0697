package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/texgest/internal/doctree"
	"github.com/dgallion1/texgest/internal/latex"
)

// ErrNoStructure means no structural document was found in the input, as
// opposed to a document that is present but has no sections.
var ErrNoStructure = errors.New("parser: no structural document found")

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options configure the LaTeX front-end. Zero values select the defaults.
type Options struct {
	Markers      latex.MarkerSpec
	MatchTimeout time.Duration
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".tex":      true,
	".ltx":      true,
	".tar":      true,
	".tgz":      true,
	".gz":       true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	switch FormatOf(filename) {
	case FormatLaTeX:
		return NewLaTeXParser(opts)
	case FormatMarkdown:
		return &MarkdownParser{}, nil
	case FormatHTML:
		return &HTMLParser{}, nil
	case FormatDOCX:
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// FormatOf maps a filename to the format its parser produces, or "" when the
// extension is not supported.
func FormatOf(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tex", ".ltx", ".tar", ".tgz", ".gz":
		return FormatLaTeX
	case ".md", ".markdown":
		return FormatMarkdown
	case ".html", ".htm":
		return FormatHTML
	case ".docx":
		return FormatDOCX
	}
	return ""
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// IsLaTeX reports whether a format name produced by a parser is LaTeX.
func IsLaTeX(format string) bool { return format == FormatLaTeX }

const (
	FormatLaTeX    = "latex"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatDOCX     = "docx"
)

// baseName strips the directory, archive suffixes and the format extension.
func baseName(filename string) string {
	name := filepath.Base(filename)
	for {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext)
		switch strings.ToLower(ext) {
		case ".gz", ".tar", ".tgz":
			continue
		}
		return name
	}
}

// emitter accumulates a token stream for front-ends that see headings and
// paragraphs rather than raw markup. Paragraphs within a section are joined
// by a blank line.
type emitter struct {
	tokens []doctree.Token
	offset int
	inText bool
}

func (e *emitter) heading(name, title string, level int) {
	e.tokens = append(e.tokens, doctree.Token{
		Kind:   doctree.Marker,
		Marker: doctree.Command,
		Name:   name,
		Title:  title,
		Level:  level,
		Offset: e.offset,
		Raw:    title,
	})
	e.offset += len(title)
	e.inText = false
}

func (e *emitter) paragraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if e.inText {
		text = "\n\n" + text
	}
	e.tokens = append(e.tokens, doctree.Text(text, e.offset))
	e.offset += len(text)
	e.inText = true
}
