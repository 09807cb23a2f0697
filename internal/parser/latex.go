package parser

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/dgallion1/texgest/internal/doctree"
	"github.com/dgallion1/texgest/internal/latex"
	"github.com/dgallion1/texgest/internal/source"
)

// LaTeXParser handles .tex files and arXiv-style source bundles.
type LaTeXParser struct {
	tokenizer *latex.Tokenizer
}

func NewLaTeXParser(opts Options) (*LaTeXParser, error) {
	spec := opts.Markers
	if spec.Empty() {
		spec = latex.DefaultMarkerSpec()
	}
	tok, err := latex.NewTokenizer(spec, opts.MatchTimeout)
	if err != nil {
		return nil, err
	}
	return &LaTeXParser{tokenizer: tok}, nil
}

func (p *LaTeXParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrNoStructure
	}

	// A present but blank source is an empty document, not a missing one.
	src, err := source.Open(data)
	switch {
	case errors.Is(err, source.ErrTooLarge):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrNoStructure, err)
	}

	tokens, err := p.tokenizer.Tokenize(src.Text)
	if err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = []doctree.Token{doctree.Text(src.Text, 0)}
	}

	title := documentTitle(src.Text)
	if title == "" {
		title = baseName(filename)
	}
	return doctree.BuildTree(title, FormatLaTeX, tokens), nil
}

var titleRe = regexp.MustCompile(`\\title(?:\[[^\]]*\])?\{((?:[^{}]|\{[^{}]*\})*)\}`)

// documentTitle returns the \title argument with line breaks collapsed.
func documentTitle(text string) string {
	m := titleRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	t := strings.ReplaceAll(m[1], `\\`, " ")
	return strings.Join(strings.Fields(t), " ")
}
