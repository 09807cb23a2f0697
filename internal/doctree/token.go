package doctree

import "strings"

// TokenKind distinguishes text runs from structural markers.
type TokenKind int

const (
	TextRun TokenKind = iota
	Marker
)

// MarkerKind is the family a marker belongs to.
type MarkerKind int

const (
	Command     MarkerKind = iota // sectioning command with an inline title
	Environment                   // begin/end block with a body
)

// Token is one element of a tokenized source. Text runs carry their content in
// Raw; markers additionally carry name, title, body and level. Raw always holds
// the exact source span so that concatenating Raw over a token sequence
// reproduces the input.
type Token struct {
	Kind   TokenKind
	Marker MarkerKind
	Name   string // lower-cased marker name
	Title  string
	Body   string // environment body, trimmed; empty for commands
	Level  int
	Offset int // byte offset into the source
	Raw    string
}

// Text returns a text-run token.
func Text(content string, offset int) Token {
	return Token{Kind: TextRun, Raw: content, Offset: offset}
}

// Content returns the text a token contributes to the open section.
func (t Token) Content() string {
	if t.Kind == TextRun {
		return t.Raw
	}
	return t.Body
}

// Reconstruct concatenates the source spans of tokens.
func Reconstruct(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Raw)
	}
	return sb.String()
}
