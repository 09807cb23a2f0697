package latex

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/texgest/internal/doctree"
	"github.com/dlclark/regexp2"
)

// Tokenizer scans LaTeX source for sectioning commands and structural
// environments.
//
// Environments are matched against the first following \end with the same
// name (case-insensitive), so same-name environments that nest are closed by
// the innermost end marker. Unterminated or malformed markers are not
// recognized and stay in the surrounding text.
type Tokenizer struct {
	spec MarkerSpec
	re   *regexp2.Regexp
}

// NewTokenizer compiles the marker pattern for spec. A positive timeout bounds
// every individual match.
func NewTokenizer(spec MarkerSpec, timeout time.Duration) (*Tokenizer, error) {
	t := &Tokenizer{spec: spec}
	if spec.Empty() {
		return t, nil
	}

	var alts []string
	if envs := spec.Environments(); len(envs) > 0 {
		alts = append(alts, `(?<env>\\begin\{(?<envname>`+alternation(envs)+`)\}(?<envbody>.*?)\\end\{\k<envname>\})`)
	}
	if cmds := spec.Commands(); len(cmds) > 0 {
		alts = append(alts, `(?<cmd>\\(?<cmdname>`+alternation(cmds)+`)\*?(?:\[[^\]]*\])?\{(?<cmdtitle>(?:[^{}]|\{[^{}]*\})+)\})`)
	}

	re, err := regexp2.Compile(strings.Join(alts, "|"), regexp2.IgnoreCase|regexp2.Singleline)
	if err != nil {
		return nil, fmt.Errorf("compile marker pattern: %w", err)
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	t.re = re
	return t, nil
}

func alternation(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp2.Escape(n)
	}
	return strings.Join(quoted, "|")
}

// Tokenize splits src into text runs and markers, in source order. Raw spans
// and offsets refer to the bytes of src, so the tokens reproduce src exactly
// even when it is not valid UTF-8. When no markers are configured it returns
// an empty sequence. The only error is ErrMatchTimeout.
func (t *Tokenizer) Tokenize(src string) ([]doctree.Token, error) {
	if t.re == nil {
		return nil, nil
	}

	// at maps a rune index of the match input to its byte offset in src.
	// Ranging over a string yields one step per rune or per invalid byte,
	// the same decoding []rune applies.
	runes := []rune(src)
	at := make([]int, 0, len(runes)+1)
	for i := range src {
		at = append(at, i)
	}
	at = append(at, len(src))

	var tokens []doctree.Token
	pos := 0

	m, err := t.re.FindRunesMatch(runes)
	for ; m != nil && err == nil; m, err = t.re.FindNextMatch(m) {
		start, end := at[m.Index], at[m.Index+m.Length]
		if start > pos {
			tokens = append(tokens, doctree.Text(src[pos:start], pos))
		}
		tokens = append(tokens, t.marker(m, src[start:end], start))
		pos = end
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatchTimeout, err)
	}

	if pos < len(src) {
		tokens = append(tokens, doctree.Text(src[pos:], pos))
	}
	return tokens, nil
}

func (t *Tokenizer) marker(m *regexp2.Match, raw string, offset int) doctree.Token {
	if matched(m, "env") {
		name := strings.ToLower(strings.TrimSpace(m.GroupByName("envname").String()))
		return doctree.Token{
			Kind:   doctree.Marker,
			Marker: doctree.Environment,
			Name:   name,
			Title:  capitalize(name),
			Body:   strings.TrimSpace(m.GroupByName("envbody").String()),
			Level:  t.spec.EnvironmentLevel(name),
			Offset: offset,
			Raw:    raw,
		}
	}
	name := strings.ToLower(strings.TrimSpace(m.GroupByName("cmdname").String()))
	return doctree.Token{
		Kind:   doctree.Marker,
		Marker: doctree.Command,
		Name:   name,
		Title:  strings.TrimSpace(m.GroupByName("cmdtitle").String()),
		Level:  t.spec.CommandLevel(name),
		Offset: offset,
		Raw:    raw,
	}
}

func matched(m *regexp2.Match, group string) bool {
	g := m.GroupByName(group)
	return g != nil && len(g.Captures) > 0
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
