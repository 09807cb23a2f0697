package latex

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"golang.org/x/net/html"
)

// Stage names, in the order the Normalizer applies them.
const (
	StageLineEndings  = "line-endings"
	StageComments     = "comments"
	StagePreamble     = "preamble"
	StageHeadings     = "headings"
	StageEmphasis     = "emphasis"
	StageEscapes      = "escapes"
	StageTypography   = "typography"
	StageCitations    = "citations"
	StageMath         = "math"
	StageFloats       = "floats"
	StageBibliography = "bibliography"
	StageReferences   = "references"
	StageLists        = "lists"
	StageLinks        = "links"
	StageWhitespace   = "whitespace"
	StageEntities     = "entities"
	StageTrim         = "trim"
)

// brace matches a braced argument with at most one level of nested braces.
const brace = `\{(?<arg>(?:[^{}]|\{[^{}]*\})*)\}`

// Stage is one pure text -> text rewrite.
type Stage struct {
	Name  string
	apply func(string) (string, error)
}

// Normalizer rewrites LaTeX section text into plain text with bracketed
// placeholders for citations, references, figures and tables. Stages run in a
// fixed order; later stages rely on earlier ones having removed ambiguous
// constructs (comments before escapes, math before figure captions, ...).
type Normalizer struct {
	stages  []Stage
	timeout time.Duration
}

// NewNormalizer builds the stage list. Sectioning commands declared in spec
// are rewritten to plain headings. A positive timeout bounds every match.
func NewNormalizer(spec MarkerSpec, timeout time.Duration) (*Normalizer, error) {
	n := &Normalizer{timeout: timeout}

	headings := []rewrite{}
	if cmds := spec.Commands(); len(cmds) > 0 {
		headings = append(headings, n.replace(`\\(?:`+alternation(cmds)+`)\*?(?:\[[^\]]*\])?`+brace, "\n\n${arg}\n\n", regexp2.IgnoreCase))
	}

	n.stages = []Stage{
		// CR and CRLF become LF so every later pattern sees one line ending.
		n.rewrites(StageLineEndings, n.replace(`\r\n?`, "\n", 0)),

		// Unescaped % to end of line. Escaped \% survives for the escapes stage.
		n.rewrites(StageComments, n.replace(`(?<!\\)%[^\n]*`, "", 0)),

		// Commands that carry no body text. \nocite produces no in-text marker
		// and is blanked here; rendering citations wait for the citations stage.
		n.rewrites(StagePreamble,
			n.replace(`\\(?:documentclass|usepackage|bibliographystyle|bibliography|nocite|label|footnote|title|author|date|thanks)\*?(?:\[[^\]]*\])?`+brace, "", 0),
			n.replace(`\\(?:begin|end)\{document\}`, "", 0),
			n.replace(`\\(?:maketitle|tableofcontents|listoffigures|listoftables|appendix|clearpage|newpage|noindent|centering)\b`, "", 0),
		),

		// Sectioning commands left inside a section become blank-line
		// delimited plain headings.
		n.rewrites(StageHeadings, headings...),

		// Wrappers nest (\textbf{\emph{x}}), so these repeat until stable.
		n.rewrites(StageEmphasis,
			n.replace(`\\(?:textbf|textit|texttt|textsc|textsf|textrm|textsl|textup|underline|emph|mbox)`+brace, "${arg}", 0).nested(),
			n.replace(`\{\\(?:bf|it|em|tt|sc|sl)\s+(?<arg>[^{}]*)\}`, "${arg}", 0).nested(),
		),

		{Name: StageEscapes, apply: plain(strings.NewReplacer(`\%`, "%", `\_`, "_", `\&`, "&", `\#`, "#").Replace)},

		{Name: StageTypography, apply: plain(strings.NewReplacer("---", "—", "--", "–", "``", "“", "''", "”").Replace)},

		n.rewrites(StageCitations,
			n.replace(`\\(?:[cC]ite[a-zA-Z]*|parencite|textcite|autocite|footcite)\*?(?:\[[^\]]*\]){0,2}\{[^{}]*\}`, "[citation]", 0),
		),

		// Display forms first so $$ is not read as two empty inline spans.
		n.rewrites(StageMath,
			n.replace(`(?<!\\)\$\$(?<arg>.*?)(?<!\\)\$\$`, " ${arg} ", regexp2.Singleline),
			n.replace(`\\\[(?<arg>.*?)\\\]`, " ${arg} ", regexp2.Singleline),
			n.replace(`\\\((?<arg>.*?)\\\)`, " ${arg} ", regexp2.Singleline),
			n.replace(`\\begin\{(?<env>equation|align|gather|multline|eqnarray)(?<star>\*?)\}(?<arg>.*?)\\end\{\k<env>\k<star>\}`, " ${arg} ", regexp2.Singleline),
			n.replace(`(?<!\\)\$(?<arg>[^$\n]*?)(?<!\\)\$`, " ${arg} ", 0),
		),

		n.rewrites(StageFloats,
			n.replaceFunc(`\\begin\{(?<kind>figure|table)(?<star>\*?)\}(?<body>.*?)\\end\{\k<kind>\k<star>\}`, regexp2.Singleline, n.floatPlaceholder),
			n.replace(`\\caption(?:\[[^\]]*\])?`+brace, "\n[FIGURE: ${arg}]\n", 0),
		),

		n.rewrites(StageBibliography,
			n.replace(`\\begin\{thebibliography\}.*?\\end\{thebibliography\}`, "", regexp2.Singleline),
		),

		n.rewrites(StageReferences,
			n.replace(`\\(?:ref|eqref|autoref|cref|Cref|pageref|nameref)\{[^{}]*\}`, "[reference]", 0),
		),

		n.rewrites(StageLists,
			n.replace(`\\(?:begin|end)\{(?:itemize|enumerate|description)\}`, "", 0),
			n.replace(`\\item\b\s*`, "- ", 0),
		),

		n.rewrites(StageLinks,
			n.replace(`\\href\{[^{}]*\}`+brace, "${arg}", 0),
			n.replace(`\\url\{(?<arg>[^{}]*)\}`, "${arg}", 0),
		),

		n.rewrites(StageWhitespace,
			n.replace(`[ \t]{2,}`, " ", 0),
			n.replace(`\n(?:[ \t]*\n){2,}`, "\n\n", 0),
		),

		{Name: StageEntities, apply: plain(html.UnescapeString)},

		{Name: StageTrim, apply: plain(strings.TrimSpace)},
	}
	return n, nil
}

// Normalize runs every stage in order.
func (n *Normalizer) Normalize(text string) (string, error) {
	var err error
	for _, s := range n.stages {
		if text, err = s.apply(text); err != nil {
			return "", fmt.Errorf("stage %s: %w", s.Name, err)
		}
	}
	return text, nil
}

// Apply runs a single named stage.
func (n *Normalizer) Apply(stage, text string) (string, error) {
	for _, s := range n.stages {
		if s.Name == stage {
			return s.apply(text)
		}
	}
	return "", fmt.Errorf("unknown stage %q", stage)
}

// Stages returns the stage names in application order.
func (n *Normalizer) Stages() []string {
	names := make([]string, len(n.stages))
	for i, s := range n.stages {
		names[i] = s.Name
	}
	return names
}

// maxPasses bounds how often a nested rewrite is reapplied.
const maxPasses = 8

type rewrite struct {
	re     *regexp2.Regexp
	repl   string
	fn     regexp2.MatchEvaluator
	passes int
}

func (rw rewrite) nested() rewrite {
	rw.passes = maxPasses
	return rw
}

func (rw rewrite) run(text string) (string, error) {
	for pass := 0; ; pass++ {
		var out string
		var err error
		if rw.fn != nil {
			out, err = rw.re.ReplaceFunc(text, rw.fn, -1, -1)
		} else {
			out, err = rw.re.Replace(text, rw.repl, -1, -1)
		}
		if err != nil {
			return "", err
		}
		if out == text || pass+1 >= rw.passes {
			return out, nil
		}
		text = out
	}
}

func (n *Normalizer) compile(expr string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, opts)
	if n.timeout > 0 {
		re.MatchTimeout = n.timeout
	}
	return re
}

func (n *Normalizer) replace(expr, repl string, opts regexp2.RegexOptions) rewrite {
	return rewrite{re: n.compile(expr, opts), repl: repl}
}

func (n *Normalizer) replaceFunc(expr string, opts regexp2.RegexOptions, fn regexp2.MatchEvaluator) rewrite {
	return rewrite{re: n.compile(expr, opts), fn: fn}
}

func (n *Normalizer) rewrites(name string, rws ...rewrite) Stage {
	return Stage{Name: name, apply: func(text string) (string, error) {
		var err error
		for _, rw := range rws {
			if text, err = rw.run(text); err != nil {
				return "", fmt.Errorf("%w: %v", ErrMatchTimeout, err)
			}
		}
		return text, nil
	}}
}

func plain(fn func(string) string) func(string) (string, error) {
	return func(s string) (string, error) { return fn(s), nil }
}

var captionRe = regexp2.MustCompile(`\\caption(?:\[[^\]]*\])?`+brace, regexp2.Singleline)

// floatPlaceholder replaces a figure or table block with a one-line marker
// carrying its caption.
func (n *Normalizer) floatPlaceholder(m regexp2.Match) string {
	label := strings.ToUpper(m.GroupByName("kind").String())
	body := m.GroupByName("body").String()

	if cm, err := captionRe.FindStringMatch(body); err == nil && cm != nil {
		caption := strings.Join(strings.Fields(cm.GroupByName("arg").String()), " ")
		return "\n[" + label + ": " + caption + "]\n"
	}
	return "\n[" + label + "]\n"
}
