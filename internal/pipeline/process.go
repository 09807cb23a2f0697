package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/texgest/internal/doctree"
	"github.com/dgallion1/texgest/internal/latex"
	"github.com/dgallion1/texgest/internal/outline"
	"github.com/dgallion1/texgest/internal/parser"
)

// Outline modes recorded with every processed document.
const (
	OutlineExplicit  = "explicit"
	OutlineReference = "outline"
	OutlineBypass    = "bypass"
)

// Input is one document handed to the Processor.
type Input struct {
	Filename string
	Data     []byte
	PDF      []byte   // optional reference rendering
	Outline  []string // optional explicit canonical titles
	Title    string   // overrides the detected title
}

// Result is the outcome of processing one document.
type Result struct {
	Title       string
	Format      string
	Tree        *doctree.DocTree
	Flat        *doctree.Sections
	Sections    *doctree.Sections
	Outline     []string
	OutlineMode string
	Timings     map[string]int64 // stage -> milliseconds
}

// Hooks observe progress. Nil fields are ignored.
type Hooks struct {
	Stage   func(JobStatus)
	Section func()
}

func (h Hooks) stage(s JobStatus) {
	if h.Stage != nil {
		h.Stage(s)
	}
}

func (h Hooks) section() {
	if h.Section != nil {
		h.Section()
	}
}

// Processor runs tokenize, build, flatten, filter and normalize over a single
// document. It is safe for concurrent use.
type Processor struct {
	latex      *parser.LaTeXParser
	normalizer *latex.Normalizer
	fallback   []string
}

// NewProcessor compiles the marker patterns and normalizer rules once.
func NewProcessor(spec latex.MarkerSpec, fallback []string, matchTimeout time.Duration) (*Processor, error) {
	if spec.Empty() {
		spec = latex.DefaultMarkerSpec()
	}
	if len(fallback) == 0 {
		fallback = outline.DefaultFallback
	}
	lp, err := parser.NewLaTeXParser(parser.Options{Markers: spec, MatchTimeout: matchTimeout})
	if err != nil {
		return nil, fmt.Errorf("latex parser: %w", err)
	}
	norm, err := latex.NewNormalizer(spec, matchTimeout)
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	return &Processor{latex: lp, normalizer: norm, fallback: fallback}, nil
}

// Normalizer returns the shared normalizer.
func (p *Processor) Normalizer() *latex.Normalizer { return p.normalizer }

// Process runs the full extraction. The context is checked between stages and
// between sections.
func (p *Processor) Process(ctx context.Context, in Input, hooks Hooks) (*Result, error) {
	res := &Result{Timings: make(map[string]int64)}

	hooks.stage(StatusParsing)
	start := time.Now()
	prs, err := p.parserFor(in.Filename)
	if err != nil {
		return nil, err
	}
	tree, err := prs.Parse(bytes.NewReader(in.Data), in.Filename)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if in.Title != "" {
		tree.Title = in.Title
	}
	res.Title = tree.Title
	res.Format = tree.Format
	res.Tree = tree
	res.Flat = doctree.Flatten(tree.Children)
	res.Timings["parse"] = time.Since(start).Milliseconds()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hooks.stage(StatusFiltering)
	start = time.Now()
	res.Outline, res.OutlineMode, err = ResolveOutline(res.Flat, in.Outline, in.PDF, p.fallback)
	if err != nil {
		return nil, err
	}
	filtered := outline.Filter(res.Flat, res.Outline)
	res.Timings["filter"] = time.Since(start).Milliseconds()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hooks.stage(StatusNormalizing)
	start = time.Now()
	res.Sections, err = p.normalizeAll(ctx, filtered, parser.IsLaTeX(tree.Format), hooks)
	if err != nil {
		return nil, err
	}
	res.Timings["normalize"] = time.Since(start).Milliseconds()
	return res, nil
}

func (p *Processor) parserFor(filename string) (parser.Parser, error) {
	if parser.FormatOf(filename) == parser.FormatLaTeX {
		return p.latex, nil
	}
	return parser.ForFile(filename, parser.Options{})
}

func (p *Processor) normalizeAll(ctx context.Context, in *doctree.Sections, isLaTeX bool, hooks Hooks) (*doctree.Sections, error) {
	out := doctree.NewSections()
	for title, text := range in.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			clean string
			err   error
		)
		if isLaTeX {
			clean, err = p.normalizer.Normalize(text)
		} else {
			clean, err = p.normalizer.Apply(latex.StageWhitespace, text)
			clean = strings.TrimSpace(clean)
		}
		if err != nil {
			return nil, fmt.Errorf("normalize %q: %w", title, err)
		}
		out.Set(title, clean)
		hooks.section()
	}
	return out, nil
}

// ResolveOutline picks the canonical titles used to filter flat. An explicit
// list wins and is canonicalized like bookmark titles: numbering stripped and
// the fallback titles appended. Without a reference rendering, or when the
// rendering carries no bookmarks beyond the fallback titles, the flat titles
// themselves are used.
func ResolveOutline(flat *doctree.Sections, explicit []string, pdf []byte, fallback []string) ([]string, string, error) {
	if len(explicit) > 0 {
		titles := make([]string, 0, len(explicit))
		for _, t := range explicit {
			if t = outline.StripNumbering(t); t != "" {
				titles = append(titles, t)
			}
		}
		return outline.Canonical(titles, fallback), OutlineExplicit, nil
	}
	if len(pdf) == 0 {
		return flat.Keys(), OutlineBypass, nil
	}
	titles, err := outline.FromPDF(bytes.NewReader(pdf))
	if err != nil {
		return nil, "", err
	}
	canonical := outline.Canonical(titles, fallback)
	if outline.IsFallbackOnly(canonical, fallback) {
		return flat.Keys(), OutlineBypass, nil
	}
	return canonical, OutlineReference, nil
}
