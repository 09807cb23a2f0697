package pipeline

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/texgest/internal/doctree"
	"github.com/dgallion1/texgest/internal/latex"
	"github.com/dgallion1/texgest/internal/outline"
	"github.com/dgallion1/texgest/internal/parser"
)

const paper = `\documentclass{article}
\title{A Study of Things}
\begin{document}
\maketitle
\begin{abstract}
We study \textbf{things}~\cite{x}.
\end{abstract}
\section{Introduction}
Intro text with \emph{emphasis}. % a comment
\section{Related Work}
Prior art.
\subsection{Older Work}
Even older.
\section{Conclusion}
Done.
\end{document}
`

func mustProcessor(t *testing.T) *Processor {
	t.Helper()
	p, err := NewProcessor(latex.MarkerSpec{}, nil, time.Second)
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return p
}

func TestProcess_BypassWithoutReference(t *testing.T) {
	p := mustProcessor(t)
	var stages []JobStatus
	sections := 0
	res, err := p.Process(context.Background(), Input{Filename: "paper.tex", Data: []byte(paper)}, Hooks{
		Stage:   func(s JobStatus) { stages = append(stages, s) },
		Section: func() { sections++ },
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if res.Title != "A Study of Things" {
		t.Errorf("expected title from \\title, got %q", res.Title)
	}
	if res.Format != parser.FormatLaTeX {
		t.Errorf("expected latex format, got %q", res.Format)
	}
	if res.OutlineMode != OutlineBypass {
		t.Errorf("expected bypass, got %q", res.OutlineMode)
	}
	want := []string{"Abstract", "Introduction", "Related Work", "Older Work", "Conclusion"}
	if got := res.Sections.Keys(); !slices.Equal(got, want) {
		t.Fatalf("expected sections %v, got %v", want, got)
	}
	if sections != len(want) {
		t.Errorf("expected %d section callbacks, got %d", len(want), sections)
	}
	if !slices.Equal(stages, []JobStatus{StatusParsing, StatusFiltering, StatusNormalizing}) {
		t.Errorf("unexpected stage order %v", stages)
	}

	intro, _ := res.Sections.Get("Introduction")
	if intro != "Intro text with emphasis." {
		t.Errorf("unexpected introduction %q", intro)
	}
	abstract, _ := res.Sections.Get("Abstract")
	if !strings.Contains(abstract, "things") || !strings.Contains(abstract, "[citation]") || strings.Contains(abstract, `\`) {
		t.Errorf("abstract not normalized: %q", abstract)
	}
	for _, stage := range []string{"parse", "filter", "normalize"} {
		if _, ok := res.Timings[stage]; !ok {
			t.Errorf("missing timing for %s", stage)
		}
	}
}

func TestProcess_ExplicitOutlineCarriesForward(t *testing.T) {
	p := mustProcessor(t)
	res, err := p.Process(context.Background(), Input{
		Filename: "paper.tex",
		Data:     []byte(paper),
		Outline:  []string{"1 introduction", "Conclusion"},
		Title:    "Override",
	}, Hooks{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Title != "Override" {
		t.Errorf("expected title override, got %q", res.Title)
	}
	if res.OutlineMode != OutlineExplicit {
		t.Errorf("expected explicit mode, got %q", res.OutlineMode)
	}
	// Abstract survives through the fallback titles.
	if got := res.Sections.Keys(); !slices.Equal(got, []string{"Abstract", "Introduction", "Conclusion"}) {
		t.Fatalf("unexpected sections %v", got)
	}
	intro, _ := res.Sections.Get("Introduction")
	for _, want := range []string{"Intro text", "Prior art.", "Even older."} {
		if !strings.Contains(intro, want) {
			t.Errorf("expected %q carried into Introduction, got %q", want, intro)
		}
	}
	if res.Flat.Len() != 5 {
		t.Errorf("expected flat map untouched with 5 entries, got %d", res.Flat.Len())
	}
}

func TestProcess_MarkdownWhitespaceOnly(t *testing.T) {
	p := mustProcessor(t)
	md := "# Title\n\n## Methods\n\nWe   use \\textbf{raw}   text.\n"
	res, err := p.Process(context.Background(), Input{Filename: "notes.md", Data: []byte(md)}, Hooks{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Format != parser.FormatMarkdown {
		t.Errorf("expected markdown, got %q", res.Format)
	}
	got, ok := res.Sections.Get("Methods")
	if !ok {
		t.Fatalf("expected Methods section, got %v", res.Sections.Keys())
	}
	if got != `We use \textbf{raw} text.` {
		t.Errorf("expected whitespace collapsed only, got %q", got)
	}
}

func TestProcess_NoStructure(t *testing.T) {
	p := mustProcessor(t)
	_, err := p.Process(context.Background(), Input{Filename: "empty.tex", Data: nil}, Hooks{})
	if !errors.Is(err, parser.ErrNoStructure) {
		t.Fatalf("expected ErrNoStructure, got %v", err)
	}
	if Classify(err) != StatusSkipped {
		t.Errorf("expected skipped, got %s", Classify(err))
	}
}

func TestProcess_BlankSourceIsEmptyDocument(t *testing.T) {
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	tw := tar.NewWriter(zw)
	tw.WriteHeader(&tar.Header{Name: "main.tex", Mode: 0o644, Size: 3, Typeflag: tar.TypeReg})
	tw.Write([]byte("  \n"))
	tw.Close()
	zw.Close()

	p := mustProcessor(t)
	for name, data := range map[string][]byte{"blank.tex": []byte("  \n"), "blank.tar.gz": gz.Bytes()} {
		res, err := p.Process(context.Background(), Input{Filename: name, Data: data}, Hooks{})
		if err != nil {
			t.Errorf("%s: expected an empty document, got %v", name, err)
			continue
		}
		if res.Flat.Len() != 0 || res.Sections.Len() != 0 {
			t.Errorf("%s: expected no sections, got %v", name, res.Sections.Keys())
		}
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestProcess_ReferenceOutline(t *testing.T) {
	p := mustProcessor(t)
	res, err := p.Process(context.Background(), Input{
		Filename: "paper.tex",
		Data:     []byte(paper),
		PDF:      readFixture(t, "bookmarked.pdf"),
	}, Hooks{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.OutlineMode != OutlineReference {
		t.Fatalf("expected outline mode, got %q", res.OutlineMode)
	}
	wantOutline := []string{"Introduction", "Related Work", "Conclusion", "Abstract", "Conclusions"}
	if !slices.Equal(res.Outline, wantOutline) {
		t.Errorf("expected canonical outline %v, got %v", wantOutline, res.Outline)
	}
	if got := res.Sections.Keys(); !slices.Equal(got, []string{"Abstract", "Introduction", "Related Work", "Conclusion"}) {
		t.Fatalf("unexpected sections %v", got)
	}
	related, _ := res.Sections.Get("Related Work")
	if related != "Prior art.\nEven older." {
		t.Errorf("expected Older Work folded into Related Work, got %q", related)
	}
}

func TestProcess_ReferenceWithoutOwnBookmarksBypasses(t *testing.T) {
	p := mustProcessor(t)
	for _, fixture := range []string{"fallback-only.pdf", "no-bookmarks.pdf"} {
		res, err := p.Process(context.Background(), Input{
			Filename: "paper.tex",
			Data:     []byte(paper),
			PDF:      readFixture(t, fixture),
		}, Hooks{})
		if err != nil {
			t.Errorf("%s: %v", fixture, err)
			continue
		}
		if res.OutlineMode != OutlineBypass {
			t.Errorf("%s: expected bypass, got %q", fixture, res.OutlineMode)
		}
		if !slices.Equal(res.Outline, res.Flat.Keys()) || res.Sections.Len() != 5 {
			t.Errorf("%s: expected every flat section kept, got %v", fixture, res.Sections.Keys())
		}
	}
}

func TestProcess_UnsupportedFormat(t *testing.T) {
	p := mustProcessor(t)
	if _, err := p.Process(context.Background(), Input{Filename: "a.xls", Data: []byte("x")}, Hooks{}); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestProcess_UnreadableReference(t *testing.T) {
	p := mustProcessor(t)
	_, err := p.Process(context.Background(), Input{
		Filename: "paper.tex",
		Data:     []byte(paper),
		PDF:      []byte("not a pdf"),
	}, Hooks{})
	if !errors.Is(err, outline.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if Classify(err) != StatusFailed {
		t.Errorf("expected failed, got %s", Classify(err))
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	p := mustProcessor(t)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := p.Process(ctx, Input{Filename: "paper.tex", Data: []byte(paper)}, Hooks{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if Classify(err) != StatusSkipped {
		t.Errorf("expected skipped, got %s", Classify(err))
	}
}

func TestResolveOutline(t *testing.T) {
	flat := doctree.NewSections()
	flat.Set("Intro", "a")
	flat.Set("Method", "b")

	got, mode, err := ResolveOutline(flat, []string{"2.1 Method", " ", "Conclusion"}, nil, outline.DefaultFallback)
	want := []string{"Method", "Conclusion", "Abstract", "Conclusions"}
	if err != nil || mode != OutlineExplicit || !slices.Equal(got, want) {
		t.Errorf("explicit: expected %v, got %v %q %v", want, got, mode, err)
	}

	got, mode, err = ResolveOutline(flat, nil, nil, outline.DefaultFallback)
	if err != nil || mode != OutlineBypass || !slices.Equal(got, []string{"Intro", "Method"}) {
		t.Errorf("bypass: got %v %q %v", got, mode, err)
	}

	if _, _, err := ResolveOutline(flat, nil, []byte("%PDF-broken"), outline.DefaultFallback); !errors.Is(err, outline.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want JobStatus
	}{
		{parser.ErrNoStructure, StatusSkipped},
		{latex.ErrMatchTimeout, StatusSkipped},
		{context.DeadlineExceeded, StatusSkipped},
		{outline.ErrUnavailable, StatusFailed},
		{errors.New("boom"), StatusFailed},
	}
	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("%v: expected %s, got %s", tt.err, tt.want, got)
		}
	}
}
