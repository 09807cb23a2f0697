package parser

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/texgest/internal/doctree"
	"github.com/dgallion1/texgest/internal/latex"
)

const paper = `\documentclass{article}
\title{Deep \\ Things}
\begin{document}
\maketitle
\begin{abstract}
We study things.
\end{abstract}
\section{Introduction}
Intro text.
\subsection{Background}
Background text.
\section{Conclusion}
Done.
\end{document}
`

func TestLaTeXParser_Tree(t *testing.T) {
	p, err := NewLaTeXParser(Options{})
	if err != nil {
		t.Fatalf("NewLaTeXParser: %v", err)
	}
	tree, err := p.Parse(strings.NewReader(paper), "paper.tex")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree.Title != "Deep Things" {
		t.Errorf("expected title from \\title, got %q", tree.Title)
	}
	if tree.Format != FormatLaTeX || !IsLaTeX(tree.Format) {
		t.Errorf("unexpected format %q", tree.Format)
	}
	if !strings.Contains(tree.Preamble, `\documentclass`) {
		t.Errorf("expected preamble to keep front matter, got %q", tree.Preamble)
	}

	flat := doctree.Flatten(tree.Children)
	want := []string{"Abstract", "Introduction", "Background", "Conclusion"}
	if got := flat.Keys(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("expected keys %v, got %v", want, got)
	}
	if v, _ := flat.Get("Abstract"); v != "We study things." {
		t.Errorf("unexpected abstract %q", v)
	}
	if v, _ := flat.Get("Conclusion"); v != `Done.
\end{document}` {
		t.Errorf("unexpected conclusion %q", v)
	}
	// Environments rank above sections, so the sections nest under Abstract.
	if len(tree.Children) != 1 || len(tree.Children[0].Children) != 2 {
		t.Fatalf("expected abstract{introduction, conclusion}, got %d top-level", len(tree.Children))
	}
	if intro := tree.Children[0].Children[0]; len(intro.Children) != 1 || intro.Children[0].Title != "Background" {
		t.Errorf("expected background under introduction")
	}
}

func TestLaTeXParser_Bundle(t *testing.T) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	body := []byte(`\section{Only}text`)
	tw.WriteHeader(&tar.Header{Name: "main.tex", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg})
	tw.Write(body)
	tw.Close()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write(tarBuf.Bytes())
	zw.Close()

	p, _ := NewLaTeXParser(Options{})
	tree, err := p.Parse(&gz, "2301.01234.tar.gz")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tree.Title != "2301.01234" {
		t.Errorf("expected filename title, got %q", tree.Title)
	}
	if len(tree.Children) != 1 || tree.Children[0].Title != "Only" {
		t.Errorf("unexpected tree %+v", tree.Children)
	}
}

func TestLaTeXParser_NoStructure(t *testing.T) {
	p, _ := NewLaTeXParser(Options{})
	if _, err := p.Parse(strings.NewReader(""), "x.tex"); !errors.Is(err, ErrNoStructure) {
		t.Errorf("expected ErrNoStructure for empty input, got %v", err)
	}

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	tw.WriteHeader(&tar.Header{Name: "README", Mode: 0o644, Size: 2, Typeflag: tar.TypeReg})
	tw.Write([]byte("hi"))
	tw.Close()
	if _, err := p.Parse(&tarBuf, "x.tar"); !errors.Is(err, ErrNoStructure) {
		t.Errorf("expected ErrNoStructure for bundle without .tex, got %v", err)
	}

	if _, err := p.Parse(bytes.NewReader([]byte{0x1f, 0x8b, 0x00}), "x.tar.gz"); !errors.Is(err, ErrNoStructure) {
		t.Errorf("expected ErrNoStructure for undecodable archive, got %v", err)
	}
}

func TestLaTeXParser_BlankSourceIsEmptyDocument(t *testing.T) {
	p, _ := NewLaTeXParser(Options{})

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	tw := tar.NewWriter(zw)
	tw.WriteHeader(&tar.Header{Name: "main.tex", Mode: 0o644, Size: 3, Typeflag: tar.TypeReg})
	tw.Write([]byte("  \n"))
	tw.Close()
	zw.Close()

	inputs := map[string][]byte{
		"blank.tex":    []byte("  \n"),
		"blank.tar.gz": gz.Bytes(),
	}
	for name, data := range inputs {
		tree, err := p.Parse(bytes.NewReader(data), name)
		if err != nil {
			t.Errorf("%s: expected empty document, got %v", name, err)
			continue
		}
		if len(tree.Children) != 0 || tree.Title != "blank" {
			t.Errorf("%s: expected untitled empty tree, got %+v", name, tree)
		}
	}
}

func TestLaTeXParser_CustomMarkers(t *testing.T) {
	spec, err := latex.NewMarkerSpec(map[string]int{"lecture": 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewLaTeXParser(Options{Markers: spec})
	if err != nil {
		t.Fatal(err)
	}
	tree, err := p.Parse(strings.NewReader(`\lecture{One} a \section{Ignored} b`), "l.tex")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tree.Children) != 1 || tree.Children[0].Title != "One" {
		t.Fatalf("unexpected tree %+v", tree.Children)
	}
	if !strings.Contains(tree.Children[0].Text, `\section{Ignored}`) {
		t.Errorf("expected undeclared command to stay in text, got %q", tree.Children[0].Text)
	}
}

func TestForFile(t *testing.T) {
	cases := map[string]string{
		"a.tex":    "*parser.LaTeXParser",
		"a.tar.gz": "*parser.LaTeXParser",
		"a.TGZ":    "*parser.LaTeXParser",
		"a.md":     "*parser.MarkdownParser",
		"a.htm":    "*parser.HTMLParser",
		"a.docx":   "*parser.DOCXParser",
	}
	for name, want := range cases {
		p, err := ForFile(name, Options{})
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if got := typeName(p); got != want {
			t.Errorf("%s: expected %s, got %s", name, want, got)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("%s: expected supported", name)
		}
	}
	if _, err := ForFile("a.pdf", Options{}); err == nil {
		t.Error("expected error for .pdf")
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *LaTeXParser:
		return "*parser.LaTeXParser"
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	}
	return "unknown"
}
