package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/texgest/internal/arxiv"
	"github.com/dgallion1/texgest/internal/pipeline"
)

const paper = `\documentclass{article}
\title{Sample Paper}
\begin{document}
\section{Introduction}
See \textbf{this}.
\section{Method}
We \emph{do} it.
\section{Conclusion}
Done.
\end{document}
`

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testProcessor(t *testing.T) *pipeline.Processor {
	t.Helper()
	proc, err := newProcessor()
	if err != nil {
		t.Fatalf("newProcessor: %v", err)
	}
	return proc
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExtract_JSON(t *testing.T) {
	path := writeFile(t, "paper.tex", paper)
	var buf bytes.Buffer
	err := runExtract(context.Background(), &buf, testProcessor(t), path, extractOptions{Outline: "Method;Conclusion", JSON: true}, quiet())
	if err != nil {
		t.Fatalf("runExtract: %v", err)
	}

	var doc struct {
		Title       string            `json:"title"`
		OutlineMode string            `json:"outline_mode"`
		Nodes       int               `json:"nodes"`
		Found       int               `json:"sections_found"`
		Preamble    string            `json:"preamble"`
		Sections    map[string]string `json:"sections"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if doc.Title != "Sample Paper" || doc.OutlineMode != pipeline.OutlineExplicit || doc.Found != 3 || doc.Nodes != 3 {
		t.Errorf("unexpected document %+v", doc)
	}
	if doc.Preamble != "" {
		t.Errorf("expected preamble only in raw mode, got %q", doc.Preamble)
	}
	if doc.Sections["Method"] != "We do it." {
		t.Errorf("expected normalized Method, got %q", doc.Sections["Method"])
	}
	if _, ok := doc.Sections["Introduction"]; ok {
		t.Error("expected Introduction dropped as front matter")
	}
}

func TestRunExtract_RawKeepsMarkup(t *testing.T) {
	path := writeFile(t, "paper.tex", paper)
	var buf bytes.Buffer
	if err := runExtract(context.Background(), &buf, testProcessor(t), path, extractOptions{Raw: true, JSON: true}, quiet()); err != nil {
		t.Fatalf("runExtract: %v", err)
	}
	if !strings.Contains(buf.String(), `\\emph{do}`) {
		t.Errorf("expected raw LaTeX in output, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"preamble": "\\documentclass{article}`) {
		t.Errorf("expected raw preamble in output, got %s", buf.String())
	}
}

func TestRunExtract_Styled(t *testing.T) {
	path := writeFile(t, "paper.tex", paper)
	var buf bytes.Buffer
	if err := runExtract(context.Background(), &buf, testProcessor(t), path, extractOptions{}, quiet()); err != nil {
		t.Fatalf("runExtract: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Sample Paper", "Introduction", "See this.", "3 of 3 sections · 3 nodes"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRunExtract_NoStructure(t *testing.T) {
	path := writeFile(t, "empty.tex", "")
	err := runExtract(context.Background(), io.Discard, testProcessor(t), path, extractOptions{}, quiet())
	if err == nil || !strings.HasPrefix(err.Error(), string(pipeline.StatusSkipped)) {
		t.Fatalf("expected skipped error, got %v", err)
	}
}

func TestRunFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/e-print/2301.00001") {
			io.WriteString(w, paper)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	out := t.TempDir()
	var buf bytes.Buffer
	client := arxiv.NewClient(srv.URL, srv.URL)
	err := runFetch(context.Background(), &buf, client, testProcessor(t),
		[]string{"2301.00001", "2301.00002", "not-an-id"},
		fetchOptions{Parallel: 2, Out: out, NoPDF: true}, quiet())
	if err == nil || !strings.Contains(err.Error(), "2 of 3") {
		t.Fatalf("expected two failures, got %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "2301.00001.json"))
	if err != nil {
		t.Fatalf("expected output file: %v", err)
	}
	if !strings.Contains(string(data), `"arxiv_id": "2301.00001"`) || !strings.Contains(string(data), `"outline_mode": "bypass"`) {
		t.Errorf("unexpected output %s", data)
	}
	summary := buf.String()
	if strings.Count(summary, "\n") != 3 {
		t.Errorf("expected one summary line per id, got %q", summary)
	}
}

func TestNormalizeCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetArgs([]string{"normalize"})
	rootCmd.SetIn(strings.NewReader(`Some \textbf{bold} text \cite{x}.`))
	rootCmd.SetOut(&out)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Some bold text [citation]." {
		t.Errorf("unexpected output %q", got)
	}
}
