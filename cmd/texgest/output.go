package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgallion1/texgest/internal/doctree"
	"github.com/dgallion1/texgest/internal/pipeline"
)

var (
	// headerStyle boxes the document title
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	// sectionStyle for section titles
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// document is the JSON form written by extract and fetch.
type document struct {
	ArxivID     string            `json:"arxiv_id,omitempty"`
	Title       string            `json:"title"`
	Format      string            `json:"format"`
	OutlineMode string            `json:"outline_mode"`
	Outline     []string          `json:"outline"`
	Nodes       int               `json:"nodes"`
	Found       int               `json:"sections_found"`
	Preamble    string            `json:"preamble,omitempty"`
	Sections    *doctree.Sections `json:"sections"`
	Timings     map[string]int64  `json:"timings_ms"`
}

func newDocument(res *pipeline.Result, sections *doctree.Sections) document {
	return document{
		Title:       res.Title,
		Format:      res.Format,
		OutlineMode: res.OutlineMode,
		Outline:     res.Outline,
		Nodes:       res.Tree.Count(),
		Found:       res.Flat.Len(),
		Sections:    sections,
		Timings:     res.Timings,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderDocument(w io.Writer, doc document) {
	fmt.Fprintln(w, headerStyle.Render(doc.Title))
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%s · %s outline · %d of %d sections · %d nodes",
		doc.Format, doc.OutlineMode, doc.Sections.Len(), doc.Found, doc.Nodes)))
	if doc.Preamble != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render("Preamble"))
		fmt.Fprintln(w, doc.Preamble)
	}
	for title, text := range doc.Sections.All() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, sectionStyle.Render(title))
		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(w, dimStyle.Render("(empty)"))
			continue
		}
		fmt.Fprintln(w, text)
	}
}

// fetchResult is one line of the fetch summary.
type fetchResult struct {
	ID       string
	Path     string
	Sections int
	Err      error
}

func renderFetchSummary(w io.Writer, results []fetchResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("✗"), r.ID, dimStyle.Render(r.Err.Error()))
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", successStyle.Render("✓"), r.ID,
			dimStyle.Render(fmt.Sprintf("%d sections → %s", r.Sections, r.Path)))
	}
}
