package chunker

import (
	"strings"

	"github.com/dgallion1/texgest/internal/doctree"
)

// Config controls chunking behavior. Zero fields fall back to DefaultConfig.
type Config struct {
	ChunkSize    int // Target chunk size in tokens.
	ChunkOverlap int // Overlap between consecutive chunks in tokens.
	MinChunk     int // Chunks estimated below this are dropped.
}

// DefaultConfig returns the default chunking parameters.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		MinChunk:     100,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.ChunkOverlap <= 0 {
		c.ChunkOverlap = def.ChunkOverlap
	}
	if c.MinChunk <= 0 {
		c.MinChunk = def.MinChunk
	}
	return c
}

// ChunkSections splits each section into token-budgeted chunks. Every chunk
// carries its section title as breadcrumb; indexes run across the document.
func ChunkSections(sections *doctree.Sections, cfg Config) []doctree.Chunk {
	cfg = cfg.withDefaults()

	var chunks []doctree.Chunk
	for title, text := range sections.All() {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		parts := []string{text}
		if EstimateTokens(text) > cfg.ChunkSize {
			parts = split(text, cfg.ChunkSize, cfg.ChunkOverlap)
		}
		var crumb []string
		if title != "" {
			crumb = []string{title}
		}
		for _, part := range parts {
			n := EstimateTokens(part)
			if n < cfg.MinChunk {
				continue
			}
			chunks = append(chunks, doctree.Chunk{
				Text:       part,
				Index:      len(chunks),
				Breadcrumb: crumb,
				Tokens:     n,
			})
		}
	}
	return chunks
}

// split packs paragraphs into windows of about target tokens. A paragraph
// that alone exceeds the target is packed sentence by sentence instead.
func split(text string, target, overlap int) []string {
	var out []string
	paras := window{target: target, overlap: overlap, sep: "\n\n"}
	for p := range strings.SplitSeq(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if EstimateTokens(p) <= target {
			paras.add(p)
			continue
		}
		out = append(out, paras.flush()...)
		sents := window{target: target, overlap: overlap, sep: " "}
		for _, s := range sentences(p) {
			sents.add(s)
		}
		out = append(out, sents.flush()...)
	}
	return append(out, paras.flush()...)
}

// window accumulates units up to a token target. Each chunk after the first
// is seeded with the tail of its predecessor.
type window struct {
	target  int
	overlap int
	sep     string

	buf    strings.Builder
	tokens int
	out    []string
}

func (w *window) add(unit string) {
	n := EstimateTokens(unit)
	if w.tokens > 0 && w.tokens+n > w.target {
		prev := w.buf.String()
		w.out = append(w.out, prev)
		w.buf.Reset()
		w.tokens = 0
		if tail := tailWords(prev, w.overlap); tail != "" {
			w.buf.WriteString(tail)
			w.tokens = EstimateTokens(tail)
		}
	}
	if w.buf.Len() > 0 {
		w.buf.WriteString(w.sep)
	}
	w.buf.WriteString(unit)
	w.tokens += n
}

// flush returns the completed chunks, including the pending one, and resets
// the window without carrying overlap.
func (w *window) flush() []string {
	if w.tokens > 0 {
		w.out = append(w.out, w.buf.String())
	}
	out := w.out
	w.out = nil
	w.buf.Reset()
	w.tokens = 0
	return out
}

// sentences splits at '.', '!' or '?' followed by a space.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				out = append(out, strings.TrimSpace(text[start:i+1]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
