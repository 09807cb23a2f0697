package chunker

import (
	"strings"

	"github.com/dgallion1/texgest/internal/doctree"
)

// fillRatio keeps a batch just under its budget to absorb estimation error.
const fillRatio = 0.98

// Batch is a run of consecutive chunks rendered for one prompt.
type Batch struct {
	Text   string   `json:"text"`
	Titles []string `json:"titles"`
	Tokens int      `json:"tokens"`
}

// Pack greedily groups consecutive chunks into batches whose estimated size
// stays below budget. Each chunk is rendered as "### <title>:\n<text>\n\n".
// A chunk larger than the budget forms a batch of its own.
func Pack(chunks []doctree.Chunk, budget int) []Batch {
	limit := int(float64(budget) * fillRatio)

	var batches []Batch
	var cur Batch
	var sb strings.Builder
	flush := func() {
		if sb.Len() == 0 {
			return
		}
		cur.Text = sb.String()
		batches = append(batches, cur)
		cur = Batch{}
		sb.Reset()
	}

	for _, c := range chunks {
		title := strings.Join(c.Breadcrumb, " > ")
		block := "### " + title + ":\n" + c.Text + "\n\n"
		tokens := EstimateTokens(block)

		if sb.Len() > 0 && cur.Tokens+tokens >= limit {
			flush()
		}
		sb.WriteString(block)
		cur.Tokens += tokens
		if len(cur.Titles) == 0 || cur.Titles[len(cur.Titles)-1] != title {
			cur.Titles = append(cur.Titles, title)
		}
	}
	flush()
	return batches
}
