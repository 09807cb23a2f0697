package outline

import (
	"strings"

	"github.com/dgallion1/texgest/internal/doctree"
)

// Filter keeps the sections whose titles appear in canonical (case-insensitive)
// and folds every other section into the most recent kept one. Sections before
// the first kept one are dropped. An empty canonical outline keeps nothing.
//
// Output keys are the section titles as they appear in flat, in flat's order.
func Filter(flat *doctree.Sections, canonical []string) *doctree.Sections {
	out := doctree.NewSections()
	if len(canonical) == 0 || flat == nil {
		return out
	}

	known := make(map[string]struct{}, len(canonical))
	for _, c := range canonical {
		known[strings.ToLower(c)] = struct{}{}
	}

	anchor := ""
	anchored := false
	for title, content := range flat.All() {
		if _, ok := known[strings.ToLower(title)]; ok {
			anchor, anchored = title, true
			out.Append(anchor, content)
			continue
		}
		if anchored {
			out.Append(anchor, content)
		}
	}
	return out
}
