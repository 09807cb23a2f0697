package doctree

import "strings"

// Flatten walks the forest depth-first, pre-order, and maps every title to its
// trimmed content. A repeated title appends to the first entry with a newline.
func Flatten(nodes []*Node) *Sections {
	out := NewSections()
	for _, n := range nodes {
		n.Walk(func(n *Node) {
			out.Append(n.Title, strings.TrimSpace(n.Text))
		})
	}
	return out
}
