package doctree

// LeafLevel is the level assigned to markers missing from the level tables.
// It ranks below every declared level so unknown markers always nest.
const LeafLevel = 100

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string  // Document title (from metadata or filename)
	Format   string  // Source format ("latex", "markdown", "html", "docx")
	Preamble string  // Text before the first marker; never emitted as a section
	Children []*Node // Top-level sections
}

// Node is a recursive section in the document tree.
type Node struct {
	Title    string  // Section heading
	Name     string  // Marker name that opened the section, lower-cased
	Level    int     // Nesting level; lower is more significant
	Offset   int     // Byte offset of the opening marker in the source
	Text     string  // Accumulated raw content
	Children []*Node // Subsections
}

// Walk visits n and its descendants depth-first, pre-order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Count returns the number of nodes in the tree, excluding the synthetic root.
func (t *DocTree) Count() int {
	n := 0
	for _, c := range t.Children {
		c.Walk(func(*Node) { n++ })
	}
	return n
}

// Chunk is a sized text segment with structural context, ready for a prompt.
type Chunk struct {
	Text       string   `json:"text"`       // Chunk text content
	Index      int      `json:"index"`      // Sequence number within document
	Breadcrumb []string `json:"breadcrumb"` // Heading hierarchy, e.g. ["Methods"]
	Tokens     int      `json:"tokens"`     // Estimated token count
}
