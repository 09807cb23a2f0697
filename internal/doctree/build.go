package doctree

// Build turns a token stream into the forest of top-level sections.
func Build(tokens []Token) []*Node {
	return build(tokens).Children
}

// BuildTree is Build plus the document-level fields. Text that precedes the
// first marker is kept as the preamble.
func BuildTree(title, format string, tokens []Token) *DocTree {
	root := build(tokens)
	return &DocTree{
		Title:    title,
		Format:   format,
		Preamble: root.Text,
		Children: root.Children,
	}
}

func build(tokens []Token) *Node {
	// Root is level 0: every marker level is positive, so it is never popped.
	root := &Node{Title: "root"}
	stack := []*Node{root}

	for _, tok := range tokens {
		if tok.Kind == TextRun {
			stack[len(stack)-1].Text += tok.Content()
			continue
		}

		level := tok.Level
		if level <= 0 {
			level = LeafLevel
		}

		// Equal levels are siblings, so pop while top >= level.
		for len(stack) > 1 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}

		n := &Node{
			Title:  tok.Title,
			Name:   tok.Name,
			Level:  level,
			Offset: tok.Offset,
		}
		if tok.Marker == Environment {
			n.Text = tok.Content()
		}
		parent := stack[len(stack)-1]
		parent.Children = append(parent.Children, n)
		stack = append(stack, n)
	}
	return root
}
