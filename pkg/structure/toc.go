package structure

// tocNode is an arena slot; children are indexes into the same arena.
type tocNode struct {
	heading  HeadingOccurrence
	children []int
}

// BuildTOC nests headings into a forest.
//
// A heading closes every open entry at its own level or deeper, then attaches under
// whatever is left on top of the ancestor stack (or becomes a new root). Skipped
// levels produce no synthetic nodes: H1 followed by H4 makes the H4 a direct child.
func BuildTOC(headings []HeadingOccurrence) []TOCItem {
	if len(headings) == 0 {
		return []TOCItem{}
	}

	arena := make([]tocNode, 0, len(headings))
	var roots []int
	stack := make([]int, 0, 6)

	for _, h := range headings {
		for len(stack) > 0 && arena[stack[len(stack)-1]].heading.Level >= h.Level {
			stack = stack[:len(stack)-1]
		}

		idx := len(arena)
		arena = append(arena, tocNode{heading: h})

		if len(stack) == 0 {
			roots = append(roots, idx)
		} else {
			parent := stack[len(stack)-1]
			arena[parent].children = append(arena[parent].children, idx)
		}
		stack = append(stack, idx)
	}

	items := make([]TOCItem, len(roots))
	for i, r := range roots {
		items[i] = materialize(arena, r)
	}
	return items
}

func materialize(arena []tocNode, idx int) TOCItem {
	n := arena[idx]
	item := TOCItem{
		ID:       n.heading.ID,
		Title:    n.heading.Title,
		Level:    n.heading.Level,
		Children: make([]TOCItem, len(n.children)),
	}
	for i, c := range n.children {
		item.Children[i] = materialize(arena, c)
	}
	return item
}

// FlattenTOC lists every entry of the forest in document (pre-order) order.
// The returned items have no children.
func FlattenTOC(items []TOCItem) []TOCItem {
	flat := make([]TOCItem, 0, len(items))
	var walk func([]TOCItem)
	walk = func(nodes []TOCItem) {
		for _, n := range nodes {
			flat = append(flat, TOCItem{ID: n.ID, Title: n.Title, Level: n.Level, Children: []TOCItem{}})
			walk(n.Children)
		}
	}
	walk(items)
	return flat
}

// TOCDepth returns the number of nesting levels in the forest (0 for an empty forest).
func TOCDepth(items []TOCItem) int {
	depth := 0
	for _, item := range items {
		if d := 1 + TOCDepth(item.Children); d > depth {
			depth = d
		}
	}
	return depth
}
