package tree

// Tree holds the roots of one build and indexes every node by path, so a
// single node can be toggled without rebuilding.
type Tree struct {
	roots []*Node
	index map[string]*Node
	size  int
}

// NewTree indexes roots.
func NewTree(roots []*Node) *Tree {
	t := &Tree{roots: roots, index: make(map[string]*Node)}
	var walk func(n *Node)
	walk = func(n *Node) {
		t.index[n.Path.String()] = n
		t.size++
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return t
}

// Roots returns the top-level nodes.
func (t *Tree) Roots() []*Node {
	if t == nil {
		return nil
	}
	return t.roots
}

// Len returns the total number of nodes, visible or not.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Find returns the node at path.
func (t *Tree) Find(path Path) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.index[path.String()]
	return n, ok
}

// ToggleAt toggles the folder at path. It reports false when there is no
// folder at that path.
func (t *Tree) ToggleAt(path Path) bool {
	n, ok := t.Find(path)
	if !ok || !n.IsFolder() {
		return false
	}
	Toggle(n)
	return true
}

// Visible returns the rows a renderer shows: every root plus the children
// of expanded folders, in pre-order.
func (t *Tree) Visible() []*Node {
	if t == nil {
		return nil
	}
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		if n.Expanded {
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	for _, r := range t.roots {
		walk(r)
	}
	return out
}
