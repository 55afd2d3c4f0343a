// Package tree turns a JSON value into an ordered tree of display nodes.
//
// Build classifies every (key, value) pair of a container into a Leaf or a
// Folder, recursing into objects and arrays in their enumeration order.
// Nodes are disposable: every Build returns fresh nodes whose Expanded flag
// is the requested default, and the only in-place mutation is Toggle.
package tree

import (
	"github.com/mattn/go-runewidth"

	"github.com/mcncl/jsonbrowse/internal/models"
)

// DefaultMaxDepth bounds recursion when building from pathological input.
const DefaultMaxDepth = 10000

// FolderPlaceholder is shown in place of a folder's content.
const FolderPlaceholder = "..."

// NodeKind separates terminal rows from expandable ones.
type NodeKind int

const (
	Leaf NodeKind = iota
	Folder
)

func (k NodeKind) String() string {
	if k == Folder {
		return "folder"
	}
	return "leaf"
}

// Icon names the glyph a renderer shows in front of a row. The names follow
// the Bootstrap icon set the page renderer uses.
type Icon string

const (
	IconFile       Icon = "file-earmark"
	IconNumber     Icon = "123"
	IconToggleOn   Icon = "toggle-on"
	IconToggleOff  Icon = "toggle-off"
	IconFolder     Icon = "folder"
	IconFolderOpen Icon = "folder2-open"
	IconNone       Icon = ""
)

// Node is one visual row.
type Node struct {
	Key          string
	Path         Path
	Kind         NodeKind
	ValueKind    models.Kind
	DisplayValue string
	Icon         Icon
	Children     []*Node
	Expanded     bool
	Depth        int
	// Align is the alignment hint the node was built with; zero means none.
	Align  int
	Parent *Node
}

// IsFolder reports whether n is expandable.
func (n *Node) IsFolder() bool { return n.Kind == Folder }

// Builder builds node trees. The zero Builder uses DefaultMaxDepth.
type Builder struct {
	MaxDepth int
}

func (b Builder) maxDepth() int {
	if b.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return b.MaxDepth
}

// Build returns one node per own key of value, in enumeration order.
// Scalars have no keys and produce no nodes.
func Build(value models.Value, expandDefault bool, alignHint int) []*Node {
	return Builder{}.Build(value, expandDefault, alignHint)
}

// BuildChildren classifies a single (key, value) pair.
func BuildChildren(key string, value models.Value, expandDefault bool, alignHint int) *Node {
	return Builder{}.BuildChildren(key, value, expandDefault, alignHint)
}

// Build returns one node per own key of value, in enumeration order.
func (b Builder) Build(value models.Value, expandDefault bool, alignHint int) []*Node {
	return b.buildEntries(value, nil, nil, 0, expandDefault, alignHint)
}

// BuildChildren classifies a single (key, value) pair as a root-level node.
func (b Builder) BuildChildren(key string, value models.Value, expandDefault bool, alignHint int) *Node {
	return b.buildNode(key, value, nil, nil, 0, expandDefault, alignHint)
}

func (b Builder) buildEntries(value models.Value, parent *Node, parentPath Path, depth int, expandDefault bool, alignHint int) []*Node {
	entries := value.Entries()
	if len(entries) == 0 {
		return nil
	}
	nodes := make([]*Node, 0, len(entries))
	for _, e := range entries {
		nodes = append(nodes, b.buildNode(e.Key, e.Value, parent, parentPath, depth, expandDefault, alignHint))
	}
	return nodes
}

func (b Builder) buildNode(key string, value models.Value, parent *Node, parentPath Path, depth int, expandDefault bool, alignHint int) *Node {
	n := &Node{
		Key:       key,
		Path:      parentPath.Child(key),
		ValueKind: value.Kind(),
		Depth:     depth,
		Align:     alignHint,
		Parent:    parent,
	}

	switch value.Kind() {
	case models.KindString:
		n.DisplayValue = value.Str()
		n.Icon = IconFile
	case models.KindNumber:
		n.DisplayValue = value.StringForm()
		n.Icon = IconNumber
	case models.KindBool:
		n.DisplayValue = value.StringForm()
		n.Icon = IconToggleOff
		if value.Boolean() {
			n.Icon = IconToggleOn
		}
	case models.KindNull:
		n.DisplayValue = "null"
		n.Icon = IconFile
	case models.KindObject, models.KindArray:
		if depth >= b.maxDepth() {
			n.ValueKind = models.KindOther
			n.DisplayValue = FolderPlaceholder
			n.Icon = IconNone
			return n
		}
		n.Kind = Folder
		n.DisplayValue = FolderPlaceholder
		n.Expanded = expandDefault
		n.Icon = folderIcon(expandDefault)
		n.Children = b.buildEntries(value, n, n.Path, depth+1, expandDefault, alignHint)
	default:
		n.DisplayValue = value.StringForm()
		n.Icon = IconNone
	}
	return n
}

func folderIcon(expanded bool) Icon {
	if expanded {
		return IconFolderOpen
	}
	return IconFolder
}

// Toggle flips the expanded flag of a folder. Descendants keep their own
// flags and leaves are left untouched.
func Toggle(n *Node) {
	if n == nil || n.Kind != Folder {
		return
	}
	n.Expanded = !n.Expanded
	n.Icon = folderIcon(n.Expanded)
}

// MaxKeyWidth returns the widest display width among all keys and array
// indices anywhere in value. Renderers use it to align the value column.
func MaxKeyWidth(value models.Value) int {
	width := 0
	var walk func(v models.Value, depth int)
	walk = func(v models.Value, depth int) {
		if depth > DefaultMaxDepth {
			return
		}
		for _, e := range v.Entries() {
			if w := runewidth.StringWidth(e.Key); w > width {
				width = w
			}
			if e.Value.Kind().IsContainer() {
				walk(e.Value, depth+1)
			}
		}
	}
	walk(value, 0)
	return width
}
