// Package render draws built node trees as text outlines.
package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/mcncl/jsonbrowse/internal/tree"
)

// Options control the outline.
type Options struct {
	Color     bool
	ShowTypes bool
	// All draws the children of collapsed folders as well.
	All bool
}

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleBranch = lipgloss.NewStyle().Foreground(colorDim)
	styleKey    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleString = lipgloss.NewStyle().Foreground(colorWhite)
	styleNumber = lipgloss.NewStyle().Foreground(colorYellow)
	styleTrue   = lipgloss.NewStyle().Foreground(colorGreen)
	styleFalse  = lipgloss.NewStyle().Foreground(colorRed)
	styleMuted  = lipgloss.NewStyle().Foreground(colorGray)
)

var glyphs = map[tree.Icon]string{
	tree.IconFile:       "≡",
	tree.IconNumber:     "#",
	tree.IconToggleOn:   "●",
	tree.IconToggleOff:  "○",
	tree.IconFolder:     "□",
	tree.IconFolderOpen: "▣",
	tree.IconNone:       " ",
}

// Glyph returns the single-cell character drawn for icon.
func Glyph(icon tree.Icon) string {
	if g, ok := glyphs[icon]; ok {
		return g
	}
	return " "
}

// Indicator returns ▾ for an expanded folder, ▸ for a collapsed one and •
// for everything else.
func Indicator(n *tree.Node) string {
	if !n.IsFolder() {
		return "•"
	}
	if n.Expanded {
		return "▾"
	}
	return "▸"
}

// Renderer draws the rows of one build.
type Renderer struct {
	roots []*tree.Node
	opts  Options
}

// New creates a Renderer for the given roots.
func New(roots []*tree.Node, opts Options) *Renderer {
	return &Renderer{roots: roots, opts: opts}
}

// Text is shorthand for New(roots, opts).Render().
func Text(roots []*tree.Node, opts Options) string {
	return New(roots, opts).Render()
}

// Rows returns the nodes the outline draws, in order.
func (r *Renderer) Rows() []*tree.Node {
	var out []*tree.Node
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		out = append(out, n)
		if n.Expanded || r.opts.All {
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	for _, n := range r.roots {
		walk(n)
	}
	return out
}

// Render returns the whole outline, one line per row.
func (r *Renderer) Render() string {
	var b strings.Builder
	for _, n := range r.Rows() {
		b.WriteString(r.Line(n))
		b.WriteByte('\n')
	}
	return b.String()
}

// Line renders a single row without a trailing newline.
func (r *Renderer) Line(n *tree.Node) string {
	var b strings.Builder
	b.WriteString(r.paint(styleBranch, r.Prefix(n)))
	b.WriteString(r.paint(styleMuted, Indicator(n)))
	b.WriteByte(' ')
	b.WriteString(r.paint(iconStyle(n.Icon), Glyph(n.Icon)))
	b.WriteByte(' ')

	key := n.Key
	if n.Align > 0 {
		key = runewidth.FillRight(key, n.Align)
	}
	b.WriteString(r.paint(styleKey, key))

	if value := r.value(n); value != "" {
		b.WriteString("  ")
		b.WriteString(value)
	}
	if r.opts.ShowTypes {
		b.WriteString(r.paint(styleMuted, " ("+n.ValueKind.String()+")"))
	}
	return strings.TrimRight(b.String(), " ")
}

func (r *Renderer) value(n *tree.Node) string {
	if n.IsFolder() {
		if n.Expanded || r.opts.All {
			return ""
		}
		return r.paint(styleMuted, n.DisplayValue)
	}
	switch n.Icon {
	case tree.IconNumber:
		return r.paint(styleNumber, n.DisplayValue)
	case tree.IconToggleOn:
		return r.paint(styleTrue, n.DisplayValue)
	case tree.IconToggleOff:
		return r.paint(styleFalse, n.DisplayValue)
	case tree.IconNone:
		return r.paint(styleMuted, n.DisplayValue)
	}
	return r.paint(styleString, n.DisplayValue)
}

// Prefix returns the branch drawing in front of n. Top-level rows have none.
func (r *Renderer) Prefix(n *tree.Node) string {
	if n.Parent == nil {
		return ""
	}
	var parts []string
	if r.isLast(n) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}
	for a := n.Parent; a != nil && a.Parent != nil; a = a.Parent {
		if r.isLast(a) {
			parts = append(parts, "    ")
		} else {
			parts = append(parts, "│   ")
		}
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	return b.String()
}

func (r *Renderer) isLast(n *tree.Node) bool {
	siblings := r.roots
	if n.Parent != nil {
		siblings = n.Parent.Children
	}
	return len(siblings) > 0 && siblings[len(siblings)-1] == n
}

func (r *Renderer) paint(style lipgloss.Style, s string) string {
	if !r.opts.Color || s == "" {
		return s
	}
	return style.Render(s)
}

func iconStyle(icon tree.Icon) lipgloss.Style {
	switch icon {
	case tree.IconToggleOn:
		return styleTrue
	case tree.IconToggleOff:
		return styleFalse
	case tree.IconNumber:
		return styleNumber
	case tree.IconFolder, tree.IconFolderOpen:
		return styleKey
	}
	return styleMuted
}
