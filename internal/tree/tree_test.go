package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mcncl/jsonbrowse/internal/models"
	"github.com/mcncl/jsonbrowse/internal/parser"
	"github.com/mcncl/jsonbrowse/internal/testutil"
)

func mustParse(t *testing.T, s string) models.Value {
	t.Helper()
	doc, err := parser.ParseString(s)
	require.NoError(t, err)
	return doc.Root
}

func TestBuild_ObjectWithNestedFolder(t *testing.T) {
	nodes := Build(mustParse(t, `{"a": 1, "b": {"c": true}}`), false, 0)

	require.Len(t, nodes, 2)

	a := nodes[0]
	assert.Equal(t, "a", a.Key)
	assert.Equal(t, Leaf, a.Kind)
	assert.Equal(t, models.KindNumber, a.ValueKind)
	assert.Equal(t, "1", a.DisplayValue)
	assert.Equal(t, IconNumber, a.Icon)

	b := nodes[1]
	assert.Equal(t, "b", b.Key)
	assert.Equal(t, Folder, b.Kind)
	assert.False(t, b.Expanded)
	assert.Equal(t, FolderPlaceholder, b.DisplayValue)
	assert.Equal(t, IconFolder, b.Icon)
	require.Len(t, b.Children, 1)

	c := b.Children[0]
	assert.Equal(t, "c", c.Key)
	assert.Equal(t, Leaf, c.Kind)
	assert.Equal(t, models.KindBool, c.ValueKind)
	assert.Equal(t, "true", c.DisplayValue)
	assert.Equal(t, IconToggleOn, c.Icon)
	assert.Same(t, b, c.Parent)
	assert.Equal(t, 1, c.Depth)
	assert.Equal(t, "/b/c", c.Path.String())
}

func TestBuildChildren_Classification(t *testing.T) {
	tests := []struct {
		name      string
		value     models.Value
		kind      NodeKind
		valueKind models.Kind
		display   string
		icon      Icon
	}{
		{"string kept verbatim", models.String("<b>hi</b>"), Leaf, models.KindString, "<b>hi</b>", IconFile},
		{"number canonical", models.Number("2.50"), Leaf, models.KindNumber, "2.5", IconNumber},
		{"true", models.Bool(true), Leaf, models.KindBool, "true", IconToggleOn},
		{"false", models.Bool(false), Leaf, models.KindBool, "false", IconToggleOff},
		{"null", models.Null(), Leaf, models.KindNull, "null", IconFile},
		{"empty object", models.Object(), Folder, models.KindObject, FolderPlaceholder, IconFolder},
		{"array", models.Array(models.Float(1)), Folder, models.KindArray, FolderPlaceholder, IconFolder},
		{"other", models.Other(42i), Leaf, models.KindOther, "(0+42i)", IconNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := BuildChildren("k", tt.value, false, 7)
			assert.Equal(t, "k", n.Key)
			assert.Equal(t, tt.kind, n.Kind)
			assert.Equal(t, tt.valueKind, n.ValueKind)
			assert.Equal(t, tt.display, n.DisplayValue)
			assert.Equal(t, tt.icon, n.Icon)
			assert.Equal(t, 7, n.Align)
			assert.Nil(t, n.Parent)
		})
	}
}

func TestBuild_ArrayIndicesAsKeys(t *testing.T) {
	nodes := Build(mustParse(t, `[10, [20, 30]]`), true, 0)

	require.Len(t, nodes, 2)
	assert.Equal(t, "0", nodes[0].Key)
	assert.Equal(t, "1", nodes[1].Key)
	assert.True(t, nodes[1].Expanded)
	assert.Equal(t, IconFolderOpen, nodes[1].Icon)
	require.Len(t, nodes[1].Children, 2)
	assert.Equal(t, "/1/1", nodes[1].Children[1].Path.String())
}

func TestBuild_PreservesOrder(t *testing.T) {
	nodes := Build(mustParse(t, `{"zeta": 1, "alpha": 2, "mid": 3}`), false, 0)
	var got []string
	for _, n := range nodes {
		got = append(got, n.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, got)
}

func TestBuild_ScalarRootHasNoRows(t *testing.T) {
	assert.Empty(t, Build(models.String("abc"), false, 0))
	assert.Empty(t, Build(models.Null(), true, 0))
	assert.Empty(t, Build(models.Object(), true, 0))
}

func TestBuild_MaxDepthGuard(t *testing.T) {
	v := mustParse(t, `{"a": {"b": {"c": 1}}}`)
	nodes := Builder{MaxDepth: 1}.Build(v, true, 0)

	a := nodes[0]
	require.Equal(t, Folder, a.Kind)
	b := a.Children[0]
	assert.Equal(t, Leaf, b.Kind)
	assert.Equal(t, models.KindOther, b.ValueKind)
	assert.Equal(t, FolderPlaceholder, b.DisplayValue)
	assert.Empty(t, b.Children)
}

func TestToggle(t *testing.T) {
	nodes := Build(mustParse(t, `{"outer": {"inner": {"x": 1}}, "sib": {"y": 2}}`), false, 0)
	outer, sib := nodes[0], nodes[1]
	inner := outer.Children[0]

	Toggle(outer)
	assert.True(t, outer.Expanded)
	assert.Equal(t, IconFolderOpen, outer.Icon)
	assert.False(t, inner.Expanded, "descendant keeps its own state")
	assert.False(t, sib.Expanded, "sibling untouched")

	Toggle(outer)
	assert.False(t, outer.Expanded)
	assert.Equal(t, IconFolder, outer.Icon)

	leaf := inner.Children[0]
	Toggle(leaf)
	assert.False(t, leaf.Expanded)
	Toggle(nil)
}

func TestTree_FindToggleVisible(t *testing.T) {
	tr := NewTree(Build(mustParse(t, `{"a": {"b": [1, 2]}, "c": 3}`), false, 0))

	assert.Equal(t, 5, tr.Len())
	assert.Len(t, tr.Visible(), 2)

	assert.True(t, tr.ToggleAt(Path{"a"}))
	assert.Len(t, tr.Visible(), 3)

	assert.True(t, tr.ToggleAt(Path{"a", "b"}))
	visible := tr.Visible()
	require.Len(t, visible, 5)
	assert.Equal(t, []string{"a", "b", "0", "1", "c"}, []string{
		visible[0].Key, visible[1].Key, visible[2].Key, visible[3].Key, visible[4].Key,
	})

	assert.False(t, tr.ToggleAt(Path{"c"}), "leaf cannot toggle")
	assert.False(t, tr.ToggleAt(Path{"missing"}))

	n, ok := tr.Find(Path{"a", "b", "1"})
	require.True(t, ok)
	assert.Equal(t, "2", n.DisplayValue)

	var nilTree *Tree
	assert.Nil(t, nilTree.Visible())
	assert.Equal(t, 0, nilTree.Len())
}

func TestMaxKeyWidth(t *testing.T) {
	assert.Equal(t, 0, MaxKeyWidth(models.Object()))
	assert.Equal(t, 5, MaxKeyWidth(mustParse(t, `{"a": {"short": 1, "xy": [1]}}`)))
	assert.Equal(t, 6, MaxKeyWidth(mustParse(t, `{"日本語": true}`)))
	assert.Equal(t, 2, MaxKeyWidth(mustParse(t, `[0,1,2,3,4,5,6,7,8,9,10]`)))
}

func countFolders(t *rapid.T, nodes []*Node, v models.Value) {
	if len(nodes) != v.Len() {
		t.Fatalf("got %d nodes, want %d own keys", len(nodes), v.Len())
	}
	for i, e := range v.Entries() {
		n := nodes[i]
		if n.Key != e.Key {
			t.Fatalf("node %d key %q, want %q", i, n.Key, e.Key)
		}
		if e.Value.Kind().IsContainer() {
			if n.Kind != Folder {
				t.Fatalf("container %q built as leaf", e.Key)
			}
			countFolders(t, n.Children, e.Value)
		} else if len(n.Children) != 0 {
			t.Fatalf("leaf %q has children", e.Key)
		}
	}
}

func TestProperty_RowsMatchOwnKeys(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := testutil.Value(3).Draw(t, "value")
		expand := rapid.Bool().Draw(t, "expand")
		countFolders(t, Build(v, expand, 0), v)
	})
}

func TestProperty_ToggleTwiceIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := testutil.Value(3).Draw(t, "value")
		tr := NewTree(Build(v, rapid.Bool().Draw(t, "expand"), 0))

		before := snapshot(tr)
		for _, n := range tr.Visible() {
			if !n.IsFolder() {
				continue
			}
			Toggle(n)
			Toggle(n)
		}
		after := snapshot(tr)
		if len(before) != len(after) {
			t.Fatalf("node count changed")
		}
		for k, want := range before {
			if after[k] != want {
				t.Fatalf("node %q expanded=%v, want %v", k, after[k], want)
			}
		}
	})
}

func snapshot(tr *Tree) map[string]bool {
	out := make(map[string]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		out[n.Path.String()] = n.Expanded
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range tr.Roots() {
		walk(r)
	}
	return out
}
