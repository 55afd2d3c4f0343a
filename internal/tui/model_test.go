package tui

import (
	"context"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonbrowse/internal/models"
	"github.com/mcncl/jsonbrowse/internal/parser"
	"github.com/mcncl/jsonbrowse/internal/viewer"
)

type harness struct {
	m       Model
	copied  []string
	reloads int
	next    string
}

func newHarness(t *testing.T, input string) *harness {
	t.Helper()
	doc, err := parser.ParseString(input)
	require.NoError(t, err)
	state := viewer.New(viewer.Options{})
	state.Load(doc)

	h := &harness{next: input}
	h.m = New(state, Options{
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
		Reload: func(ctx context.Context) (models.Document, error) {
			h.reloads++
			return parser.ParseString(h.next)
		},
	})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	m, cmd := h.m.Update(msg)
	h.m = m.(Model)
	return cmd
}

func (h *harness) keys(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) press(t tea.KeyType) tea.Cmd {
	return h.send(tea.KeyMsg{Type: t})
}

func (h *harness) paths() []string {
	var out []string
	for _, n := range h.m.state.Visible() {
		out = append(out, n.Path.String())
	}
	return out
}

func TestModel_NavigateAndToggle(t *testing.T) {
	h := newHarness(t, `{"a": {"b": 1}, "c": 2}`)
	assert.Equal(t, []string{"/a", "/c"}, h.paths())

	h.press(tea.KeyEnter)
	assert.Equal(t, []string{"/a", "/a/b", "/c"}, h.paths())
	assert.Equal(t, 0, h.m.cursor)

	h.press(tea.KeyDown)
	h.press(tea.KeyDown)
	h.press(tea.KeyDown)
	assert.Equal(t, 2, h.m.cursor, "cursor stops at the last row")

	h.press(tea.KeyUp)
	assert.Equal(t, "/a/b", h.m.selected().Path.String())

	h.press(tea.KeyHome)
	h.press(tea.KeySpace)
	assert.Equal(t, []string{"/a", "/c"}, h.paths())

	h.press(tea.KeyEnd)
	assert.Equal(t, 1, h.m.cursor)
}

func TestModel_ExpandCollapseAll(t *testing.T) {
	h := newHarness(t, `{"a": {"b": {"c": 1}}, "d": 2}`)

	h.keys("e")
	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c", "/d"}, h.paths())

	h.press(tea.KeyEnd)
	h.keys("c")
	assert.Equal(t, []string{"/a", "/d"}, h.paths())
	assert.Equal(t, "/d", h.m.selected().Path.String(), "selection follows the node")
}

func TestModel_Search(t *testing.T) {
	h := newHarness(t, `{"a": {"b": 1}, "c": 2}`)

	h.keys("/")
	require.True(t, h.m.searching)
	h.keys("b")
	assert.Equal(t, "b", h.m.state.Term())
	assert.Equal(t, []string{"/a", "/a/b"}, h.paths())

	h.press(tea.KeyEnter)
	assert.False(t, h.m.searching)
	assert.Equal(t, "b", h.m.state.Term())
	assert.Contains(t, h.m.View(), "1 matches")

	h.keys("/")
	h.press(tea.KeyEsc)
	assert.False(t, h.m.searching)
	assert.Empty(t, h.m.state.Term())
	assert.Equal(t, []string{"/a", "/a/b", "/c"}, h.paths())
}

func TestModel_SearchWithoutMatches(t *testing.T) {
	h := newHarness(t, `{"a": 1}`)
	h.keys("/zz")
	assert.Empty(t, h.paths())
	assert.Contains(t, h.m.View(), "no matches")
}

func TestModel_Copy(t *testing.T) {
	h := newHarness(t, `{"a": {"b": 1}, "s": "text"}`)

	h.keys("y")
	h.keys("Y")
	h.press(tea.KeyDown)
	h.keys("Y")

	require.Len(t, h.copied, 3)
	assert.Equal(t, "/a", h.copied[0])
	assert.Equal(t, "{\n  \"b\": 1\n}", h.copied[1])
	assert.Equal(t, "text", h.copied[2])
	assert.Contains(t, h.m.status, "copied")
}

func TestModel_CopyFailureIsNotice(t *testing.T) {
	h := newHarness(t, `{"a": 1}`)
	h.m.opts.Clipboard = func(string) error { return fmt.Errorf("no clipboard") }
	h.keys("y")
	assert.Contains(t, h.m.notice, "no clipboard")
}

func TestModel_Reload(t *testing.T) {
	h := newHarness(t, `{"a": 1}`)
	h.next = `{"a": 1, "b": 2}`

	cmd := h.keys2Cmd("r")
	require.NotNil(t, cmd)
	h.send(cmd())

	assert.Equal(t, 1, h.reloads)
	assert.Equal(t, []string{"/a", "/b"}, h.paths())
}

func TestModel_MalformedReloadKeepsTree(t *testing.T) {
	h := newHarness(t, `{"a": 1}`)
	h.next = `{"a": `

	cmd := h.keys2Cmd("r")
	h.send(cmd())

	assert.Equal(t, []string{"/a"}, h.paths())
	assert.Contains(t, h.m.notice, "reload failed")
	assert.Contains(t, h.m.View(), "reload failed")
}

func TestModel_ReloadKeepsSearch(t *testing.T) {
	h := newHarness(t, `{"x": 1, "y": 2}`)
	h.keys("/x")
	h.press(tea.KeyEnter)

	h.next = `{"x": 3, "xx": 4, "y": 5}`
	h.send(h.keys2Cmd("r")())
	assert.Equal(t, "x", h.m.state.Term())
	assert.Equal(t, []string{"/x", "/xx"}, h.paths())
}

func (h *harness) keys2Cmd(s string) tea.Cmd {
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestModel_Quit(t *testing.T) {
	h := newHarness(t, `{}`)
	cmd := h.keys2Cmd("q")
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestModel_PagingKeepsCursorVisible(t *testing.T) {
	var parts []string
	for i := 0; i < 50; i++ {
		parts = append(parts, fmt.Sprintf(`"k%02d": %d`, i, i))
	}
	h := newHarness(t, "{"+strings.Join(parts, ",")+"}")
	h.send(tea.WindowSizeMsg{Width: 80, Height: 13})

	h.press(tea.KeyPgDown)
	assert.Equal(t, 10, h.m.cursor)
	assert.Equal(t, 1, h.m.offset)

	h.press(tea.KeyEnd)
	assert.Equal(t, 49, h.m.cursor)
	assert.Equal(t, 40, h.m.offset)

	view := h.m.View()
	assert.Contains(t, view, "k49")
	assert.NotContains(t, view, "k39")
}

func TestModel_ViewStates(t *testing.T) {
	h := newHarness(t, `"just a string"`)
	assert.Contains(t, h.m.View(), "single value")

	h = newHarness(t, `{}`)
	assert.Contains(t, h.m.View(), "empty")

	h = newHarness(t, `{"name": "x"}`)
	h.keys("?")
	assert.True(t, h.m.showHelp)
	assert.Contains(t, h.m.View(), "expand all")
	h.keys("j")
	assert.False(t, h.m.showHelp)
}
