// Package tui is the interactive terminal viewer.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/mcncl/jsonbrowse/internal/errors"
	"github.com/mcncl/jsonbrowse/internal/formatter"
	"github.com/mcncl/jsonbrowse/internal/logging"
	"github.com/mcncl/jsonbrowse/internal/models"
	"github.com/mcncl/jsonbrowse/internal/render"
	"github.com/mcncl/jsonbrowse/internal/tree"
	"github.com/mcncl/jsonbrowse/internal/viewer"
	"github.com/mcncl/jsonbrowse/internal/watcher"
)

// ReloadFunc loads the current document again.
type ReloadFunc func(ctx context.Context) (models.Document, error)

// Options configure the model.
type Options struct {
	Render render.Options
	// Reload backs the reload key and watch events; nil disables both.
	Reload  ReloadFunc
	Watcher *watcher.Watcher
	Logger  *log.Logger
	// Clipboard defaults to the system clipboard.
	Clipboard func(string) error
}

type (
	fileChangedMsg struct{}
	docLoadedMsg   struct{ doc models.Document }
	loadErrMsg     struct{ err error }
)

// Model is the bubbletea model of the viewer.
type Model struct {
	state  *viewer.State
	opts   Options
	logger *log.Logger

	cursor int
	offset int
	width  int
	height int

	searching bool
	input     textinput.Model
	help      help.Model
	showHelp  bool
	status    string
	notice    string
}

// New creates a model around an already loaded state.
func New(state *viewer.State, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "search keys and values"

	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return Model{
		state:  state,
		opts:   opts,
		logger: logger,
		input:  ti,
		help:   help.New(),
		width:  80,
		height: 24,
	}
}

// Run starts the program on the terminal and blocks until it exits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return errors.NewRenderError("terminal viewer failed", err)
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	if m.opts.Watcher != nil {
		return waitForChange(m.opts.Watcher)
	}
	return nil
}

func waitForChange(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return fileChangedMsg{}
	}
}

func (m Model) reload() tea.Cmd {
	reload := m.opts.Reload
	return func() tea.Msg {
		doc, err := reload(context.Background())
		if err != nil {
			return loadErrMsg{err: err}
		}
		return docLoadedMsg{doc: doc}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.ensureCursorVisible()
		return m, nil

	case fileChangedMsg:
		m.logger.Debug("file changed", "path", m.opts.Watcher.Path())
		var cmds []tea.Cmd
		if m.opts.Reload != nil {
			cmds = append(cmds, m.reload())
		}
		cmds = append(cmds, waitForChange(m.opts.Watcher))
		return m, tea.Batch(cmds...)

	case docLoadedMsg:
		m.applyDocument(msg.doc)
		return m, nil

	case loadErrMsg:
		// The previous document stays on screen.
		m.logger.Warn("reload failed", "err", msg.err)
		m.notice = "reload failed: " + errors.UserFriendlyError(msg.err)
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) applyDocument(doc models.Document) {
	var selected tree.Path
	if n := m.selected(); n != nil {
		selected = n.Path
	}
	term := m.state.Term()

	m.state.Load(doc)
	if term != "" {
		m.state.Search(term)
	}
	m.notice = ""
	m.status = "reloaded " + doc.Name
	m.logger.Info("document loaded", "name", doc.Name, "rows", len(m.state.Visible()))

	m.cursor = 0
	for i, n := range m.state.Visible() {
		if n.Path.Equal(selected) {
			m.cursor = i
			break
		}
	}
	m.ensureCursorVisible()
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		m.input.SetValue("")
		m.state.Search("")
		m.cursor, m.offset = 0, 0
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.state.Term() {
		m.state.Search(m.input.Value())
		m.cursor, m.offset = 0, 0
	}
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	if m.showHelp && !key.Matches(msg, keys.Quit) {
		m.showHelp = false
		return m, nil
	}

	rows := len(m.state.Visible())
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.PageUp):
		m.moveCursor(-m.pageSize())
	case key.Matches(msg, keys.PageDown):
		m.moveCursor(m.pageSize())
	case key.Matches(msg, keys.Home):
		m.cursor = 0
		m.ensureCursorVisible()
	case key.Matches(msg, keys.End):
		m.cursor = max(rows-1, 0)
		m.ensureCursorVisible()
	case key.Matches(msg, keys.Toggle):
		if n := m.selected(); n != nil {
			m.state.Toggle(n.Path)
			m.ensureCursorVisible()
		}
	case key.Matches(msg, keys.ExpandAll):
		m.resetTree(m.state.ExpandAll)
	case key.Matches(msg, keys.CollapseAll):
		m.resetTree(m.state.CollapseAll)
	case key.Matches(msg, keys.Search):
		m.searching = true
		m.input.SetValue(m.state.Term())
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, keys.CopyPath):
		m.copyPath()
	case key.Matches(msg, keys.CopyValue):
		m.copyValue()
	case key.Matches(msg, keys.Reload):
		if m.opts.Reload == nil {
			m.status = "this source cannot be reloaded"
			return m, nil
		}
		return m, m.reload()
	case key.Matches(msg, keys.Help):
		m.showHelp = true
	}
	return m, nil
}

func (m *Model) resetTree(reset func()) {
	var selected tree.Path
	if n := m.selected(); n != nil {
		selected = n.Path
	}
	reset()
	m.input.SetValue("")
	m.cursor = 0
	for i, n := range m.state.Visible() {
		if n.Path.Equal(selected) {
			m.cursor = i
			break
		}
	}
	m.ensureCursorVisible()
}

func (m *Model) copyPath() {
	n := m.selected()
	if n == nil {
		m.status = "nothing selected"
		return
	}
	m.copy(n.Path.String())
}

func (m *Model) copyValue() {
	n := m.selected()
	if n == nil {
		m.status = "nothing selected"
		return
	}
	v, ok := m.state.ValueAt(n.Path)
	if !ok {
		m.status = "value not found"
		return
	}
	text := v.Str()
	if v.Kind() != models.KindString {
		out, err := formatter.Format(v)
		if err != nil {
			m.notice = err.Error()
			return
		}
		text = out
	}
	m.copy(text)
}

func (m *Model) copy(text string) {
	if err := m.opts.Clipboard(text); err != nil {
		m.notice = "copy failed: " + err.Error()
		return
	}
	m.status = "copied " + truncate(text, 40)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (m Model) selected() *tree.Node {
	rows := m.state.Visible()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return nil
	}
	return rows[m.cursor]
}

func (m *Model) moveCursor(delta int) {
	rows := len(m.state.Visible())
	m.cursor = min(max(m.cursor+delta, 0), max(rows-1, 0))
	m.ensureCursorVisible()
}

// pageSize is the number of tree rows that fit between the title and the
// status lines.
func (m Model) pageSize() int {
	return max(m.height-3, 1)
}

func (m *Model) ensureCursorVisible() {
	rows := len(m.state.Visible())
	if m.cursor >= rows {
		m.cursor = max(rows-1, 0)
	}
	page := m.pageSize()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+page {
		m.offset = m.cursor - page + 1
	}
	if m.offset > max(rows-page, 0) {
		m.offset = max(rows-page, 0)
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteByte('\n')

	if m.showHelp {
		m.help.ShowAll = true
		b.WriteString(m.help.View(keys))
		b.WriteByte('\n')
		return b.String()
	}

	rows := m.state.Visible()
	page := m.pageSize()
	switch {
	case m.state.ScalarRoot():
		doc, _ := m.state.Document()
		b.WriteString(styleEmpty.Render("document is a single value: " + doc.Root.StringForm()))
		b.WriteByte('\n')
	case len(rows) == 0 && m.state.Term() != "":
		b.WriteString(styleEmpty.Render("no matches"))
		b.WriteByte('\n')
	case len(rows) == 0:
		b.WriteString(styleEmpty.Render("empty"))
		b.WriteByte('\n')
	default:
		r := render.New(m.state.Tree().Roots(), m.opts.Render)
		end := min(m.offset+page, len(rows))
		for i := m.offset; i < end; i++ {
			line := r.Line(rows[i])
			if i == m.cursor {
				line = styleSelected.Render(line)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	b.WriteString(m.statusLine(len(rows)))
	return b.String()
}

func (m Model) titleLine() string {
	doc, ok := m.state.Document()
	if !ok {
		return styleTitle.Render("jsonbrowse")
	}
	return styleTitle.Render(doc.Name) + styleStatus.Render(fmt.Sprintf(" (%s)", doc.Source))
}

func (m Model) statusLine(rows int) string {
	if m.searching {
		return m.input.View()
	}

	parts := []string{}
	if rows > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", m.cursor+1, rows))
	}
	if term := m.state.Term(); term != "" {
		parts = append(parts, fmt.Sprintf("/%s: %d matches", term, m.state.Matches()))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	line := styleStatus.Render(strings.Join(parts, "  "))
	if m.notice != "" {
		line += "  " + styleError.Render(m.notice)
	}
	if len(parts) == 0 && m.notice == "" {
		return m.help.View(keys)
	}
	return line
}
