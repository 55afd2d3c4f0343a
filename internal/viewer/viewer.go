// Package viewer holds the state of one browsing session: the loaded
// document, the active search term and the tree built from them.
package viewer

import (
	"github.com/mcncl/jsonbrowse/internal/analyzer"
	"github.com/mcncl/jsonbrowse/internal/models"
	"github.com/mcncl/jsonbrowse/internal/search"
	"github.com/mcncl/jsonbrowse/internal/tree"
)

// Options configure a State.
type Options struct {
	// Expand is the expand default used when a document is loaded.
	Expand   bool
	MaxDepth int
}

// State is not safe for concurrent use; it has a single writer.
type State struct {
	opts      Options
	builder   tree.Builder
	doc       models.Document
	loaded    bool
	term      string
	displayed models.Value
	tree      *tree.Tree
	align     int
	matches   int
	stats     analyzer.Stats
}

// New creates an empty State.
func New(opts Options) *State {
	return &State{
		opts:      opts,
		builder:   tree.Builder{MaxDepth: opts.MaxDepth},
		displayed: models.Object(),
		tree:      tree.NewTree(nil),
	}
}

// Load replaces the document wholesale, clears the search term and builds
// with the configured expand default.
func (s *State) Load(doc models.Document) {
	s.doc = doc
	s.loaded = true
	s.term = ""
	s.matches = 0
	s.stats = analyzer.Analyze(doc.Root)
	s.rebuild(doc.Root, s.opts.Expand)
}

// Search filters the document by term and builds the result expanded, so
// every match is visible. An empty term shows the whole document expanded.
func (s *State) Search(term string) {
	s.term = term
	s.matches = search.CountMatches(s.doc.Root, term)
	s.rebuild(search.FilterOrEmpty(s.doc.Root, term), true)
}

// ExpandAll rebuilds the whole document with every folder open. Individual
// toggles and the search term are discarded.
func (s *State) ExpandAll() {
	s.reset(true)
}

// CollapseAll rebuilds the whole document with every folder closed.
func (s *State) CollapseAll() {
	s.reset(false)
}

func (s *State) reset(expand bool) {
	s.term = ""
	s.matches = 0
	s.rebuild(s.doc.Root, expand)
}

func (s *State) rebuild(value models.Value, expand bool) {
	s.displayed = value
	s.align = tree.MaxKeyWidth(value)
	s.tree = tree.NewTree(s.builder.Build(value, expand, s.align))
}

// Toggle flips the folder at path and reports whether one was found.
func (s *State) Toggle(path tree.Path) bool {
	return s.tree.ToggleAt(path)
}

// ValueAt returns the displayed value at path.
func (s *State) ValueAt(path tree.Path) (models.Value, bool) {
	v := s.displayed
	for _, key := range path {
		next, ok := v.Get(key)
		if !ok {
			return models.Value{}, false
		}
		v = next
	}
	return v, true
}

// Tree returns the current build.
func (s *State) Tree() *tree.Tree { return s.tree }

// Visible returns the rows currently shown.
func (s *State) Visible() []*tree.Node { return s.tree.Visible() }

// Displayed returns the value the current tree was built from: the
// document root, or the filtered value while a search is active.
func (s *State) Displayed() models.Value { return s.displayed }

// Document returns the loaded document and whether one has been loaded.
func (s *State) Document() (models.Document, bool) { return s.doc, s.loaded }

// Term returns the active search term.
func (s *State) Term() string { return s.term }

// Matches returns how many keys and values match the active term.
func (s *State) Matches() int { return s.matches }

// Align returns the alignment hint of the current build.
func (s *State) Align() int { return s.align }

// Stats returns statistics of the loaded document.
func (s *State) Stats() analyzer.Stats { return s.stats }

// ScalarRoot reports whether the loaded document is a bare primitive, which
// builds no rows.
func (s *State) ScalarRoot() bool {
	return s.loaded && !s.doc.Root.Kind().IsContainer()
}
