package analyzer

import (
	"github.com/mattn/go-runewidth"

	"github.com/mcncl/jsonbrowse/internal/models"
)

// Stats summarizes the shape of a JSON value.
type Stats struct {
	Objects  int `json:"objects"`
	Arrays   int `json:"arrays"`
	Strings  int `json:"strings"`
	Numbers  int `json:"numbers"`
	Booleans int `json:"booleans"`
	Nulls    int `json:"nulls"`
	Others   int `json:"others"`
	// Keys counts object members and array items.
	Keys int `json:"keys"`
	// MaxDepth is the deepest container nesting; a scalar root has depth 0.
	MaxDepth int `json:"max_depth"`
	// MaxKeyWidth is the alignment hint for the value.
	MaxKeyWidth int `json:"max_key_width"`
}

// Values returns the total number of values counted, containers included.
func (s Stats) Values() int {
	return s.Objects + s.Arrays + s.Strings + s.Numbers + s.Booleans + s.Nulls + s.Others
}

// Analyzer walks values and accumulates Stats.
type Analyzer struct {
	stats Stats
}

// NewAnalyzer creates a new Analyzer instance
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze is a convenience wrapper around a fresh Analyzer.
func Analyze(value models.Value) Stats {
	return NewAnalyzer().Analyze(value)
}

// Analyze returns the statistics of value.
func (a *Analyzer) Analyze(value models.Value) Stats {
	a.stats = Stats{}
	a.analyzeNode(value, 0)
	return a.stats
}

func (a *Analyzer) analyzeNode(node models.Value, depth int) {
	switch node.Kind() {
	case models.KindString:
		a.stats.Strings++
	case models.KindNumber:
		a.stats.Numbers++
	case models.KindBool:
		a.stats.Booleans++
	case models.KindNull:
		a.stats.Nulls++
	case models.KindObject, models.KindArray:
		a.analyzeContainer(node, depth+1)
	default:
		a.stats.Others++
	}
}

func (a *Analyzer) analyzeContainer(node models.Value, depth int) {
	if node.Kind() == models.KindObject {
		a.stats.Objects++
	} else {
		a.stats.Arrays++
	}
	if depth > a.stats.MaxDepth {
		a.stats.MaxDepth = depth
	}
	for _, e := range node.Entries() {
		a.stats.Keys++
		if w := runewidth.StringWidth(e.Key); w > a.stats.MaxKeyWidth {
			a.stats.MaxKeyWidth = w
		}
		a.analyzeNode(e.Value, depth)
	}
}
