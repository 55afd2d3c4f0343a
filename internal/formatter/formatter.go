package formatter

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mcncl/jsonbrowse/internal/models"
)

// Options control how values are written.
type Options struct {
	// Indent is the per-level indentation; ignored when Compact is set.
	Indent  string
	Compact bool
}

// DefaultOptions indents with two spaces.
var DefaultOptions = Options{Indent: "  "}

// Formatter is responsible for writing JSON values as text
type Formatter struct {
	opts Options
}

// NewFormatter creates a new Formatter instance
func NewFormatter(opts Options) *Formatter {
	if !opts.Compact && opts.Indent == "" {
		opts.Indent = DefaultOptions.Indent
	}
	return &Formatter{opts: opts}
}

// Format is a convenience wrapper using DefaultOptions.
func Format(value models.Value) (string, error) {
	return NewFormatter(DefaultOptions).Format(value)
}

// Format renders value as JSON text, keeping object member order.
func (f *Formatter) Format(value models.Value) (string, error) {
	raw, err := value.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	if f.opts.Compact {
		var out bytes.Buffer
		if err := json.Compact(&out, raw); err != nil {
			return "", fmt.Errorf("failed to compact JSON: %w", err)
		}
		return out.String(), nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", f.opts.Indent); err != nil {
		return "", fmt.Errorf("failed to indent JSON: %w", err)
	}
	return out.String(), nil
}
