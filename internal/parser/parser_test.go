package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonbrowse/internal/errors"
	"github.com/mcncl/jsonbrowse/internal/models"
)

func keys(v models.Value) []string {
	var out []string
	for _, m := range v.Entries() {
		out = append(out, m.Key)
	}
	return out
}

func TestParse_SimpleObjectKeepsOrder(t *testing.T) {
	doc, err := ParseString(`{"name": "John Doe", "age": 30, "isStudent": false, "city": null}`)
	require.NoError(t, err)

	assert.False(t, doc.RootIsArray)
	assert.Equal(t, models.SourceInline, doc.Source)
	require.Equal(t, models.KindObject, doc.Root.Kind())
	assert.Equal(t, []string{"name", "age", "isStudent", "city"}, keys(doc.Root))

	age, _ := doc.Root.Get("age")
	assert.Equal(t, models.KindNumber, age.Kind())
	assert.Equal(t, "30", string(age.Num()))

	city, _ := doc.Root.Get("city")
	assert.True(t, city.IsNull())
}

func TestParse_SimpleArray(t *testing.T) {
	doc, err := ParseString(`[1, "test", true, null, 3.14]`)
	require.NoError(t, err)

	assert.True(t, doc.RootIsArray)
	items := doc.Root.Items()
	require.Len(t, items, 5)
	assert.Equal(t, []models.Kind{
		models.KindNumber, models.KindString, models.KindBool, models.KindNull, models.KindNumber,
	}, []models.Kind{items[0].Kind(), items[1].Kind(), items[2].Kind(), items[3].Kind(), items[4].Kind()})
	assert.Equal(t, "3.14", items[4].StringForm())
}

func TestParse_Nested(t *testing.T) {
	doc, err := ParseString(`{"z": {"y": [ {"x": 1}, [] ]}, "a": {}}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a"}, keys(doc.Root))
	z, _ := doc.Root.Get("z")
	y, _ := z.Get("y")
	require.Equal(t, 2, y.Len())
	first := y.Items()[0]
	assert.Equal(t, []string{"x"}, keys(first))
}

func TestParse_DuplicateKeys(t *testing.T) {
	doc, err := ParseString(`{"a": 1, "b": 2, "a": 3}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, keys(doc.Root))
	a, _ := doc.Root.Get("a")
	assert.Equal(t, "3", a.StringForm())
}

func TestParse_ScalarRoot(t *testing.T) {
	doc, err := ParseString(`"just text"`)
	require.NoError(t, err)
	assert.Equal(t, models.KindString, doc.Root.Kind())
	assert.False(t, doc.RootIsArray)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
		errType  errors.ErrorType
	}{
		{"empty", "", errors.ErrEmptyInput, errors.ErrorTypeInput},
		{"whitespace", "  \n\t ", errors.ErrEmptyInput, errors.ErrorTypeInput},
		{"syntax", `{"a": }`, errors.ErrInvalidJSON, errors.ErrorTypeParsing},
		{"truncated", `{"a": [1, 2`, errors.ErrInvalidJSON, errors.ErrorTypeParsing},
		{"bad key", `{1: 2}`, errors.ErrInvalidJSON, errors.ErrorTypeParsing},
		{"multiple", `{"a":1} {"b":2}`, errors.ErrMultipleJSON, errors.ErrorTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.errType, errors.TypeOf(err))
		})
	}
}

func TestParse_TrailingGarbage(t *testing.T) {
	_, err := ParseString(`{"a":1} }`)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeParsing, errors.TypeOf(err))
	assert.Contains(t, err.Error(), "trailing data")
}

func TestParse_EmptyReader(t *testing.T) {
	_, err := Parse(strings.NewReader("   "))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyInput)
}

func TestParse_MaxDepth(t *testing.T) {
	p := New(3)

	_, err := p.ParseBytes("ok", models.SourceInline, []byte(`[[[1]]]`))
	require.NoError(t, err)

	_, err = p.ParseBytes("deep", models.SourceInline, []byte(`[[[[1]]]]`))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTooDeep)

	assert.Equal(t, DefaultMaxDepth, New(0).MaxDepth)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, os.WriteFile(valid, []byte(`{"k": "v"}`), 0o644))
	doc, err := ParseFile(valid)
	require.NoError(t, err)
	assert.Equal(t, "valid.json", doc.Name)
	assert.Equal(t, models.SourceFile, doc.Source)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = ParseFile(empty)
	assert.ErrorIs(t, err, errors.ErrFileEmpty)

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, errors.ErrFileNotFound)

	_, err = ParseFile("  ")
	assert.ErrorIs(t, err, errors.ErrInvalidFilePath)

	_, err = ParseFile(dir)
	assert.ErrorIs(t, err, errors.ErrInvalidFilePath)
}
