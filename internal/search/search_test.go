package search

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

func assertJSON(t *testing.T, expected string, v models.Value) {
	t.Helper()
	data, err := v.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, expected, string(data))
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		term     string
		expected string // empty means no match
	}{
		{"value match drops other keys", `{"name": "cat", "legs": 4}`, "cat", `{"name": "cat"}`},
		{"key match keeps original subtree", `{"Animals": {"dog": "bark"}}`, "animals", `{"Animals": {"dog": "bark"}}`},
		{"array keeps matching elements", `{"x": [1, 2, 3]}`, "2", `{"x": [2]}`},
		{"empty object never matches", `{}`, "a", ""},
		{"empty array never matches", `[]`, "a", ""},
		{"case insensitive value", `{"k": "HeLLo"}`, "hello", `{"k": "HeLLo"}`},
		{"case insensitive key", `{"KEY": 1}`, "key", `{"KEY": 1}`},
		{"null matches its text", `{"a": null, "b": 1}`, "nul", `{"a": null}`},
		{"boolean matches its text", `[true, false]`, "fal", `[false]`},
		{"number matches canonical form", `{"n": 1.50}`, "1.5", `{"n": 1.50}`},
		{"nested value match prunes siblings", `{"a": {"b": "hit", "c": "miss"}, "d": "miss"}`, "hit", `{"a": {"b": "hit"}}`},
		{"key match beats partial value match", `{"hit": {"x": "hit", "y": "no"}}`, "hit", `{"hit": {"x": "hit", "y": "no"}}`},
		{"key match keeps empty container", `{"list": [], "other": []}`, "list", `{"list": []}`},
		{"objects inside arrays", `[{"a": "x"}, {"a": "y"}]`, "y", `[{"a": "y"}]`},
		{"no match anywhere", `{"a": {"b": [1, 2]}}`, "zzz", ""},
		{"primitive root match", `"Hello"`, "ell", `"Hello"`},
		{"primitive root miss", `42`, "7", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := Filter(mustParse(t, tt.input), tt.term)
			if tt.expected == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assertJSON(t, tt.expected, out)
		})
	}
}

func TestFilter_PreservesOrder(t *testing.T) {
	out, ok := Filter(mustParse(t, `{"zb": "x", "skip": 0, "ab": "x", "mb": "x"}`), "b")
	require.True(t, ok)
	var keys []string
	for _, m := range out.Members() {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{"zb", "ab", "mb"}, keys)
}

func TestFilter_EmptyTermIsIdentity(t *testing.T) {
	v := mustParse(t, `{}`)
	out, ok := Filter(v, "")
	require.True(t, ok)
	assert.True(t, out.Equal(v))
}

func TestFilterOrEmpty(t *testing.T) {
	out := FilterOrEmpty(mustParse(t, `{"a": 1}`), "nothing")
	assert.Equal(t, models.KindObject, out.Kind())
	assert.Equal(t, 0, out.Len())

	out = FilterOrEmpty(mustParse(t, `{"a": 1}`), "a")
	assert.Equal(t, 1, out.Len())
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("Hello World", "o w"))
	assert.True(t, Matches("anything", ""))
	assert.False(t, Matches("abc", "abcd"))
}

func TestCountMatches(t *testing.T) {
	v := mustParse(t, `{"cat": "cat", "dog": ["Cat", "bird"], "n": 1}`)
	assert.Equal(t, 3, CountMatches(v, "cat"))
	assert.Equal(t, 0, CountMatches(v, ""))
	assert.Equal(t, 0, CountMatches(v, "zebra"))
}

func TestProperty_EmptyTermIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := testutil.Value(3).Draw(t, "value")
		out, ok := Filter(v, "")
		if !ok || !out.Equal(v) {
			t.Fatalf("empty term changed the value")
		}
	})
}

func TestProperty_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := testutil.Value(3).Draw(t, "value")
		term := testutil.Term().Draw(t, "term")

		once, ok := Filter(v, term)
		if !ok {
			return
		}
		twice, ok := Filter(once, term)
		if !ok {
			t.Fatalf("filtering a match again found nothing")
		}
		if !twice.Equal(once) {
			t.Fatalf("second filter shrank the result")
		}
	})
}

func TestProperty_ResultNeverGrows(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := testutil.Value(3).Draw(t, "value")
		term := testutil.Term().Draw(t, "term")

		out, ok := Filter(v, term)
		if ok && out.Len() > v.Len() {
			t.Fatalf("filtered value has %d keys, source has %d", out.Len(), v.Len())
		}
	})
}
