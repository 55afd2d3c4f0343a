// Package testutil holds generators shared by property tests.
package testutil

import (
	"encoding/json"
	"strconv"

	"pgregory.net/rapid"

	"github.com/mcncl/jsonbrowse/internal/models"
)

// Value generates JSON values nested at most depth containers deep. Keys
// and strings come from a small alphabet so that search terms hit often.
func Value(depth int) *rapid.Generator[models.Value] {
	return rapid.Custom(func(t *rapid.T) models.Value {
		maxKind := 5
		if depth <= 0 {
			maxKind = 3
		}
		switch rapid.IntRange(0, maxKind).Draw(t, "kind") {
		case 0:
			return models.Null()
		case 1:
			return models.String(Text().Draw(t, "str"))
		case 2:
			n := rapid.IntRange(-1000, 1000).Draw(t, "num")
			return models.Number(json.Number(strconv.Itoa(n)))
		case 3:
			return models.Bool(rapid.Bool().Draw(t, "bool"))
		case 4:
			n := rapid.IntRange(0, 4).Draw(t, "members")
			members := make([]models.Member, n)
			for i := range members {
				members[i] = models.Member{
					Key:   Key().Draw(t, "key"),
					Value: Value(depth-1).Draw(t, "member"),
				}
			}
			return models.Object(members...)
		default:
			n := rapid.IntRange(0, 4).Draw(t, "items")
			items := make([]models.Value, n)
			for i := range items {
				items[i] = Value(depth-1).Draw(t, "item")
			}
			return models.Array(items...)
		}
	})
}

// Key generates object keys.
func Key() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-dA-D]{1,3}`)
}

// Text generates string values.
func Text() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-dA-D0-9 ]{0,6}`)
}

// Term generates search terms, including the empty term.
func Term() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-dA-D0-9]{0,2}`)
}
