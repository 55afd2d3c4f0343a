package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
)

// Kind identifies which variant of the JSON model a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
	// KindOther holds values outside the JSON model. Parsing never
	// produces it; it only comes from FromGo.
	KindOther
)

var kindNames = [...]string{"null", "string", "number", "boolean", "object", "array", "other"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsContainer reports whether k is an object or an array.
func (k Kind) IsContainer() bool {
	return k == KindObject || k == KindArray
}

// Member is one key/value pair of a JSON object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	str     string
	num     json.Number
	b       bool
	members []Member
	items   []Value
	other   any
}

// Null returns the JSON null value.
func Null() Value { return Value{} }

// String returns a JSON string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a JSON number value holding the literal n.
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }

// Float returns a JSON number value for f.
func Float(f float64) Value {
	return Value{kind: KindNumber, num: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// Bool returns a JSON boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Object returns an object holding members in the given order. A key that
// appears more than once keeps its first position and its last value.
func Object(members ...Member) Value {
	out := make([]Member, 0, len(members))
	seen := make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := seen[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		seen[m.Key] = len(out)
		out = append(out, m)
	}
	return Value{kind: KindObject, members: out}
}

// Array returns an array holding items in order.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value(nil), items...)}
}

// Other wraps a value that has no JSON representation.
func Other(v any) Value { return Value{kind: KindOther, other: v} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string held by a string value.
func (v Value) Str() string { return v.str }

// Num returns the number literal held by a number value.
func (v Value) Num() json.Number { return v.num }

// Boolean returns the boolean held by a boolean value.
func (v Value) Boolean() bool { return v.b }

// Raw returns the Go value wrapped by an Other value.
func (v Value) Raw() any { return v.other }

// Members returns a copy of an object's members in order.
func (v Value) Members() []Member {
	return append([]Member(nil), v.members...)
}

// Items returns a copy of an array's items in order.
func (v Value) Items() []Value {
	return append([]Value(nil), v.items...)
}

// Len returns the number of own keys: members of an object, items of an
// array, zero for everything else.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.members)
	case KindArray:
		return len(v.items)
	default:
		return 0
	}
}

// Entries returns the key/value pairs of a container in enumeration order.
// Array indices are stringified.
func (v Value) Entries() []Member {
	switch v.kind {
	case KindObject:
		return v.Members()
	case KindArray:
		out := make([]Member, len(v.items))
		for i, item := range v.items {
			out[i] = Member{Key: strconv.Itoa(i), Value: item}
		}
		return out
	default:
		return nil
	}
}

// Get returns the member value for key and whether it exists.
func (v Value) Get(key string) (Value, bool) {
	switch v.kind {
	case KindObject:
		for _, m := range v.members {
			if m.Key == key {
				return m.Value, true
			}
		}
	case KindArray:
		i, err := strconv.Atoi(key)
		if err == nil && i >= 0 && i < len(v.items) && strconv.Itoa(i) == key {
			return v.items[i], true
		}
	}
	return Value{}, false
}

// StringForm returns the text shown for v and matched by search.
// Numbers use the canonical decimal form, containers their compact JSON.
func (v Value) StringForm() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindNumber:
		return CanonicalNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindObject, KindArray:
		data, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	default:
		return fmt.Sprint(v.other)
	}
}

// CanonicalNumber renders n the way JavaScript's String(n) does: no
// trailing fraction for integral values, exponent notation outside
// [1e-6, 1e21), and "0" for negative zero. Literals that do not fit a
// float64 are returned unchanged.
func CanonicalNumber(n json.Number) string {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return string(n)
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mantissa, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		exp = strings.TrimLeft(exp[1:], "0")
		if exp == "" {
			exp = "0"
		}
		return mantissa + "e" + string(sign) + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Equal reports whether v and o hold the same JSON value, including
// member order. Numbers compare by canonical form.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return CanonicalNumber(v.num) == CanonicalNumber(o.num)
	case KindBool:
		return v.b == o.b
	case KindObject:
		if len(v.members) != len(o.members) {
			return false
		}
		for i := range v.members {
			if v.members[i].Key != o.members[i].Key || !v.members[i].Value.Equal(o.members[i].Value) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		return fmt.Sprint(v.other) == fmt.Sprint(o.other)
	}
}

// MarshalJSON encodes v as compact JSON, keeping member order. Other
// values are encoded as their string form.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		return writeString(buf, v.str)
	case KindNumber:
		if v.num == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(string(v.num))
		}
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return writeString(buf, fmt.Sprint(v.other))
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	data, err := gojson.MarshalWithOption(s, gojson.DisableHTMLEscape())
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// FromGo converts a decoded Go value (as produced by encoding/json into an
// interface{}) into a Value. Map keys are sorted since Go maps carry no
// order. Anything outside the JSON model becomes an Other value.
func FromGo(in any) Value {
	switch x := in.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return String(x)
	case json.Number:
		return Number(x)
	case float64:
		return Float(x)
	case float32:
		return Float(float64(x))
	case int:
		return Number(json.Number(strconv.Itoa(x)))
	case int64:
		return Number(json.Number(strconv.FormatInt(x, 10)))
	case bool:
		return Bool(x)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, len(keys))
		for i, k := range keys {
			members[i] = Member{Key: k, Value: FromGo(x[k])}
		}
		return Object(members...)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromGo(item)
		}
		return Array(items...)
	default:
		return Other(x)
	}
}

// Source names where a document was loaded from.
type Source string

const (
	SourceFile   Source = "file"
	SourceStdin  Source = "stdin"
	SourceURL    Source = "url"
	SourceStore  Source = "store"
	SourceInline Source = "inline"
)

// Document is one loaded JSON document. A new load replaces the whole
// Document; the Root is never mutated.
type Document struct {
	Name        string
	Source      Source
	Root        Value
	RootIsArray bool // True if the root of the JSON is an array vs an object
	LoadedAt    time.Time
}

// NewDocument wraps root as a Document.
func NewDocument(name string, source Source, root Value) Document {
	return Document{
		Name:        name,
		Source:      source,
		Root:        root,
		RootIsArray: root.Kind() == KindArray,
		LoadedAt:    time.Now(),
	}
}
