package tree

import (
	"fmt"
	"strings"
)

// Path addresses a node by the keys leading to it from the document root.
// Its string form is a JSON Pointer (RFC 6901).
type Path []string

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// Child returns a new path extending p with key.
func (p Path) Child(key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

// String returns p as a JSON Pointer; the root is the empty string.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, key := range p {
		sb.WriteByte('/')
		sb.WriteString(pointerEscaper.Replace(key))
	}
	return sb.String()
}

// Equal reports whether p and o name the same node.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// ParsePath parses a JSON Pointer.
func ParsePath(pointer string) (Path, error) {
	if pointer == "" {
		return Path{}, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("json pointer %q must start with '/'", pointer)
	}
	parts := strings.Split(pointer[1:], "/")
	out := make(Path, len(parts))
	for i, part := range parts {
		out[i] = pointerUnescaper.Replace(part)
	}
	return out, nil
}
