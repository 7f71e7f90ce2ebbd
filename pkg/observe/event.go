package observe

import (
	"fmt"
	"strings"
)

// Kind distinguishes reads from writes.
type Kind uint8

const (
	// Read is emitted when a data property is read through a Node.
	Read Kind = iota + 1

	// Write is emitted when a property is assigned or deleted through a Node.
	Write
)

// String returns "read" or "write".
func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind as its string form.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes "read" or "write".
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "read":
		*k = Read
	case "write":
		*k = Write
	default:
		return fmt.Errorf("observe: unknown event kind %q", text)
	}
	return nil
}

// Separator joins path segments in the canonical form.
// It is the ASCII unit separator, which is not expected in property keys.
const Separator = "\x1f"

// Path is a root-relative list of property keys, outermost first.
// Accessing root.b.c yields Path{"b", "c"}.
type Path []string

// Canonical joins the segments with Separator.
// The canonical form is what read-sets store and prefix tests compare.
func (p Path) Canonical() string {
	return strings.Join(p, Separator)
}

// String renders the path with dots, for humans.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Prepend returns a new path with key in front of p. p is not modified.
func (p Path) Prepend(key string) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, key)
	return append(out, p...)
}

// ParsePath splits a dotted path. An empty string is the empty path.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	return Path(strings.Split(s, "."))
}

// AccessEvent records one observed property access.
// Events are values; listeners may keep them.
type AccessEvent struct {
	Kind Kind `json:"kind"`
	Path Path `json:"path"`
}

// PathString returns the canonical form of the event's path.
func (e AccessEvent) PathString() string {
	return e.Path.Canonical()
}

// String formats the event as "read(b.c)".
func (e AccessEvent) String() string {
	return e.Kind.String() + "(" + e.Path.String() + ")"
}

// prefixed returns a copy of e with key prepended to its path.
func (e AccessEvent) prefixed(key string) AccessEvent {
	return AccessEvent{Kind: e.Kind, Path: e.Path.Prepend(key)}
}
