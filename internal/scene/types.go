package scene

import (
	"fmt"
	"strings"
)

// Kind tells prefab sources apart from scene sources.
type Kind int

const (
	Prefab Kind = iota
	Scene
)

func (k Kind) String() string {
	switch k {
	case Prefab:
		return "Prefab"
	case Scene:
		return "Scene"
	default:
		return "Unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prefab":
		return Prefab, nil
	case "scene":
		return Scene, nil
	default:
		return 0, fmt.Errorf("unknown source kind %q", s)
	}
}

// Slot is one attached component reference on a node.
// A slot is dangling when it could not be resolved to an implementation.
type Slot struct {
	Type     string         // builtin component type, e.g. "Transform"
	Script   string         // script asset GUID
	Data     map[string]any // serialized fields, carried through untouched
	Resolved bool
}

func (s Slot) Dangling() bool {
	return !s.Resolved
}

// NoParent marks a root node.
const NoParent = -1

// Node is one element of a hierarchy. Parent and Children are indices into
// the owning Tree's arena.
type Node struct {
	Name     string
	Active   bool
	Parent   int
	Children []int
	Slots    []Slot
}

// Source is a file-backed container of root nodes: a scene or a prefab.
type Source struct {
	Path  string
	Kind  Kind
	Tree  *Tree
	Dirty bool
}

// OpenMode selects how a scene joins the open working set.
type OpenMode int

const (
	// Single closes every open scene first.
	Single OpenMode = iota
	Additive
)
