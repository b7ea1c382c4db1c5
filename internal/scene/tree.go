package scene

import (
	"slices"
	"strings"
)

// Tree stores a forest of nodes in a flat arena. Node identity is the index
// into Nodes, so traversal and dedup-by-path never depend on pointer identity.
type Tree struct {
	Nodes []Node
	Roots []int
}

func NewTree() *Tree {
	return &Tree{}
}

// Add appends a node under parent (NoParent for a new root) and returns its id.
func (t *Tree) Add(parent int, name string, active bool, slots ...Slot) int {
	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, Node{
		Name:   name,
		Active: active,
		Parent: parent,
		Slots:  slots,
	})

	if parent == NoParent {
		t.Roots = append(t.Roots, id)
	} else {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
	}
	return id
}

func (t *Tree) Node(id int) *Node {
	return &t.Nodes[id]
}

func (t *Tree) Len() int {
	return len(t.Nodes)
}

// Path returns the slash-joined chain of names from the root down to id.
func (t *Tree) Path(id int) string {
	var names []string
	for cur := id; cur != NoParent; cur = t.Nodes[cur].Parent {
		names = append(names, t.Nodes[cur].Name)
	}
	slices.Reverse(names)
	return strings.Join(names, "/")
}

// ActiveInHierarchy reports whether id and all of its ancestors are active.
func (t *Tree) ActiveInHierarchy(id int) bool {
	for cur := id; cur != NoParent; cur = t.Nodes[cur].Parent {
		if !t.Nodes[cur].Active {
			return false
		}
	}
	return true
}

// Find locates a node by its object path. The first match in pre-order wins,
// since sibling names are not unique.
func (t *Tree) Find(objectPath string) (int, bool) {
	found := -1
	t.WalkAll(true, func(id int) bool {
		if found != -1 {
			return false
		}
		if t.Path(id) == objectPath {
			found = id
			return false
		}
		return strings.HasPrefix(objectPath, t.Path(id)+"/")
	})
	return found, found != -1
}

// RemoveDangling strips every dangling slot from one node in a single pass
// and returns how many were removed.
func (t *Tree) RemoveDangling(id int) int {
	n := &t.Nodes[id]
	kept := n.Slots[:0]
	removed := 0
	for _, s := range n.Slots {
		if s.Dangling() {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	clear(n.Slots[len(kept):])
	n.Slots = kept
	return removed
}

// RemoveAllDangling strips dangling slots from every node, active or not.
func (t *Tree) RemoveAllDangling() int {
	total := 0
	t.WalkAll(true, func(id int) bool {
		total += t.RemoveDangling(id)
		return true
	})
	return total
}

// Clone returns a deep copy. Slot data maps are shared since nothing mutates them.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		Nodes: make([]Node, len(t.Nodes)),
		Roots: slices.Clone(t.Roots),
	}
	for i, n := range t.Nodes {
		n.Children = slices.Clone(n.Children)
		n.Slots = slices.Clone(n.Slots)
		c.Nodes[i] = n
	}
	return c
}
