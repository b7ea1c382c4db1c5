package scene

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Resolver decides whether a decoded slot points at a real implementation.
type Resolver func(Slot) bool

// BuiltinOnly resolves builtin component types and nothing else.
func BuiltinOnly(s Slot) bool {
	return s.Type != ""
}

type document struct {
	Roots []*nodeDoc `yaml:"roots"`
}

type nodeDoc struct {
	Name       string     `yaml:"name"`
	Active     *bool      `yaml:"active,omitempty"`
	Components []*slotDoc `yaml:"components,omitempty"`
	Children   []*nodeDoc `yaml:"children,omitempty"`
}

type slotDoc struct {
	Type   string         `yaml:"type,omitempty"`
	Script string         `yaml:"script,omitempty"`
	Data   map[string]any `yaml:"data,omitempty"`
}

// Decode parses a source document into an arena tree. A nil resolver falls
// back to BuiltinOnly.
func Decode(data []byte, resolve Resolver) (*Tree, error) {
	if resolve == nil {
		resolve = BuiltinOnly
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode source document: %w", err)
	}

	t := NewTree()
	for i, root := range doc.Roots {
		if root == nil {
			return nil, fmt.Errorf("decode source document: root %d is empty", i)
		}
		addDoc(t, NoParent, root, resolve)
	}
	return t, nil
}

func addDoc(t *Tree, parent int, nd *nodeDoc, resolve Resolver) {
	active := true
	if nd.Active != nil {
		active = *nd.Active
	}

	slots := make([]Slot, 0, len(nd.Components))
	for _, sd := range nd.Components {
		var s Slot
		if sd != nil {
			s = Slot{Type: sd.Type, Script: sd.Script, Data: sd.Data}
		}
		s.Resolved = resolve(s)
		slots = append(slots, s)
	}

	id := t.Add(parent, nd.Name, active, slots...)
	for _, child := range nd.Children {
		if child == nil {
			continue
		}
		addDoc(t, id, child, resolve)
	}
}

// Encode writes the tree back in the document shape Decode reads.
func Encode(t *Tree) ([]byte, error) {
	doc := document{Roots: make([]*nodeDoc, 0, len(t.Roots))}
	for _, root := range t.Roots {
		doc.Roots = append(doc.Roots, toDoc(t, root))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("encode source document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode source document: %w", err)
	}
	return buf.Bytes(), nil
}

func toDoc(t *Tree, id int) *nodeDoc {
	n := t.Nodes[id]
	active := n.Active
	nd := &nodeDoc{Name: n.Name, Active: &active}

	for _, s := range n.Slots {
		nd.Components = append(nd.Components, &slotDoc{Type: s.Type, Script: s.Script, Data: s.Data})
	}
	for _, child := range n.Children {
		nd.Children = append(nd.Children, toDoc(t, child))
	}
	return nd
}
