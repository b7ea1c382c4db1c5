package scene

// VisitFunc is called once per visited node. Returning false stops descent
// below that node; siblings are still visited.
type VisitFunc func(id int) bool

// Walk visits id and its descendants in pre-order. The node handed to Walk is
// always visited, whatever its active flag. Descent below a node happens only
// when includeInactive is set or the node is active in hierarchy, so an
// inactive node is still inspected but its subtree is not.
func (t *Tree) Walk(id int, includeInactive bool, visit VisitFunc) {
	if !visit(id) {
		return
	}
	if !includeInactive && !t.ActiveInHierarchy(id) {
		return
	}
	for _, child := range t.Nodes[id].Children {
		t.Walk(child, includeInactive, visit)
	}
}

// WalkAll runs Walk over every root in order.
func (t *Tree) WalkAll(includeInactive bool, visit VisitFunc) {
	for _, root := range t.Roots {
		t.Walk(root, includeInactive, visit)
	}
}
