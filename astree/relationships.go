package astree

import "fmt"

// MismatchedParent is one element of the report returned by Verify when
// invariant I1 does not hold for a node.
type MismatchedParent struct {
	Node     *Node
	Expected *Node
	Actual   *Node
}

// NormalizationError is raised when invariant repair fails (spec §7).
type NormalizationError struct {
	NodeKind Kind
	Cause    error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("astree: normalization failed for %s: %v", e.NodeKind, e.Cause)
}

func (e *NormalizationError) Unwrap() error { return e.Cause }

// Establish sets every child's Parent back-reference to its owning node,
// recursively. Idempotent (spec §4.2).
func Establish(roots []*Node) {
	for _, r := range roots {
		establish(r, nil)
	}
}

func establish(n *Node, parent *Node) {
	n.Parent = parent
	for _, c := range n.Children {
		establish(c, n)
	}
}

// Verify reports whether invariant I1 holds everywhere under roots. When it
// does not, it returns the offending (node, expected parent, actual parent)
// triples.
func Verify(roots []*Node) (bool, []MismatchedParent) {
	var mismatches []MismatchedParent
	for _, r := range roots {
		verify(r, nil, &mismatches)
	}
	return len(mismatches) == 0, mismatches
}

func verify(n *Node, expectedParent *Node, out *[]MismatchedParent) {
	if n.Parent != expectedParent {
		*out = append(*out, MismatchedParent{Node: n, Expected: expectedParent, Actual: n.Parent})
	}
	for _, c := range n.Children {
		verify(c, n, out)
	}
}

// Repair is Establish, explicitly overwriting stale back-references.
func Repair(roots []*Node) { Establish(roots) }

// Clone performs a structural deep copy; back-references in the clone point
// to cloned parents, never to originals.
func Clone(roots []*Node) []*Node {
	out := make([]*Node, len(roots))
	for i, r := range roots {
		out[i] = cloneNode(r, nil)
	}
	return out
}

func cloneNode(n *Node, parent *Node) *Node {
	c := *n
	c.Parent = parent
	c.Children = nil
	if n.Meta != nil {
		c.Meta = make(map[string]any, len(n.Meta))
		for k, v := range n.Meta {
			c.Meta[k] = v
		}
	}
	for _, child := range n.Children {
		c.Children = append(c.Children, cloneNode(child, &c))
	}
	return &c
}

// Detach removes n from its parent's child list, clearing n's back-reference.
// It is a no-op if n has no parent.
func Detach(n *Node) {
	p := n.Parent
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.Parent = nil
}

// Attach inserts n as a child of parent at the given index (or appended, if
// index is -1 or >= len(parent.Children)).
func Attach(n *Node, parent *Node, index int) {
	n.Parent = parent
	if index < 0 || index >= len(parent.Children) {
		parent.Children = append(parent.Children, n)
		return
	}
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[index+1:], parent.Children[index:])
	parent.Children[index] = n
}

// Replace substitutes newNode for old in old's parent, re-establishing
// back-references. old must have a parent.
func Replace(old, newNode *Node) error {
	p := old.Parent
	if p == nil {
		return &NormalizationError{NodeKind: old.Kind, Cause: fmt.Errorf("node has no parent")}
	}
	for i, c := range p.Children {
		if c == old {
			p.Children[i] = newNode
			newNode.Parent = p
			old.Parent = nil
			return nil
		}
	}
	return &NormalizationError{NodeKind: old.Kind, Cause: fmt.Errorf("node not found among parent's children")}
}

// InsertBefore inserts newNode immediately before ref in ref's parent.
func InsertBefore(newNode, ref *Node) error {
	p := ref.Parent
	if p == nil {
		return &NormalizationError{NodeKind: ref.Kind, Cause: fmt.Errorf("reference node has no parent")}
	}
	for i, c := range p.Children {
		if c == ref {
			Attach(newNode, p, i)
			return nil
		}
	}
	return &NormalizationError{NodeKind: ref.Kind, Cause: fmt.Errorf("reference node not found")}
}

// InsertAfter inserts newNode immediately after ref in ref's parent.
func InsertAfter(newNode, ref *Node) error {
	p := ref.Parent
	if p == nil {
		return &NormalizationError{NodeKind: ref.Kind, Cause: fmt.Errorf("reference node has no parent")}
	}
	for i, c := range p.Children {
		if c == ref {
			Attach(newNode, p, i+1)
			return nil
		}
	}
	return &NormalizationError{NodeKind: ref.Kind, Cause: fmt.Errorf("reference node not found")}
}

// Acyclic reports whether n's ancestor chain is free of cycles (invariant
// I2), walking Parent links: it returns true when the chain ends at a root
// and false when a cycle is found.
func Acyclic(n *Node) bool {
	slow, fast := n, n
	for {
		if fast.Parent == nil {
			return true
		}
		fast = fast.Parent
		if fast.Parent == nil {
			return true
		}
		fast = fast.Parent
		slow = slow.Parent
		if slow == fast {
			return false
		}
	}
}
