package egraph

import (
	"strconv"
	"strings"
)

// ID identifies an e-class. Ids returned by Add and Union may stop being
// canonical after later unions; use Find to canonicalize.
type ID uint32

// ENode is an operator applied to child e-classes.
type ENode struct {
	Op       string
	Children []ID
}

// Node returns an e-node with the given operator and children.
func Node(op string, children ...ID) ENode {
	return ENode{Op: op, Children: children}
}

// IsLeaf reports whether the node has no children.
func (n ENode) IsLeaf() bool {
	return len(n.Children) == 0
}

// String renders the node with child ids, e.g. "(+ 0 1)".
func (n ENode) String() string {
	if n.IsLeaf() {
		return n.Op
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(n.Op)
	for _, c := range n.Children {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	b.WriteByte(')')
	return b.String()
}

// key is the hash-cons key of a node whose children are already canonical.
func (n ENode) key() string {
	var b strings.Builder
	b.WriteString(n.Op)
	for _, c := range n.Children {
		b.WriteByte(0)
		b.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	return b.String()
}

// EClass is a set of equivalent e-nodes.
type EClass struct {
	ID    ID
	Nodes []ENode
}

// AddResult is the outcome of adding a node.
type AddResult struct {
	ID     ID
	WasNew bool
}
