// Package phylo holds the Go-native tree capabilities: an arena-backed
// unrooted binary tree, a randomized stepwise-addition parsimony builder,
// bipartition extraction and Robinson-Foulds distance.
package phylo

import (
	"errors"
	"fmt"
)

// Node is an arena slot. Handles are plain slice indices; -1 means none.
type Node struct {
	// Label is the taxon label; empty on inner nodes.
	Label string
	// Index is the position field used for bipartition bits. A builder sets it
	// to the leaf's own discovery order; callers may renumber it.
	Index int

	adj [3]int
	deg int
}

// Degree returns the number of neighbors.
func (n *Node) Degree() int { return n.deg }

// IsLeaf reports whether the node has exactly one neighbor.
func (n *Node) IsLeaf() bool { return n.deg == 1 }

// Tree is an unrooted binary tree. Leaves occupy slots [0, Taxa()).
type Tree struct {
	nodes []Node
	taxa  int
}

// NewTree allocates an empty tree sized for taxa leaves.
func NewTree(taxa int) *Tree {
	capN := 2*taxa - 2
	if capN < taxa {
		capN = taxa
	}
	return &Tree{nodes: make([]Node, 0, capN)}
}

func (t *Tree) newNode(label string, index int) int {
	t.nodes = append(t.nodes, Node{Label: label, Index: index, adj: [3]int{-1, -1, -1}})
	return len(t.nodes) - 1
}

// AddLeaf appends a leaf. Leaves must be added before any inner node.
func (t *Tree) AddLeaf(label string) int {
	if t.taxa != len(t.nodes) {
		panic("phylo: leaves must precede inner nodes")
	}
	h := t.newNode(label, t.taxa)
	t.taxa++
	return h
}

// AddInner appends an inner node.
func (t *Tree) AddInner() int { return t.newNode("", -1) }

// Connect joins a and b.
func (t *Tree) Connect(a, b int) {
	t.link(a, b)
	t.link(b, a)
}

func (t *Tree) link(a, b int) {
	n := &t.nodes[a]
	if n.deg == len(n.adj) {
		panic(fmt.Sprintf("phylo: node %d already has degree 3", a))
	}
	n.adj[n.deg] = b
	n.deg++
}

// Disconnect removes the edge a-b.
func (t *Tree) Disconnect(a, b int) {
	t.unlink(a, b)
	t.unlink(b, a)
}

func (t *Tree) unlink(a, b int) {
	n := &t.nodes[a]
	for i := 0; i < n.deg; i++ {
		if n.adj[i] == b {
			copy(n.adj[i:], n.adj[i+1:n.deg])
			n.deg--
			n.adj[n.deg] = -1
			return
		}
	}
	panic(fmt.Sprintf("phylo: no edge %d-%d", a, b))
}

// Taxa returns the number of leaves.
func (t *Tree) Taxa() int { return t.taxa }

// Len returns the number of arena slots in use.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node behind handle h.
func (t *Tree) Node(h int) *Node { return &t.nodes[h] }

// Leaf returns leaf i in discovery order.
func (t *Tree) Leaf(i int) *Node {
	if i < 0 || i >= t.taxa {
		panic(fmt.Sprintf("phylo: leaf %d out of range [0,%d)", i, t.taxa))
	}
	return &t.nodes[i]
}

// Neighbors returns the neighbor handles of h.
func (t *Tree) Neighbors(h int) []int {
	n := &t.nodes[h]
	return n.adj[:n.deg]
}

// Edge is an undirected edge, A < B.
type Edge struct{ A, B int }

// Edges lists every edge once, ordered by (A, B).
func (t *Tree) Edges() []Edge {
	out := make([]Edge, 0, len(t.nodes))
	for a := range t.nodes {
		for _, b := range t.Neighbors(a) {
			if a < b {
				out = append(out, Edge{A: a, B: b})
			}
		}
	}
	return out
}

// Release drops the arena. The Tree must not be used afterwards.
func (t *Tree) Release() {
	if t == nil {
		return
	}
	t.nodes = nil
	t.taxa = 0
}

// Released reports whether Release has been called.
func (t *Tree) Released() bool { return t.nodes == nil }

var errMalformed = errors.New("phylo: malformed tree")

// Validate checks that t is a connected unrooted binary tree.
func (t *Tree) Validate() error {
	if t.taxa < 3 {
		if t.taxa == 2 && len(t.nodes) == 2 && t.nodes[0].deg == 1 {
			return nil
		}
		return fmt.Errorf("%w: %d leaves", errMalformed, t.taxa)
	}
	if want := 2*t.taxa - 2; len(t.nodes) != want {
		return fmt.Errorf("%w: %d nodes, want %d", errMalformed, len(t.nodes), want)
	}
	for h := range t.nodes {
		n := &t.nodes[h]
		if h < t.taxa && n.deg != 1 {
			return fmt.Errorf("%w: leaf %d has degree %d", errMalformed, h, n.deg)
		}
		if h >= t.taxa && n.deg != 3 {
			return fmt.Errorf("%w: inner node %d has degree %d", errMalformed, h, n.deg)
		}
	}
	seen := make([]bool, len(t.nodes))
	stack := []int{0}
	seen[0] = true
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, nb := range t.Neighbors(h) {
			if !seen[nb] {
				seen[nb] = true
				stack = append(stack, nb)
			}
		}
	}
	for h, ok := range seen {
		if !ok {
			return fmt.Errorf("%w: node %d unreachable", errMalformed, h)
		}
	}
	return nil
}
