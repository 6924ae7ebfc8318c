// Package outerapprox implements the branch-and-cut loop (C6): per-player
// OuterTree bookkeeping, the four branching rules, the separation oracle,
// and the main Engine.Solve iteration described in spec.md §4.6.
package outerapprox

import (
	"github.com/ds4opt/epec-oa/numeric"
)

// Node is one vertex of a player's branching tree: Encoding carries the
// pinned bits along its root-path, AllowedBranchings tracks which bits are
// still eligible to branch on (cleared when branched-on or proved
// infeasible). Parent/Id are arena indices, per the §9 design note
// (pointers replaced with dense integer indices to avoid the
// reallocation-invalidates-pointers hazard).
type Node struct {
	Id                 int
	Parent             int // -1 for the root
	Encoding           []bool
	AllowedBranchings  []bool
	CumulativeBranches int
}

// OuterTree owns one player's branching tree plus the vertices/rays its
// best-response polytope has accumulated so far, grounded on spec.md §3's
// OuterTree description.
type OuterTree struct {
	K     int // number of complementarity pairs (encoding length)
	Nodes []Node

	V [][]float64 // known vertices of the player's best-response polytope
	R [][]float64 // known rays

	Pure     bool
	Feasible bool
}

// NewOuterTree allocates a tree with a single root node: no bits pinned,
// every bit eligible to branch on.
func NewOuterTree(k int) *OuterTree {
	root := Node{
		Id:                0,
		Parent:            -1,
		Encoding:          make([]bool, k),
		AllowedBranchings: allTrue(k),
	}
	return &OuterTree{K: k, Nodes: []Node{root}}
}

func allTrue(k int) []bool {
	out := make([]bool, k)
	for i := range out {
		out[i] = true
	}
	return out
}

// Root returns the root node's id (always 0).
func (t *OuterTree) Root() int { return 0 }

// Branch creates a child of node `parent` that pins bit `bit` to true
// (branched), clearing that bit from the child's AllowedBranchings. The
// new node's id is appended to the arena; the returned id is stable across
// further Branch calls (arena growth never invalidates existing ids).
func (t *OuterTree) Branch(parent int, bit int) int {
	p := &t.Nodes[parent]
	enc := append([]bool(nil), p.Encoding...)
	enc[bit] = true
	allowed := append([]bool(nil), p.AllowedBranchings...)
	allowed[bit] = false

	child := Node{
		Id:                 len(t.Nodes),
		Parent:             parent,
		Encoding:           enc,
		AllowedBranchings:  allowed,
		CumulativeBranches: numeric.PopCount(enc),
	}
	t.Nodes = append(t.Nodes, child)
	return child.Id
}

// DenyBranchingLocation clears bit `bit` from node `id`'s AllowedBranchings
// without pinning it, recording that every relaxation through this bit
// proved infeasible. Grounded on
// OuterTree::denyBranchingLocation.
func (t *OuterTree) DenyBranchingLocation(id int, bit int) {
	t.Nodes[id].AllowedBranchings[bit] = false
}

// AddVertex appends v to the tree's known vertex set if it is not already
// present within tolerance, returning whether it was added.
func (t *OuterTree) AddVertex(v []float64, tol float64) bool {
	if containsRow(t.V, v, tol) {
		return false
	}
	t.V = append(t.V, append([]float64(nil), v...))
	return true
}

// AddRay appends r to the tree's known ray set if not already present.
func (t *OuterTree) AddRay(r []float64, tol float64) bool {
	if containsRow(t.R, r, tol) {
		return false
	}
	t.R = append(t.R, append([]float64(nil), r...))
	return true
}

func containsRow(rows [][]float64, v []float64, tol float64) bool {
	for _, r := range rows {
		if len(r) != len(v) {
			continue
		}
		match := true
		for i := range v {
			d := r[i] - v[i]
			if d < 0 {
				d = -d
			}
			if d > tol {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// ResetFeasibility clears the Feasible/Pure flags at the start of a new
// feasibility check, grounded on OuterTree::resetFeasibility.
func (t *OuterTree) ResetFeasibility() {
	t.Feasible = false
	t.Pure = false
}
