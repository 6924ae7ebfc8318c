package outerapprox

import (
	"testing"

	"github.com/ds4opt/epec-oa/numeric"
	"github.com/stretchr/testify/assert"
)

func TestNewOuterTreeRoot(t *testing.T) {
	tree := NewOuterTree(3)
	root := tree.Nodes[tree.Root()]
	assert.Equal(t, 0, root.CumulativeBranches)
	for _, b := range root.AllowedBranchings {
		assert.True(t, b)
	}
	for _, e := range root.Encoding {
		assert.False(t, e)
	}
}

// popcount(n.Encoding) == n.CumulativeBranches, and every bit true in
// n.Encoding is false in n.AllowedBranchings -- spec.md §8's universal
// invariant for OuterTree nodes.
func TestBranchInvariants(t *testing.T) {
	tree := NewOuterTree(4)
	n1 := tree.Branch(tree.Root(), 1)
	n2 := tree.Branch(n1, 3)

	for _, id := range []int{n1, n2} {
		node := tree.Nodes[id]
		assert.Equal(t, numeric.PopCount(node.Encoding), node.CumulativeBranches)
		for i, pinned := range node.Encoding {
			if pinned {
				assert.False(t, node.AllowedBranchings[i], "bit %d should be denied once pinned", i)
			}
		}
	}

	assert.True(t, tree.Nodes[n2].Encoding[1])
	assert.True(t, tree.Nodes[n2].Encoding[3])
	assert.Equal(t, 2, tree.Nodes[n2].CumulativeBranches)
}

func TestDenyBranchingLocationDoesNotPin(t *testing.T) {
	tree := NewOuterTree(2)
	root := tree.Root()
	tree.DenyBranchingLocation(root, 0)
	assert.False(t, tree.Nodes[root].AllowedBranchings[0])
	assert.False(t, tree.Nodes[root].Encoding[0], "deny marks a bit ineligible without pinning it")
}

func TestAddVertexDeduplicates(t *testing.T) {
	tree := NewOuterTree(2)
	assert.True(t, tree.AddVertex([]float64{1, 2}, 1e-6))
	assert.False(t, tree.AddVertex([]float64{1, 2}, 1e-6))
	assert.True(t, tree.AddVertex([]float64{1, 2.1}, 1e-6))
	assert.Len(t, tree.V, 2)
}

func TestResetFeasibilityClearsFlags(t *testing.T) {
	tree := NewOuterTree(1)
	tree.Feasible = true
	tree.Pure = true
	tree.ResetFeasibility()
	assert.False(t, tree.Feasible)
	assert.False(t, tree.Pure)
}
