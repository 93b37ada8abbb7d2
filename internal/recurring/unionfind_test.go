package recurring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionFind_TransitiveClosure(t *testing.T) {
	// a-b and b-c linked, a-c not: still one component.
	uf := newUnionFind(4)
	uf.union(0, 1)
	uf.union(1, 2)

	assert.Equal(t, uf.find(0), uf.find(2))
	assert.NotEqual(t, uf.find(0), uf.find(3))

	groups := uf.components()
	assert.Equal(t, [][]int{{0, 1, 2}, {3}}, groups)
}

func TestUnionFind_Idempotent(t *testing.T) {
	uf := newUnionFind(3)
	uf.union(0, 1)
	uf.union(0, 1)
	uf.union(1, 0)

	groups := uf.components()
	assert.Len(t, groups, 2)
}

func TestUnionFind_ComponentsOrderedBySmallestMember(t *testing.T) {
	uf := newUnionFind(6)
	uf.union(4, 5)
	uf.union(3, 1)

	// Order must not depend on union sequence.
	assert.Equal(t, [][]int{{0}, {1, 3}, {2}, {4, 5}}, uf.components())
}
