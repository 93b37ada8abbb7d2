package recurring

import "sort"

// unionFind is a classic disjoint-set structure with path compression,
// used to build transitive closures of linked transaction pairs within a
// counterparty bucket.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}

// components returns the member sets, each in ascending index order,
// ordered by smallest member. Callers iterate clusters in a stable
// order regardless of union sequence.
func (u *unionFind) components() [][]int {
	groups := make(map[int][]int)
	for i := range u.parent {
		root := u.find(i)
		groups[root] = append(groups[root], i)
	}

	ordered := make([][]int, 0, len(groups))
	for _, members := range groups {
		ordered = append(ordered, members)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i][0] < ordered[j][0]
	})
	return ordered
}
