package graph

import "sort"

// Neighbors returns the distinct neighbors of a node, sorted for
// deterministic traversal.
func (g *Graph) Neighbors(id string) []string {
	out := make([]string, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ConnectedComponents returns the connected components of the graph, treating
// edges as undirected. Isolated nodes each form their own component.
// Components are sorted by their smallest member, members sorted within.
func (g *Graph) ConnectedComponents() [][]string {
	uf := NewUnionFind()
	for id := range g.nodes {
		uf.Add(id)
	}
	for key := range g.edges {
		uf.Add(key.Subject)
		uf.Add(key.Object)
		uf.Union(key.Subject, key.Object)
	}

	groups := make(map[string][]string)
	for _, id := range uf.Members() {
		root := uf.Find(id)
		groups[root] = append(groups[root], id)
	}

	components := make([][]string, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		components = append(components, members)
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	return components
}

// UnionFind is a disjoint-set structure over string IDs with path compression
// and union by size.
type UnionFind struct {
	parent map[string]string
	size   map[string]int
}

// NewUnionFind creates an empty union-find.
func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[string]string),
		size:   make(map[string]int),
	}
}

// Add registers an ID as its own singleton set. Adding twice is a no-op.
func (u *UnionFind) Add(id string) {
	if _, ok := u.parent[id]; !ok {
		u.parent[id] = id
		u.size[id] = 1
	}
}

// Find returns the set representative for id, adding it if unknown.
func (u *UnionFind) Find(id string) string {
	u.Add(id)
	root := id
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// Path compression
	for u.parent[id] != root {
		id, u.parent[id] = u.parent[id], root
	}
	return root
}

// Union merges the sets containing a and b. Returns true if they were
// previously disjoint.
func (u *UnionFind) Union(a, b string) bool {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return false
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
	return true
}

// Connected reports whether a and b are in the same set.
func (u *UnionFind) Connected(a, b string) bool {
	return u.Find(a) == u.Find(b)
}

// Members returns all registered IDs, sorted.
func (u *UnionFind) Members() []string {
	out := make([]string, 0, len(u.parent))
	for id := range u.parent {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
