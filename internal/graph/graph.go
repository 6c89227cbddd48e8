// Package graph provides the in-memory property graph used by the merge
// pipeline. It implements KGX-style merge semantics: nodes are keyed by CURIE,
// edges by (subject, predicate, object, relation), and colliding records are
// merged rather than duplicated.
package graph

import (
	"fmt"
	"sort"
)

// Node is a graph node in the KGX property model.
type Node struct {
	// ID is the node CURIE (e.g. "HP:0002597")
	ID          string
	Name        string
	Category    []string
	Description string
	Xrefs       []string
	Synonyms    []string
	// ProvidedBy accumulates one entry per source that contributed the node
	ProvidedBy []string
	Deprecated bool
	// Extra holds columns outside the core KGX schema
	Extra map[string]string
}

// Edge is a directed, typed edge between two nodes.
type Edge struct {
	Subject    string
	Predicate  string
	Object     string
	Relation   string
	ProvidedBy []string
	Extra      map[string]string
}

// EdgeKey identifies an edge for dedup purposes.
type EdgeKey struct {
	Subject   string
	Predicate string
	Object    string
	Relation  string
}

// Key returns the dedup key for an edge.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Subject: e.Subject, Predicate: e.Predicate, Object: e.Object, Relation: e.Relation}
}

// Graph is a mutable property graph with merge-on-insert semantics.
type Graph struct {
	Name  string
	nodes map[string]*Node
	edges map[EdgeKey]*Edge
	// adj is an undirected adjacency index over edge endpoints
	adj map[string]map[string]struct{}
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		Name:  name,
		nodes: make(map[string]*Node),
		edges: make(map[EdgeKey]*Edge),
		adj:   make(map[string]map[string]struct{}),
	}
}

// AddNode inserts a node, merging it with any existing node with the same ID.
func (g *Graph) AddNode(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("node is missing an id")
	}
	existing, ok := g.nodes[n.ID]
	if !ok {
		g.nodes[n.ID] = n
		return nil
	}
	mergeNode(existing, n)
	return nil
}

// AddEdge inserts an edge, merging it with any existing edge with the same
// (subject, predicate, object, relation) key.
func (g *Graph) AddEdge(e *Edge) error {
	if e.Subject == "" || e.Predicate == "" || e.Object == "" {
		return fmt.Errorf("edge %s-%s-%s is missing subject, predicate or object", e.Subject, e.Predicate, e.Object)
	}
	key := e.Key()
	existing, ok := g.edges[key]
	if !ok {
		g.edges[key] = e
		g.link(e.Subject, e.Object)
		return nil
	}
	mergeEdge(existing, e)
	return nil
}

func (g *Graph) link(a, b string) {
	if g.adj[a] == nil {
		g.adj[a] = make(map[string]struct{})
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[string]struct{})
	}
	g.adj[a][b] = struct{}{}
	g.adj[b][a] = struct{}{}
}

// Node returns the node with the given ID, if present.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasEdge reports whether an edge with the given subject and object exists in
// either direction, regardless of predicate.
func (g *Graph) HasEdge(subject, object string) bool {
	_, ok := g.adj[subject][object]
	return ok
}

// Degree returns the number of distinct neighbors of a node.
func (g *Graph) Degree(id string) int {
	return len(g.adj[id])
}

// Nodes returns all nodes sorted by ID for deterministic output.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all edges sorted by (subject, predicate, object, relation).
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Predicate != b.Predicate {
			return a.Predicate < b.Predicate
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Relation < b.Relation
	})
	return edges
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// MergeFrom merges every node and edge of other into g. Records are adopted,
// not copied; other must not be mutated afterwards.
func (g *Graph) MergeFrom(other *Graph) error {
	for _, n := range other.Nodes() {
		if err := g.AddNode(n); err != nil {
			return fmt.Errorf("merging node %s: %w", n.ID, err)
		}
	}
	for _, e := range other.Edges() {
		if err := g.AddEdge(e); err != nil {
			return fmt.Errorf("merging edge %s-%s-%s: %w", e.Subject, e.Predicate, e.Object, err)
		}
	}
	return nil
}

// DanglingEdges returns edges whose subject or object has no corresponding
// node in the graph.
func (g *Graph) DanglingEdges() []*Edge {
	var dangling []*Edge
	for _, e := range g.Edges() {
		if _, ok := g.nodes[e.Subject]; !ok {
			dangling = append(dangling, e)
			continue
		}
		if _, ok := g.nodes[e.Object]; !ok {
			dangling = append(dangling, e)
		}
	}
	return dangling
}

// mergeNode folds src into dst. Scalar fields keep the first non-empty value,
// list fields union in insertion order, extra columns fill missing keys only.
func mergeNode(dst, src *Node) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	dst.Category = appendUnique(dst.Category, src.Category...)
	dst.Xrefs = appendUnique(dst.Xrefs, src.Xrefs...)
	dst.Synonyms = appendUnique(dst.Synonyms, src.Synonyms...)
	dst.ProvidedBy = appendUnique(dst.ProvidedBy, src.ProvidedBy...)
	dst.Deprecated = dst.Deprecated || src.Deprecated
	dst.Extra = mergeExtra(dst.Extra, src.Extra)
}

func mergeEdge(dst, src *Edge) {
	dst.ProvidedBy = appendUnique(dst.ProvidedBy, src.ProvidedBy...)
	dst.Extra = mergeExtra(dst.Extra, src.Extra)
}

func mergeExtra(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	return dst
}

// appendUnique appends values not already present, preserving order.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		found := false
		for _, existing := range dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
