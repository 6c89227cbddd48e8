// Package stats computes graph summary statistics, the equivalent of the
// generate_graph_stats operation the merge manifest references. The output
// is a YAML report of node and edge tallies, optionally faceted over record
// properties such as provided_by.
package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kg-vasc/kgvasc/internal/graph"
)

// unknownCategory buckets records without a category.
const unknownCategory = "unknown"

// Options configures stats generation. Field names mirror the manifest
// operation's keyword arguments.
type Options struct {
	GraphName           string   `mapstructure:"graph_name"`
	Filename            string   `mapstructure:"filename"`
	NodeFacetProperties []string `mapstructure:"node_facet_properties"`
	EdgeFacetProperties []string `mapstructure:"edge_facet_properties"`
}

// Summary is the full stats report.
type Summary struct {
	GraphName string    `yaml:"graph_name"`
	NodeStats NodeStats `yaml:"node_stats"`
	EdgeStats EdgeStats `yaml:"edge_stats"`
}

// NodeStats tallies nodes.
type NodeStats struct {
	TotalNodes        int                `yaml:"total_nodes"`
	NodeCategories    []string           `yaml:"node_categories"`
	CountByCategory   map[string]*Bucket `yaml:"count_by_category"`
	CountByIDPrefixes map[string]int     `yaml:"count_by_id_prefixes"`
}

// EdgeStats tallies edges.
type EdgeStats struct {
	TotalEdges        int                `yaml:"total_edges"`
	Predicates        []string           `yaml:"predicates"`
	CountByPredicates map[string]*Bucket `yaml:"count_by_predicates"`
	CountBySPO        map[string]*Bucket `yaml:"count_by_spo"`
}

// Bucket is a count with optional per-facet value distributions, e.g.
// {count: 12, provided_by: {hp: 7, envo: 5}}.
type Bucket struct {
	Count  int                       `yaml:"count"`
	Facets map[string]map[string]int `yaml:",inline"`
}

func newBucket() *Bucket {
	return &Bucket{Facets: make(map[string]map[string]int)}
}

func (b *Bucket) tally(facet string, values []string) {
	if len(values) == 0 {
		values = []string{unknownCategory}
	}
	if b.Facets[facet] == nil {
		b.Facets[facet] = make(map[string]int)
	}
	for _, v := range values {
		b.Facets[facet][v]++
	}
}

// Generate computes the summary for a graph.
func Generate(g *graph.Graph, opts Options) *Summary {
	name := opts.GraphName
	if name == "" {
		name = g.Name
	}
	s := &Summary{
		GraphName: name,
		NodeStats: NodeStats{
			CountByCategory:   make(map[string]*Bucket),
			CountByIDPrefixes: make(map[string]int),
		},
		EdgeStats: EdgeStats{
			CountByPredicates: make(map[string]*Bucket),
			CountBySPO:        make(map[string]*Bucket),
		},
	}

	for _, n := range g.Nodes() {
		s.NodeStats.TotalNodes++
		s.NodeStats.CountByIDPrefixes[idPrefix(n.ID)]++

		for _, cat := range categoriesOf(n.Category) {
			bucket := s.NodeStats.CountByCategory[cat]
			if bucket == nil {
				bucket = newBucket()
				s.NodeStats.CountByCategory[cat] = bucket
			}
			bucket.Count++
			for _, facet := range opts.NodeFacetProperties {
				bucket.tally(facet, nodeProperty(n, facet))
			}
		}
	}
	s.NodeStats.NodeCategories = sortedKeys(s.NodeStats.CountByCategory)

	for _, e := range g.Edges() {
		s.EdgeStats.TotalEdges++

		bucket := s.EdgeStats.CountByPredicates[e.Predicate]
		if bucket == nil {
			bucket = newBucket()
			s.EdgeStats.CountByPredicates[e.Predicate] = bucket
		}
		bucket.Count++
		for _, facet := range opts.EdgeFacetProperties {
			bucket.tally(facet, edgeProperty(e, facet))
		}

		spo := spoKey(g, e)
		spoBucket := s.EdgeStats.CountBySPO[spo]
		if spoBucket == nil {
			spoBucket = newBucket()
			s.EdgeStats.CountBySPO[spo] = spoBucket
		}
		spoBucket.Count++
	}
	s.EdgeStats.Predicates = sortedKeys(s.EdgeStats.CountByPredicates)

	return s
}

// WriteFile writes the summary as YAML to path, creating parent directories.
func (s *Summary) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating stats directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating stats file: %w", err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("encoding stats: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flushing stats: %w", err)
	}
	return f.Close()
}

func categoriesOf(categories []string) []string {
	if len(categories) == 0 {
		return []string{unknownCategory}
	}
	return categories
}

func categoryOf(g *graph.Graph, id string) string {
	if n, ok := g.Node(id); ok && len(n.Category) > 0 {
		return n.Category[0]
	}
	return unknownCategory
}

func spoKey(g *graph.Graph, e *graph.Edge) string {
	return categoryOf(g, e.Subject) + "-" + e.Predicate + "-" + categoryOf(g, e.Object)
}

func nodeProperty(n *graph.Node, prop string) []string {
	switch prop {
	case "provided_by":
		return n.ProvidedBy
	case "category":
		return n.Category
	default:
		if v, ok := n.Extra[prop]; ok && v != "" {
			return strings.Split(v, "|")
		}
		return nil
	}
}

func edgeProperty(e *graph.Edge, prop string) []string {
	switch prop {
	case "provided_by":
		return e.ProvidedBy
	case "predicate":
		return []string{e.Predicate}
	case "relation":
		if e.Relation != "" {
			return []string{e.Relation}
		}
		return nil
	default:
		if v, ok := e.Extra[prop]; ok && v != "" {
			return strings.Split(v, "|")
		}
		return nil
	}
}

func idPrefix(id string) string {
	if i := strings.Index(id, ":"); i > 0 {
		return id[:i]
	}
	return unknownCategory
}

func sortedKeys(m map[string]*Bucket) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
