// Package obograph parses obographs JSON ontology documents and converts
// them into the property graph model. This is the raw format HP and ENVO are
// downloaded in.
package obograph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kg-vasc/kgvasc/internal/graph"
)

// Document is the root of an obographs JSON file.
type Document struct {
	Graphs []OntologyGraph `json:"graphs"`
}

// OntologyGraph is one ontology within a document.
type OntologyGraph struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is an obographs node.
type Node struct {
	ID   string `json:"id"`
	Lbl  string `json:"lbl"`
	Type string `json:"type"`
	Meta *Meta  `json:"meta"`
}

// Meta carries the node annotations the transform keeps.
type Meta struct {
	Definition *Definition `json:"definition"`
	Synonyms   []Synonym   `json:"synonyms"`
	Xrefs      []Xref      `json:"xrefs"`
	Deprecated bool        `json:"deprecated"`
}

// Definition is a node's textual definition.
type Definition struct {
	Val string `json:"val"`
}

// Synonym is one synonym annotation.
type Synonym struct {
	Pred string `json:"pred"`
	Val  string `json:"val"`
}

// Xref is a cross-reference annotation.
type Xref struct {
	Val string `json:"val"`
}

// Edge is an obographs edge.
type Edge struct {
	Sub  string `json:"sub"`
	Pred string `json:"pred"`
	Obj  string `json:"obj"`
}

// Parse decodes an obographs JSON document.
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding obograph document: %w", err)
	}
	if len(doc.Graphs) == 0 {
		return nil, fmt.Errorf("obograph document has no graphs")
	}
	return &doc, nil
}

// ParseFile decodes an obographs JSON document from disk.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ontology file: %w", err)
	}
	defer f.Close()
	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// categoryByPrefix maps CURIE prefixes onto biolink categories.
var categoryByPrefix = map[string]string{
	"HP":   "biolink:PhenotypicFeature",
	"ENVO": "biolink:EnvironmentalFeature",
}

const defaultCategory = "biolink:OntologyClass"

// predicatesByIRI maps ontology edge predicates onto biolink predicates.
var predicatesByIRI = map[string]struct{ predicate, relation string }{
	"is_a":          {"biolink:subclass_of", "rdfs:subClassOf"},
	"subPropertyOf": {"biolink:subclass_of", "rdfs:subPropertyOf"},
	"BFO:0000050":   {"biolink:part_of", "BFO:0000050"},
	"BFO:0000051":   {"biolink:has_part", "BFO:0000051"},
	"RO:0002202":    {"biolink:develops_from", "RO:0002202"},
}

// ToGraph converts every ontology graph in the document into one property
// graph. All records are tagged with source as their provided_by.
func (d *Document) ToGraph(source string) (*graph.Graph, error) {
	g := graph.New(source)

	for _, og := range d.Graphs {
		for _, n := range og.Nodes {
			if n.Type != "" && n.Type != "CLASS" {
				// Properties and individuals are not part of the KG
				continue
			}
			id := CURIE(n.ID)
			node := &graph.Node{
				ID:         id,
				Name:       n.Lbl,
				Category:   []string{categoryFor(id)},
				ProvidedBy: []string{source},
				Extra:      map[string]string{"iri": n.ID},
			}
			if n.Meta != nil {
				if n.Meta.Definition != nil {
					node.Description = n.Meta.Definition.Val
				}
				for _, syn := range n.Meta.Synonyms {
					node.Synonyms = append(node.Synonyms, syn.Val)
				}
				for _, xref := range n.Meta.Xrefs {
					node.Xrefs = append(node.Xrefs, xref.Val)
				}
				node.Deprecated = n.Meta.Deprecated
			}
			if err := g.AddNode(node); err != nil {
				return nil, err
			}
		}

		for _, e := range og.Edges {
			predicate, relation := mapPredicate(e.Pred)
			edge := &graph.Edge{
				Subject:    CURIE(e.Sub),
				Predicate:  predicate,
				Object:     CURIE(e.Obj),
				Relation:   relation,
				ProvidedBy: []string{source},
			}
			if err := g.AddEdge(edge); err != nil {
				return nil, err
			}
		}
	}

	return g, nil
}

// CURIE compacts an OBO PURL IRI (or bare identifier) into CURIE form:
// http://purl.obolibrary.org/obo/HP_0002597 -> HP:0002597.
func CURIE(iri string) string {
	if !strings.Contains(iri, "://") {
		return iri
	}
	frag := iri
	if i := strings.LastIndexAny(frag, "/#"); i >= 0 {
		frag = frag[i+1:]
	}
	if prefix, local, ok := strings.Cut(frag, "_"); ok && prefix != "" && local != "" {
		return prefix + ":" + local
	}
	return frag
}

func categoryFor(id string) string {
	prefix, _, ok := strings.Cut(id, ":")
	if !ok {
		return defaultCategory
	}
	if cat, ok := categoryByPrefix[prefix]; ok {
		return cat
	}
	return defaultCategory
}

func mapPredicate(pred string) (predicate, relation string) {
	key := pred
	if strings.Contains(pred, "://") {
		key = CURIE(pred)
	}
	if m, ok := predicatesByIRI[key]; ok {
		return m.predicate, m.relation
	}
	return "biolink:related_to", key
}
