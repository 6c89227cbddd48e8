// Package rdf serializes a graph to the N-Triples line format, the "nt"
// destination of the merge manifest.
package rdf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kg-vasc/kgvasc/internal/graph"
)

// prefixes expand the CURIE prefixes seen in the merged ontologies. Unknown
// prefixes fall back to the OBO PURL pattern.
var prefixes = map[string]string{
	"biolink":  "https://w3id.org/biolink/vocab/",
	"rdf":      "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":     "http://www.w3.org/2000/01/rdf-schema#",
	"owl":      "http://www.w3.org/2002/07/owl#",
	"skos":     "http://www.w3.org/2004/02/skos/core#",
	"oboInOwl": "http://www.geneontology.org/formats/oboInOwl#",
}

const oboBase = "http://purl.obolibrary.org/obo/"

// Well-known predicates used for node property triples.
var (
	rdfType     = iri(ExpandCURIE("rdf:type"))
	rdfsLabel   = iri(ExpandCURIE("rdfs:label"))
	description = iri(ExpandCURIE("biolink:description"))
	providedBy  = iri(ExpandCURIE("biolink:provided_by"))
)

// ExpandCURIE expands a CURIE to a full IRI. Strings that already look like
// IRIs pass through unchanged.
func ExpandCURIE(curie string) string {
	if strings.Contains(curie, "://") {
		return curie
	}
	prefix, local, ok := strings.Cut(curie, ":")
	if !ok || prefix == "" {
		return oboBase + curie
	}
	if base, known := prefixes[prefix]; known {
		return base + local
	}
	return oboBase + prefix + "_" + local
}

// WriteGraph writes g as N-Triples. Node triples (type, label, description,
// provided_by) come first, then one triple per edge.
func WriteGraph(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)

	for _, n := range g.Nodes() {
		subj := iri(ExpandCURIE(n.ID))
		for _, cat := range n.Category {
			if err := writeTriple(bw, subj, rdfType, iri(ExpandCURIE(cat))); err != nil {
				return err
			}
		}
		if n.Name != "" {
			if err := writeTriple(bw, subj, rdfsLabel, literal(n.Name)); err != nil {
				return err
			}
		}
		if n.Description != "" {
			if err := writeTriple(bw, subj, description, literal(n.Description)); err != nil {
				return err
			}
		}
		for _, src := range n.ProvidedBy {
			if err := writeTriple(bw, subj, providedBy, literal(src)); err != nil {
				return err
			}
		}
	}

	for _, e := range g.Edges() {
		pred := e.Predicate
		if e.Relation != "" {
			pred = e.Relation
		}
		err := writeTriple(bw, iri(ExpandCURIE(e.Subject)), iri(ExpandCURIE(pred)), iri(ExpandCURIE(e.Object)))
		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteGraphFile writes g as N-Triples to path, gzip-compressed when
// compressed is true.
func WriteGraphFile(path string, g *graph.Graph, compressed bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if compressed {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err := WriteGraph(w, g); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return fmt.Errorf("closing gzip stream: %w", err)
		}
	}
	return f.Close()
}

func writeTriple(w *bufio.Writer, subject, predicate, object string) error {
	_, err := fmt.Fprintf(w, "%s %s %s .\n", subject, predicate, object)
	return err
}

func iri(s string) string {
	return "<" + s + ">"
}

// literal formats an N-Triples string literal with the escaping the grammar
// requires.
func literal(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
