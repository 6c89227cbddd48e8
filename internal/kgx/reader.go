// Package kgx reads and writes KGX-format node and edge TSV files.
// Columns outside the core KGX schema are preserved round-trip; multivalued
// columns use the pipe separator.
package kgx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kg-vasc/kgvasc/internal/graph"
)

// ListSeparator delimits multivalued column values.
const ListSeparator = "|"

// Core node columns, in output order.
var nodeColumns = []string{"id", "name", "category", "description", "xref", "synonym", "provided_by", "deprecated"}

// Core edge columns, in output order.
var edgeColumns = []string{"subject", "predicate", "object", "relation", "provided_by"}

// maxLineBytes bounds a single TSV line; ontology descriptions can be long.
const maxLineBytes = 4 * 1024 * 1024

// ReadNodeFile reads a KGX nodes TSV from disk.
func ReadNodeFile(path string) ([]*graph.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening nodes file: %w", err)
	}
	defer f.Close()
	nodes, err := ReadNodes(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return nodes, nil
}

// ReadEdgeFile reads a KGX edges TSV from disk.
func ReadEdgeFile(path string) ([]*graph.Edge, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening edges file: %w", err)
	}
	defer f.Close()
	edges, err := ReadEdges(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return edges, nil
}

// ReadNodes parses a KGX nodes TSV. The first line is the header; an "id"
// column is required. Blank lines are skipped.
func ReadNodes(r io.Reader) ([]*graph.Node, error) {
	rows, header, err := readTSV(r)
	if err != nil {
		return nil, err
	}
	if _, ok := header["id"]; !ok {
		return nil, fmt.Errorf("nodes file has no id column")
	}

	nodes := make([]*graph.Node, 0, len(rows))
	for i, row := range rows {
		n := &graph.Node{}
		for col, idx := range header {
			if idx >= len(row) {
				continue
			}
			val := row[idx]
			if val == "" {
				continue
			}
			switch col {
			case "id":
				n.ID = val
			case "name":
				n.Name = val
			case "category":
				n.Category = splitList(val)
			case "description":
				n.Description = val
			case "xref":
				n.Xrefs = splitList(val)
			case "synonym":
				n.Synonyms = splitList(val)
			case "provided_by":
				n.ProvidedBy = splitList(val)
			case "deprecated":
				n.Deprecated = strings.EqualFold(val, "true")
			default:
				if n.Extra == nil {
					n.Extra = make(map[string]string)
				}
				n.Extra[col] = val
			}
		}
		if n.ID == "" {
			return nil, fmt.Errorf("node row %d is missing an id", i+2)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ReadEdges parses a KGX edges TSV. Subject, predicate and object columns are
// required on every row.
func ReadEdges(r io.Reader) ([]*graph.Edge, error) {
	rows, header, err := readTSV(r)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{"subject", "predicate", "object"} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("edges file has no %s column", col)
		}
	}

	edges := make([]*graph.Edge, 0, len(rows))
	for i, row := range rows {
		e := &graph.Edge{}
		for col, idx := range header {
			if idx >= len(row) {
				continue
			}
			val := row[idx]
			if val == "" {
				continue
			}
			switch col {
			case "subject":
				e.Subject = val
			case "predicate":
				e.Predicate = val
			case "object":
				e.Object = val
			case "relation":
				e.Relation = val
			case "provided_by":
				e.ProvidedBy = splitList(val)
			default:
				if e.Extra == nil {
					e.Extra = make(map[string]string)
				}
				e.Extra[col] = val
			}
		}
		if e.Subject == "" || e.Predicate == "" || e.Object == "" {
			return nil, fmt.Errorf("edge row %d is missing subject, predicate or object", i+2)
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// readTSV reads all rows and returns them with a column->index header map.
func readTSV(r io.Reader) ([][]string, map[string]int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("file is empty")
	}

	header := make(map[string]int)
	for i, col := range strings.Split(scanner.Text(), "\t") {
		header[strings.TrimSpace(col)] = i
	}

	var rows [][]string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return rows, header, nil
}

func splitList(val string) []string {
	parts := strings.Split(val, ListSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
