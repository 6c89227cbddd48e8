package kgx

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kg-vasc/kgvasc/internal/graph"
)

// WriteNodes writes nodes as a KGX TSV. Core columns come first, followed by
// the sorted union of extra columns across all nodes.
func WriteNodes(w io.Writer, nodes []*graph.Node) error {
	extras := collectExtras(len(nodes), func(i int) map[string]string { return nodes[i].Extra })
	header := append(append([]string{}, nodeColumns...), extras...)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	for _, n := range nodes {
		row := []string{
			sanitize(n.ID),
			sanitize(n.Name),
			joinList(n.Category),
			sanitize(n.Description),
			joinList(n.Xrefs),
			joinList(n.Synonyms),
			joinList(n.ProvidedBy),
			formatBool(n.Deprecated),
		}
		for _, col := range extras {
			row = append(row, sanitize(n.Extra[col]))
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteEdges writes edges as a KGX TSV.
func WriteEdges(w io.Writer, edges []*graph.Edge) error {
	extras := collectExtras(len(edges), func(i int) map[string]string { return edges[i].Extra })
	header := append(append([]string{}, edgeColumns...), extras...)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	for _, e := range edges {
		row := []string{
			sanitize(e.Subject),
			sanitize(e.Predicate),
			sanitize(e.Object),
			sanitize(e.Relation),
			joinList(e.ProvidedBy),
		}
		for _, col := range extras {
			row = append(row, sanitize(e.Extra[col]))
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteGraphTSV writes <name>_nodes.tsv and <name>_edges.tsv into dir.
func WriteGraphTSV(dir, name string, g *graph.Graph) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, name+"_nodes.tsv"), func(w io.Writer) error {
		return WriteNodes(w, g.Nodes())
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, name+"_edges.tsv"), func(w io.Writer) error {
		return WriteEdges(w, g.Edges())
	})
}

// WriteGraphTarGz writes the node and edge TSVs of g into a tar.gz archive at
// path, with members <name>_nodes.tsv and <name>_edges.tsv.
func WriteGraphTarGz(path, name string, g *graph.Graph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	now := time.Now()
	members := []struct {
		name  string
		write func(io.Writer) error
	}{
		{name + "_nodes.tsv", func(w io.Writer) error { return WriteNodes(w, g.Nodes()) }},
		{name + "_edges.tsv", func(w io.Writer) error { return WriteEdges(w, g.Edges()) }},
	}
	for _, m := range members {
		var buf bytes.Buffer
		if err := m.write(&buf); err != nil {
			return fmt.Errorf("serializing %s: %w", m.name, err)
		}
		hdr := &tar.Header{
			Name:    m.name,
			Mode:    0644,
			Size:    int64(buf.Len()),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing %s header: %w", m.name, err)
		}
		if _, err := tw.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("writing %s: %w", m.name, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip stream: %w", err)
	}
	return f.Close()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// collectExtras returns the sorted union of extra column names.
func collectExtras(n int, extra func(i int) map[string]string) []string {
	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		for col := range extra(i) {
			seen[col] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// joinList joins a multivalued column, sanitizing each element.
func joinList(values []string) string {
	clean := make([]string, len(values))
	for i, v := range values {
		clean[i] = sanitize(v)
	}
	return strings.Join(clean, ListSeparator)
}

// sanitize strips characters that would break the TSV framing.
func sanitize(val string) string {
	val = strings.ReplaceAll(val, "\t", " ")
	val = strings.ReplaceAll(val, "\n", " ")
	return strings.ReplaceAll(val, "\r", "")
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return ""
}
