// Package manifest loads and validates the merge manifest (merge.yaml): the
// declarative description of sources, post-merge operations and destinations
// for a graph-merge run.
package manifest

import (
	"fmt"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Manifest is the root of the merge configuration.
type Manifest struct {
	Configuration Configuration `koanf:"configuration"`
	MergedGraph   MergedGraph   `koanf:"merged_graph"`
}

// Configuration holds run-wide settings.
type Configuration struct {
	// OutputDirectory receives every destination artifact and the stats
	OutputDirectory string `koanf:"output_directory"`
	// Checkpoint writes the merged graph as uncompressed TSV before any
	// destination is produced
	Checkpoint bool `koanf:"checkpoint"`
}

// MergedGraph describes the graph to assemble.
type MergedGraph struct {
	Name        string                 `koanf:"name"`
	Source      map[string]Source      `koanf:"source"`
	Operations  []Operation            `koanf:"operations"`
	Destination map[string]Destination `koanf:"destination"`
}

// Source is one named input to the merge.
type Source struct {
	Name  string `koanf:"name"`
	Input Input  `koanf:"input"`
}

// Input declares the format and file list of a source. For tsv sources the
// filenames are node and edge files, conventionally in that order; for
// obojson sources each filename is an obographs JSON document.
type Input struct {
	Format   string   `koanf:"format"`
	Filename []string `koanf:"filename"`
}

// Operation is a named post-merge operation with keyword arguments. Names may
// be fully dotted external references; only the last path segment is
// significant for resolution.
type Operation struct {
	Name string         `koanf:"name"`
	Args map[string]any `koanf:"args"`
}

// Destination is one named output of the merge.
type Destination struct {
	Format      string `koanf:"format"`
	Compression string `koanf:"compression"`
	Filename    string `koanf:"filename"`
}

// Source input formats.
const (
	FormatTSV     = "tsv"
	FormatOboJSON = "obojson"
)

// Destination formats.
const (
	FormatNT      = "nt"
	FormatJournal = "jnl"
)

// Compression tags.
const (
	CompressionTarGz = "tar.gz"
	CompressionGz    = "gz"
	CompressionNone  = ""
)

// Load reads and parses a manifest from path. The result is not validated;
// call Validate separately.
func Load(path string) (*Manifest, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading merge manifest %s: %w", path, err)
	}

	var m Manifest
	if err := k.Unmarshal("", &m); err != nil {
		return nil, fmt.Errorf("decoding merge manifest %s: %w", path, err)
	}
	return &m, nil
}

// SourceKeys returns the source keys in deterministic (sorted) order. The
// merge applies sources in this order.
func (m *Manifest) SourceKeys() []string {
	keys := make([]string, 0, len(m.MergedGraph.Source))
	for k := range m.MergedGraph.Source {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DestinationKeys returns the destination keys in sorted order.
func (m *Manifest) DestinationKeys() []string {
	keys := make([]string, 0, len(m.MergedGraph.Destination))
	for k := range m.MergedGraph.Destination {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
