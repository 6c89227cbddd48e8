// Package transform converts raw ontology downloads into KGX node and edge
// TSV files, one pair per source, under <output>/ontologies/.
package transform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kg-vasc/kgvasc/internal/kgx"
	"github.com/kg-vasc/kgvasc/internal/obograph"
)

// ontologySubdir is where transformed TSVs land inside the output directory.
const ontologySubdir = "ontologies"

// Source describes one transformable data source.
type Source struct {
	// Name is the registry key and output file prefix
	Name string
	// RawFile is the expected filename inside the raw data directory
	RawFile string
}

// sources is the registry of known data sources, keyed by name. These are
// the ontologies the merge manifest consumes.
var sources = map[string]Source{
	"hp":   {Name: "hp", RawFile: "hp.json"},
	"envo": {Name: "envo", RawFile: "envo.json"},
}

// SourceNames returns the registered source names, sorted.
func SourceNames() []string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures a transform run.
type Options struct {
	// InputDir is the raw data directory
	InputDir string
	// OutputDir is the transformed data directory
	OutputDir string
	// Sources restricts the run to the named sources; empty means all
	Sources []string
	Logger  *slog.Logger
}

// Result reports one transformed source.
type Result struct {
	Source    string
	NodesPath string
	EdgesPath string
	Nodes     int
	Edges     int
}

// Run transforms the selected sources.
func Run(ctx context.Context, opts Options) ([]Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	selected, err := selectSources(opts.Sources)
	if err != nil {
		return nil, err
	}

	outDir := filepath.Join(opts.OutputDir, ontologySubdir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var results []Result
	for _, src := range selected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger.Info("transforming source", "source", src.Name)
		res, err := transformSource(src, opts.InputDir, outDir)
		if err != nil {
			return nil, fmt.Errorf("transforming %s: %w", src.Name, err)
		}
		logger.Info("transformed source",
			"source", src.Name, "nodes", res.Nodes, "edges", res.Edges)
		results = append(results, res)
	}
	return results, nil
}

func selectSources(names []string) ([]Source, error) {
	if len(names) == 0 {
		names = SourceNames()
	}
	selected := make([]Source, 0, len(names))
	for _, name := range names {
		src, ok := sources[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown source %q (known sources: %s)",
				name, strings.Join(SourceNames(), ", "))
		}
		selected = append(selected, src)
	}
	return selected, nil
}

func transformSource(src Source, inputDir, outDir string) (Result, error) {
	rawPath := filepath.Join(inputDir, src.RawFile)
	doc, err := obograph.ParseFile(rawPath)
	if err != nil {
		return Result{}, err
	}

	g, err := doc.ToGraph(src.Name)
	if err != nil {
		return Result{}, err
	}

	if err := kgx.WriteGraphTSV(outDir, src.Name, g); err != nil {
		return Result{}, err
	}

	return Result{
		Source:    src.Name,
		NodesPath: filepath.Join(outDir, src.Name+"_nodes.tsv"),
		EdgesPath: filepath.Join(outDir, src.Name+"_edges.tsv"),
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
	}, nil
}
