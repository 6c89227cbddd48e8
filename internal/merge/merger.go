// Package merge implements the graph-merge pipeline: it loads the manifest's
// sources, merges them into a single graph, runs the declared post-merge
// operations and writes every destination artifact.
package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kg-vasc/kgvasc/internal/graph"
	"github.com/kg-vasc/kgvasc/internal/journal"
	"github.com/kg-vasc/kgvasc/internal/kgx"
	"github.com/kg-vasc/kgvasc/internal/manifest"
	"github.com/kg-vasc/kgvasc/internal/obograph"
	"github.com/kg-vasc/kgvasc/internal/rdf"
)

// checkpointName is the basename of the pre-destination merged TSV pair.
const checkpointName = "merged-graph"

// Options configures a merge run.
type Options struct {
	// Processes bounds how many sources load concurrently (minimum 1)
	Processes int
	Logger    *slog.Logger
}

// SourceResult reports one loaded source.
type SourceResult struct {
	Key   string
	Name  string
	Nodes int
	Edges int
}

// DestinationResult reports one written artifact.
type DestinationResult struct {
	Key    string
	Format string
	Path   string
}

// Result summarizes a completed merge run.
type Result struct {
	GraphName    string
	NodeCount    int
	EdgeCount    int
	Sources      []SourceResult
	Destinations []DestinationResult
	Duration     time.Duration
}

// Merger executes merge runs for a manifest.
type Merger struct {
	manifest  *manifest.Manifest
	processes int
	logger    *slog.Logger
}

// New creates a merger. The manifest is validated on Run, not here.
func New(m *manifest.Manifest, opts Options) *Merger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	processes := opts.Processes
	if processes < 1 {
		processes = 1
	}
	return &Merger{manifest: m, processes: processes, logger: logger}
}

// Run executes the merge and returns a run summary.
func (m *Merger) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	err := m.manifest.Validate(manifest.ValidateOptions{
		KnownOperation: KnownOperation,
		CheckFiles:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid merge manifest: %w", err)
	}

	outDir := m.manifest.Configuration.OutputDirectory
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	merged, sources, err := m.loadAndMerge(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Info("merged graph assembled",
		"graph", merged.Name, "nodes", merged.NodeCount(), "edges", merged.EdgeCount())

	if dangling := merged.DanglingEdges(); len(dangling) > 0 {
		m.logger.Warn("merged graph has edges without corresponding nodes", "count", len(dangling))
	}

	if m.manifest.Configuration.Checkpoint {
		m.logger.Info("writing merge checkpoint", "dir", outDir)
		if err := kgx.WriteGraphTSV(outDir, checkpointName, merged); err != nil {
			return nil, fmt.Errorf("writing checkpoint: %w", err)
		}
	}

	oc := OpContext{OutputDirectory: outDir, Logger: m.logger}
	for _, op := range m.manifest.MergedGraph.Operations {
		fn, ok := LookupOperation(op.Name)
		if !ok {
			// Validation guarantees this does not happen
			return nil, fmt.Errorf("operation %s: %w", op.Name, manifest.ErrUnknownOperation)
		}
		m.logger.Info("running operation", "operation", op.Name)
		if err := fn(ctx, oc, merged, op.Args); err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.Name, err)
		}
	}

	destinations, err := m.writeDestinations(ctx, merged)
	if err != nil {
		return nil, err
	}

	return &Result{
		GraphName:    merged.Name,
		NodeCount:    merged.NodeCount(),
		EdgeCount:    merged.EdgeCount(),
		Sources:      sources,
		Destinations: destinations,
		Duration:     time.Since(start),
	}, nil
}

// loadAndMerge loads every source concurrently and merges them in manifest
// key order so the result is deterministic regardless of completion order.
func (m *Merger) loadAndMerge(ctx context.Context) (*graph.Graph, []SourceResult, error) {
	keys := m.manifest.SourceKeys()
	subgraphs := make([]*graph.Graph, len(keys))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(m.processes)
	for i, key := range keys {
		src := m.manifest.MergedGraph.Source[key]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			m.logger.Info("loading source", "source", key, "format", src.Input.Format)
			sg, err := loadSource(key, src)
			if err != nil {
				return fmt.Errorf("loading source %s: %w", key, err)
			}
			subgraphs[i] = sg
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	merged := graph.New(m.manifest.MergedGraph.Name)
	results := make([]SourceResult, 0, len(keys))
	for i, key := range keys {
		sg := subgraphs[i]
		results = append(results, SourceResult{
			Key:   key,
			Name:  m.manifest.MergedGraph.Source[key].Name,
			Nodes: sg.NodeCount(),
			Edges: sg.EdgeCount(),
		})
		if err := merged.MergeFrom(sg); err != nil {
			return nil, nil, fmt.Errorf("merging source %s: %w", key, err)
		}
	}
	return merged, results, nil
}

// loadSource parses one source into a subgraph. Records without a
// provided_by are tagged with the source name.
func loadSource(key string, src manifest.Source) (*graph.Graph, error) {
	g := graph.New(src.Name)

	switch src.Input.Format {
	case manifest.FormatTSV:
		nodeFiles, edgeFiles := classifyTSVFiles(src.Input.Filename)
		for _, path := range nodeFiles {
			nodes, err := kgx.ReadNodeFile(path)
			if err != nil {
				return nil, err
			}
			for _, n := range nodes {
				if len(n.ProvidedBy) == 0 {
					n.ProvidedBy = []string{src.Name}
				}
				if err := g.AddNode(n); err != nil {
					return nil, fmt.Errorf("%s: %w", path, err)
				}
			}
		}
		for _, path := range edgeFiles {
			edges, err := kgx.ReadEdgeFile(path)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if len(e.ProvidedBy) == 0 {
					e.ProvidedBy = []string{src.Name}
				}
				if err := g.AddEdge(e); err != nil {
					return nil, fmt.Errorf("%s: %w", path, err)
				}
			}
		}
	case manifest.FormatOboJSON:
		for _, path := range src.Input.Filename {
			doc, err := obograph.ParseFile(path)
			if err != nil {
				return nil, err
			}
			sub, err := doc.ToGraph(src.Name)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if err := g.MergeFrom(sub); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	default:
		return nil, fmt.Errorf("source %s: unsupported input format %q", key, src.Input.Format)
	}

	return g, nil
}

// classifyTSVFiles splits a source's file list into node and edge files by
// filename convention; files that match neither fall back to list order
// (nodes first, then edges).
func classifyTSVFiles(files []string) (nodeFiles, edgeFiles []string) {
	var unclassified []string
	for _, f := range files {
		base := filepath.Base(f)
		switch {
		case strings.Contains(base, "node"):
			nodeFiles = append(nodeFiles, f)
		case strings.Contains(base, "edge"):
			edgeFiles = append(edgeFiles, f)
		default:
			unclassified = append(unclassified, f)
		}
	}
	for i, f := range unclassified {
		if i == 0 && len(nodeFiles) == 0 {
			nodeFiles = append(nodeFiles, f)
		} else {
			edgeFiles = append(edgeFiles, f)
		}
	}
	return nodeFiles, edgeFiles
}

// writeDestinations produces every declared destination artifact.
func (m *Merger) writeDestinations(ctx context.Context, g *graph.Graph) ([]DestinationResult, error) {
	var results []DestinationResult
	for _, key := range m.manifest.DestinationKeys() {
		dst := m.manifest.MergedGraph.Destination[key]
		path, err := m.writeDestination(ctx, g, dst)
		if err != nil {
			return nil, fmt.Errorf("destination %s: %w", key, err)
		}
		m.logger.Info("wrote destination", "destination", key, "format", dst.Format, "path", path)
		results = append(results, DestinationResult{Key: key, Format: dst.Format, Path: path})
	}
	return results, nil
}

func (m *Merger) writeDestination(ctx context.Context, g *graph.Graph, dst manifest.Destination) (string, error) {
	outDir := m.manifest.Configuration.OutputDirectory

	switch dst.Format {
	case manifest.FormatTSV:
		if dst.Compression == manifest.CompressionTarGz {
			name := strings.TrimSuffix(dst.Filename, ".tar.gz")
			path := filepath.Join(outDir, name+".tar.gz")
			return path, kgx.WriteGraphTarGz(path, name, g)
		}
		return filepath.Join(outDir, dst.Filename+"_nodes.tsv"), kgx.WriteGraphTSV(outDir, dst.Filename, g)

	case manifest.FormatNT:
		compressed := dst.Compression == manifest.CompressionGz
		name := dst.Filename
		if compressed && !strings.HasSuffix(name, ".gz") {
			name += ".gz"
		}
		path := filepath.Join(outDir, name)
		return path, rdf.WriteGraphFile(path, g, compressed)

	case manifest.FormatJournal:
		compressed := dst.Compression == manifest.CompressionGz
		name := dst.Filename
		if compressed && !strings.HasSuffix(name, ".gz") {
			name += ".gz"
		}
		path := filepath.Join(outDir, name)
		build := journal.NewBuild(g.Name)
		build.NodeCount = g.NodeCount()
		build.EdgeCount = g.EdgeCount()
		build.Status = journal.StatusCompleted
		build.FinishedAt = time.Now().UTC()
		return path, journal.WriteJournal(ctx, path, compressed, g, build)

	default:
		return "", fmt.Errorf("unsupported destination format %q", dst.Format)
	}
}
