package merge

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/kg-vasc/kgvasc/internal/graph"
	"github.com/kg-vasc/kgvasc/internal/stats"
)

// OpContext is handed to operations when they run.
type OpContext struct {
	// OutputDirectory is the merge run's output directory
	OutputDirectory string
	Logger          *slog.Logger
}

// Operation is a post-merge operation. Args carry the manifest's keyword
// arguments for the operation.
type Operation func(ctx context.Context, oc OpContext, g *graph.Graph, args map[string]any) error

var (
	opsMu sync.RWMutex
	ops   = make(map[string]Operation)
)

// RegisterOperation adds an operation to the registry under a short name.
func RegisterOperation(name string, op Operation) {
	opsMu.Lock()
	defer opsMu.Unlock()
	ops[name] = op
}

// LookupOperation resolves an operation by name. Dotted external references
// (kgx.graph_operations.summarize_graph.generate_graph_stats) resolve through
// their last path segment.
func LookupOperation(name string) (Operation, bool) {
	opsMu.RLock()
	defer opsMu.RUnlock()
	if op, ok := ops[name]; ok {
		return op, true
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		op, ok := ops[name[i+1:]]
		return op, ok
	}
	return nil, false
}

// KnownOperation reports whether name resolves in the registry.
func KnownOperation(name string) bool {
	_, ok := LookupOperation(name)
	return ok
}

// ListOperations returns the registered short names, sorted.
func ListOperations() []string {
	opsMu.RLock()
	defer opsMu.RUnlock()
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterOperation("generate_graph_stats", generateGraphStats)
}

// statsSubdir is where stats reports land inside the output directory.
const statsSubdir = "stats"

func generateGraphStats(_ context.Context, oc OpContext, g *graph.Graph, args map[string]any) error {
	var opts stats.Options
	if err := mapstructure.Decode(args, &opts); err != nil {
		return fmt.Errorf("decoding generate_graph_stats args: %w", err)
	}
	if opts.Filename == "" {
		opts.Filename = "merged_graph_stats.yaml"
	}

	summary := stats.Generate(g, opts)
	path := filepath.Join(oc.OutputDirectory, statsSubdir, opts.Filename)

	oc.Logger.Debug("writing graph stats", "path", path)
	if err := summary.WriteFile(path); err != nil {
		return fmt.Errorf("writing graph stats: %w", err)
	}
	return nil
}
