package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kg-vasc/kgvasc/internal/cli/output"
	"github.com/kg-vasc/kgvasc/internal/manifest"
	"github.com/kg-vasc/kgvasc/internal/merge"
)

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the transformed sources into a single graph",
		Long: `Load every source declared in the merge manifest, merge them into
one graph, apply the declared operations, and write the declared
destination artifacts.`,
		Example: `  # Merge with the default manifest
  kgvasc merge

  # Merge with a specific manifest and more workers
  kgvasc merge --merge-file merge.yaml --processes 4`,
		RunE: runMerge,
	}
	return cmd
}

func runMerge(cmd *cobra.Command, _ []string) error {
	cfg := getConfig(cmd)
	r := getRenderer(cmd)

	m, err := manifest.Load(cfg.MergeFile)
	if err != nil {
		return err
	}
	// The manifest may leave the output directory to the CLI config
	if m.Configuration.OutputDirectory == "" {
		m.Configuration.OutputDirectory = cfg.MergedDir
	}

	merger := merge.New(m, merge.Options{
		Processes: cfg.Processes,
		Logger:    getLogger(cmd),
	})
	result, err := merger.Run(cmd.Context())
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(result)
	}

	r.Header(1, result.GraphName)

	srcRows := make([][]string, 0, len(result.Sources))
	for _, src := range result.Sources {
		srcRows = append(srcRows, []string{
			src.Key, src.Name,
			strconv.Itoa(src.Nodes), strconv.Itoa(src.Edges),
		})
	}
	r.Table([]string{"source", "name", "nodes", "edges"}, srcRows)

	dstRows := make([][]string, 0, len(result.Destinations))
	for _, dst := range result.Destinations {
		dstRows = append(dstRows, []string{dst.Key, dst.Format, dst.Path})
	}
	r.Table([]string{"destination", "format", "path"}, dstRows)

	r.Success(fmt.Sprintf("merged %d nodes and %d edges in %s",
		result.NodeCount, result.EdgeCount, result.Duration.Round(time.Millisecond)))
	return nil
}
