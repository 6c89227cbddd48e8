package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kg-vasc/kgvasc/internal/cli/output"
	"github.com/kg-vasc/kgvasc/internal/transform"
)

// NewTransformCommand creates the transform command.
func NewTransformCommand() *cobra.Command {
	var selected []string

	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform raw ontologies into KGX node and edge TSVs",
		Long: `Convert downloaded obographs JSON ontologies into KGX TSV files
under the transformed data directory, one node and edge file per source.`,
		Example: `  # Transform every registered source
  kgvasc transform

  # Transform a single source
  kgvasc transform --source hp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransform(cmd, selected)
		},
	}

	cmd.Flags().StringSliceVarP(&selected, "source", "s", nil,
		"Sources to transform (default: all of "+strings.Join(transform.SourceNames(), ", ")+")")
	_ = cmd.RegisterFlagCompletionFunc("source", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return transform.SourceNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runTransform(cmd *cobra.Command, selected []string) error {
	cfg := getConfig(cmd)
	r := getRenderer(cmd)

	results, err := transform.Run(cmd.Context(), transform.Options{
		InputDir:  cfg.RawDir,
		OutputDir: cfg.TransformedDir,
		Sources:   selected,
		Logger:    getLogger(cmd),
	})
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		rows = append(rows, []string{
			res.Source,
			strconv.Itoa(res.Nodes),
			strconv.Itoa(res.Edges),
		})
	}
	r.Table([]string{"source", "nodes", "edges"}, rows)
	r.Success(fmt.Sprintf("%d sources transformed into %s", len(results), cfg.TransformedDir))
	return nil
}
