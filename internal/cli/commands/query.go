package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kg-vasc/kgvasc/internal/cli/output"
	"github.com/kg-vasc/kgvasc/internal/query"
)

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var (
		outputDir string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "query <query.yaml>",
		Short: "Run a SPARQL query and save the results as TSV",
		Long: `Run the SPARQL query declared in a YAML file against its endpoint
and write the result bindings as a TSV file named after the query file.`,
		Example: `  # Run a query and write results under data/queries/
  kgvasc query queries/vascular-terms.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], outputDir, timeout)
		},
	}

	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for result TSVs (default: data/queries under the project root)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Query timeout")

	return cmd
}

func runQuery(cmd *cobra.Command, specPath, outputDir string, timeout time.Duration) error {
	cfg := getConfig(cmd)
	r := getRenderer(cmd)

	if outputDir == "" {
		outputDir = filepath.Join(cfg.ProjectRoot, "data", "queries")
	}

	result, err := query.Run(cmd.Context(), specPath, query.Options{
		OutputDir: outputDir,
		Timeout:   timeout,
		Logger:    getLogger(cmd),
	})
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(result)
	}
	r.Println(output.FormatKeyValue("endpoint", result.Endpoint))
	r.Println(output.FormatKeyValue("columns", strings.Join(result.Columns, ", ")))
	r.Success(fmt.Sprintf("%d rows written to %s", result.Rows, result.Path))
	return nil
}
