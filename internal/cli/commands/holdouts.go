package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kg-vasc/kgvasc/internal/cli/output"
	"github.com/kg-vasc/kgvasc/internal/graph"
	"github.com/kg-vasc/kgvasc/internal/holdout"
	"github.com/kg-vasc/kgvasc/internal/kgx"
)

// HoldoutsOptions holds options for the holdouts command.
type HoldoutsOptions struct {
	NodesFile     string
	EdgesFile     string
	OutputDir     string
	TrainFraction float64
	Validation    bool
	Seed          int64
}

// NewHoldoutsCommand creates the holdouts command.
func NewHoldoutsCommand() *cobra.Command {
	opts := &HoldoutsOptions{}

	cmd := &cobra.Command{
		Use:   "holdouts",
		Short: "Split the merged graph into train/test edge sets",
		Long: `Split the merged graph's edges into training and test sets for link
prediction, keeping a spanning forest in training so held-out edges never
disconnect the training graph. Negative (non-existent) edges are sampled
to match, and all sets are written as KGX edge TSVs.`,
		Example: `  # Split the merged graph 80/20
  kgvasc holdouts

  # Reproducible 70/15/15 split with a validation set
  kgvasc holdouts --train-fraction 0.7 --validation --seed 42`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHoldouts(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.NodesFile, "nodes", "n", "", "Merged node TSV (default: <merged-dir>/merged-graph_nodes.tsv)")
	cmd.Flags().StringVarP(&opts.EdgesFile, "edges", "e", "", "Merged edge TSV (default: <merged-dir>/merged-graph_edges.tsv)")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "Directory for the edge set TSVs (default: <merged-dir>/holdouts)")
	cmd.Flags().Float64VarP(&opts.TrainFraction, "train-fraction", "t", 0.8, "Fraction of edges kept for training")
	cmd.Flags().BoolVar(&opts.Validation, "validation", false, "Also produce a validation set")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 42, "Random seed for reproducible sampling")

	return cmd
}

func runHoldouts(cmd *cobra.Command, opts *HoldoutsOptions) error {
	cfg := getConfig(cmd)
	r := getRenderer(cmd)

	nodesFile := opts.NodesFile
	if nodesFile == "" {
		nodesFile = filepath.Join(cfg.MergedDir, "merged-graph_nodes.tsv")
	}
	edgesFile := opts.EdgesFile
	if edgesFile == "" {
		edgesFile = filepath.Join(cfg.MergedDir, "merged-graph_edges.tsv")
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(cfg.MergedDir, "holdouts")
	}

	g, err := loadGraphTSV(nodesFile, edgesFile)
	if err != nil {
		return err
	}

	result, err := holdout.Run(cmd.Context(), g, holdout.Options{
		TrainFraction: opts.TrainFraction,
		Validation:    opts.Validation,
		Seed:          opts.Seed,
		OutputDir:     outputDir,
		Logger:        getLogger(cmd),
	})
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(result)
	}

	r.Println(output.FormatKeyValue("train edges", fmt.Sprint(result.TrainEdges)))
	r.Println(output.FormatKeyValue("test edges", fmt.Sprint(result.TestEdges)))
	if opts.Validation {
		r.Println(output.FormatKeyValue("validation edges", fmt.Sprint(result.ValidEdges)))
	}
	r.Println(output.FormatKeyValue("negative edges", fmt.Sprint(result.Negatives)))
	r.Success(fmt.Sprintf("%d edge sets written to %s", len(result.Files), outputDir))
	return nil
}

func loadGraphTSV(nodesFile, edgesFile string) (*graph.Graph, error) {
	nodes, err := kgx.ReadNodeFile(nodesFile)
	if err != nil {
		return nil, err
	}
	edges, err := kgx.ReadEdgeFile(edgesFile)
	if err != nil {
		return nil, err
	}

	g := graph.New("merged graph")
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}
