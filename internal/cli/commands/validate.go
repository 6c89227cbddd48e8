package commands

import (
	"github.com/spf13/cobra"

	"github.com/kg-vasc/kgvasc/internal/manifest"
	"github.com/kg-vasc/kgvasc/internal/merge"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var skipFiles bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the merge manifest without running a merge",
		Long: `Check the merge manifest against the schema: required fields,
supported formats and compressions, resolvable operation names, and
source files present on disk. All problems are reported at once.`,
		Example: `  # Validate merge.yaml including source file checks
  kgvasc validate

  # Validate the schema only, before transform has run
  kgvasc validate --skip-files`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, skipFiles)
		},
	}

	cmd.Flags().BoolVar(&skipFiles, "skip-files", false, "Skip checking that source files exist")

	return cmd
}

func runValidate(cmd *cobra.Command, skipFiles bool) error {
	cfg := getConfig(cmd)
	r := getRenderer(cmd)

	m, err := manifest.Load(cfg.MergeFile)
	if err != nil {
		return err
	}

	err = m.Validate(manifest.ValidateOptions{
		KnownOperation: merge.KnownOperation,
		CheckFiles:     !skipFiles,
	})
	if err != nil {
		return err
	}

	r.Success(cfg.MergeFile + " is valid")
	return nil
}
