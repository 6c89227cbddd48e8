// Package commands implements the kgvasc subcommands.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kg-vasc/kgvasc/internal/cli/config"
	"github.com/kg-vasc/kgvasc/internal/cli/output"
)

func getConfig(cmd *cobra.Command) *config.Config {
	return config.FromContext(cmd.Context())
}

func getLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}

func getRenderer(cmd *cobra.Command) *output.Renderer {
	return output.FromContext(cmd.Context())
}
