package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kg-vasc/kgvasc/internal/cli/output"
	"github.com/kg-vasc/kgvasc/internal/download"
)

// DownloadOptions holds options for the download command.
type DownloadOptions struct {
	SnippetOnly bool
	IgnoreCache bool
	Timeout     time.Duration
}

// NewDownloadCommand creates the download command.
func NewDownloadCommand() *cobra.Command {
	opts := &DownloadOptions{}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the raw source files listed in download.yaml",
		Long: `Fetch every source listed in the download file into the raw data
directory. Files already present are skipped unless --ignore-cache is set.`,
		Example: `  # Download all sources
  kgvasc download

  # Re-download everything
  kgvasc download --ignore-cache

  # Fetch only the first 5 kB of each file, to check formats
  kgvasc download --snippet-only`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDownload(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.SnippetOnly, "snippet-only", false, "Download only the first 5 kB of each file")
	cmd.Flags().BoolVar(&opts.IgnoreCache, "ignore-cache", false, "Re-download files that already exist")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "Per-file download timeout")

	return cmd
}

func runDownload(cmd *cobra.Command, opts *DownloadOptions) error {
	cfg := getConfig(cmd)
	r := getRenderer(cmd)

	dcfg, err := download.LoadConfig(cfg.DownloadFile)
	if err != nil {
		return err
	}

	results, err := download.Run(cmd.Context(), dcfg, download.Options{
		OutputDir:   cfg.RawDir,
		SnippetOnly: opts.SnippetOnly,
		IgnoreCache: opts.IgnoreCache,
		Parallelism: cfg.Processes,
		Timeout:     opts.Timeout,
		Logger:      getLogger(cmd),
	})
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := strconv.FormatInt(res.Bytes, 10) + " B"
		if res.Cached {
			status = "cached"
		}
		rows = append(rows, []string{res.URL, res.Path, status})
	}
	r.Table([]string{"url", "path", "status"}, rows)
	r.Success(fmt.Sprintf("%d sources in %s", len(results), cfg.RawDir))
	return nil
}
