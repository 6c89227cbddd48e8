// Package config provides configuration management for the kgvasc CLI.
//
// Configuration is layered: built-in defaults, then a kgvasc.yaml file,
// then KGVASC_ environment variables, then command-line flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	// RawDir receives downloaded source files
	RawDir string `koanf:"raw_dir"`
	// TransformedDir receives per-source KGX TSVs
	TransformedDir string `koanf:"transformed_dir"`
	// MergedDir receives merge artifacts when the manifest does not name
	// an output directory
	MergedDir string `koanf:"merged_dir"`
	// MergeFile is the merge manifest path
	MergeFile string `koanf:"merge_file"`
	// DownloadFile lists the raw sources to fetch
	DownloadFile string `koanf:"download_file"`
	// Processes bounds pipeline parallelism
	Processes int    `koanf:"processes"`
	Verbose   bool   `koanf:"verbose"`
	Output    string `koanf:"output"`

	// ProjectRoot anchors relative paths; inferred, never set in YAML
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultRawDir         = "data/raw"
	DefaultTransformedDir = "data/transformed"
	DefaultMergedDir      = "data/merged"
	DefaultMergeFile      = "merge.yaml"
	DefaultDownloadFile   = "download.yaml"
	DefaultProcesses      = 1
	DefaultOutput         = "auto" // TTY=text, non-TTY=markdown
)
