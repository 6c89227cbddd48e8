package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey stores the logger in the command context.
type loggerKey struct{}

// configKey stores the loaded config in the command context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for
// a config file.
const maxUpwardSearchLevels = 10

// configFileUsed tracks which config file the last load read, if any.
var configFileUsed string

// configNames are the recognized config filenames, in priority order.
var configNames = []string{"kgvasc.yaml", "kgvasc.yml"}

func configIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRoot searches upward from startDir for a kgvasc config file.
// Returns startDir if none is found within maxUpwardSearchLevels.
func findProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return startDir
}

// Load reads configuration from file, environment, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	configFileUsed = ""

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"raw_dir":         DefaultRawDir,
		"transformed_dir": DefaultTransformedDir,
		"merged_dir":      DefaultMergedDir,
		"merge_file":      DefaultMergeFile,
		"download_file":   DefaultDownloadFile,
		"processes":       DefaultProcesses,
		"verbose":         false,
		"output":          DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// The project root anchors relative paths. An explicit config file pins
	// it to the file's directory; otherwise search upward from the CWD.
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectRoot := cwd
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
		configFileUsed = cfgFile
	} else {
		projectRoot = findProjectRoot(cwd)
		configFileUsed = configIn(projectRoot)
	}

	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFileUsed, err)
		}
	}

	// KGVASC_RAW_DIR -> raw_dir
	if err := k.Load(env.Provider("KGVASC_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "KGVASC_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			// kebab-case flags map onto snake_case config keys
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	cfg.RawDir = resolveRelativeTo(cfg.RawDir, projectRoot)
	cfg.TransformedDir = resolveRelativeTo(cfg.TransformedDir, projectRoot)
	cfg.MergedDir = resolveRelativeTo(cfg.MergedDir, projectRoot)
	cfg.MergeFile = resolveRelativeTo(cfg.MergeFile, projectRoot)
	cfg.DownloadFile = resolveRelativeTo(cfg.DownloadFile, projectRoot)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveRelativeTo resolves a path against baseDir unless it is absolute.
func resolveRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ConfigFileUsed returns the path of the config file the last Load read,
// if any.
func ConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger. It lets
// the commands package retrieve the logger without an import cycle with
// the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// ConfigKey returns the context key used for storing the config.
func ConfigKey() interface{} {
	return configKey{}
}

// FromContext retrieves the config from the command context, falling back
// to defaults when none was stored.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		RawDir:         DefaultRawDir,
		TransformedDir: DefaultTransformedDir,
		MergedDir:      DefaultMergedDir,
		MergeFile:      DefaultMergeFile,
		DownloadFile:   DefaultDownloadFile,
		Processes:      DefaultProcesses,
		Output:         DefaultOutput,
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the CLI logger. Verbose runs log at debug level.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
