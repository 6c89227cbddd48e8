package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, DefaultRawDir), cfg.RawDir)
	assert.Equal(t, filepath.Join(dir, DefaultMergeFile), cfg.MergeFile)
	assert.Equal(t, DefaultProcesses, cfg.Processes)
	assert.Equal(t, "auto", cfg.Output)
	assert.False(t, cfg.Verbose)
	assert.Empty(t, ConfigFileUsed())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `raw_dir: sources/raw
processes: 4
verbose: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kgvasc.yaml"), []byte(content), 0644))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sources/raw"), cfg.RawDir)
	assert.Equal(t, 4, cfg.Processes)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, filepath.Join(dir, "kgvasc.yaml"), ConfigFileUsed())
}

func TestLoad_FindsConfigUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "kgvasc.yaml"), []byte("processes: 2\n"), 0644))
	nested := filepath.Join(root, "data", "raw")
	require.NoError(t, os.MkdirAll(nested, 0750))
	t.Chdir(nested)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Processes)
	assert.Equal(t, root, cfg.ProjectRoot)
	// Relative paths resolve against the project root, not the CWD
	assert.Equal(t, filepath.Join(root, DefaultMergeFile), cfg.MergeFile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kgvasc.yaml"), []byte("processes: 2\n"), 0644))
	t.Chdir(dir)
	t.Setenv("KGVASC_PROCESSES", "8")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Processes)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("KGVASC_MERGE_FILE", "env-merge.yaml")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("merge-file", "", "")
	flags.Int("processes", 0, "")
	require.NoError(t, flags.Parse([]string{"--merge-file", "flag-merge.yaml"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "flag-merge.yaml"), cfg.MergeFile)
	// Unchanged flags do not mask lower layers
	assert.Equal(t, DefaultProcesses, cfg.Processes)
}

func TestLoad_ExplicitConfigAnchorsRoot(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "kgvasc.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("merged_dir: out/merged\n"), 0644))
	t.Chdir(t.TempDir())

	cfg, err := Load(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "out/merged"), cfg.MergedDir)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Processes: 1, Output: "auto", MergeFile: "merge.yaml"}
	assert.NoError(t, Validate(cfg))

	cfg.Processes = 0
	assert.Error(t, Validate(cfg))

	cfg.Processes = 1
	cfg.Output = "yaml"
	assert.Error(t, Validate(cfg))

	cfg.Output = "json"
	cfg.MergeFile = ""
	assert.Error(t, Validate(cfg))
}
