// Package download fetches raw ontology sources listed in download.yaml
// into the raw data directory.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// snippetBytes is how much of each body a snippet-only download keeps.
const snippetBytes = 5 * 1024

// Entry is one download target.
type Entry struct {
	URL string `yaml:"url"`
	// LocalName overrides the output filename; defaults to the URL basename
	LocalName string `yaml:"local_name"`
}

// Config is the parsed download.yaml.
type Config struct {
	Entries []Entry
}

// rawConfig accepts both the bare-list and keyed download.yaml layouts.
type rawConfig struct {
	Entries []Entry `yaml:"entries"`
}

// LoadConfig parses a download.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading download config: %w", err)
	}

	// A bare list of entries is the common layout
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err == nil && len(entries) > 0 {
		return &Config{Entries: entries}, nil
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing download config %s: %w", path, err)
	}
	if len(raw.Entries) == 0 {
		return nil, fmt.Errorf("download config %s lists no entries", path)
	}
	return &Config{Entries: raw.Entries}, nil
}

// OutputName returns the filename an entry downloads to.
func (e Entry) OutputName() (string, error) {
	if e.LocalName != "" {
		return e.LocalName, nil
	}
	u, err := url.Parse(e.URL)
	if err != nil {
		return "", fmt.Errorf("parsing url %s: %w", e.URL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("cannot derive a filename from %s; set local_name", e.URL)
	}
	return name, nil
}

// Options configures a download run.
type Options struct {
	// OutputDir receives the downloaded files
	OutputDir string
	// SnippetOnly keeps only the first 5 kB of each body, for file checks
	SnippetOnly bool
	// IgnoreCache re-downloads files that already exist
	IgnoreCache bool
	// Parallelism bounds concurrent downloads (minimum 1)
	Parallelism int
	// Timeout bounds each individual fetch
	Timeout time.Duration
	Logger  *slog.Logger

	// Client overrides the HTTP client, for tests
	Client *http.Client
}

// Result reports one entry's outcome.
type Result struct {
	URL    string
	Path   string
	Bytes  int64
	Cached bool
}

// retryAttempts bounds fetch retries per entry.
const retryAttempts = 3

// Run downloads every entry. Existing files are skipped unless IgnoreCache
// is set; transient HTTP failures are retried with fibonacci backoff.
func Run(ctx context.Context, cfg *Config, opts Options) ([]Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 10 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]Result, len(cfg.Entries))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for i, entry := range cfg.Entries {
		eg.Go(func() error {
			res, err := fetchEntry(egCtx, client, entry, opts, logger)
			if err != nil {
				return fmt.Errorf("downloading %s: %w", entry.URL, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func fetchEntry(ctx context.Context, client *http.Client, entry Entry, opts Options, logger *slog.Logger) (Result, error) {
	name, err := entry.OutputName()
	if err != nil {
		return Result{}, err
	}
	dest := filepath.Join(opts.OutputDir, name)

	if !opts.IgnoreCache {
		if _, err := os.Stat(dest); err == nil {
			logger.Info("skipping cached file", "path", dest)
			return Result{URL: entry.URL, Path: dest, Cached: true}, nil
		}
	}

	var written int64
	backoff := retry.WithMaxRetries(retryAttempts, retry.NewFibonacci(time.Second))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		n, err := fetchOnce(ctx, client, entry.URL, dest, opts.SnippetOnly)
		written = n
		return err
	})
	if err != nil {
		return Result{}, err
	}

	logger.Info("downloaded", "url", entry.URL, "path", dest, "bytes", written)
	return Result{URL: entry.URL, Path: dest, Bytes: written}, nil
}

func fetchOnce(ctx context.Context, client *http.Client, rawURL, dest string, snippetOnly bool) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, retry.RetryableError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return 0, retry.RetryableError(fmt.Errorf("server returned %s", resp.Status))
	default:
		return 0, fmt.Errorf("server returned %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if snippetOnly {
		body = io.LimitReader(resp.Body, snippetBytes)
	}

	// Write to a temp file first so interrupted downloads never look cached
	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".partial-*")
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, retry.RetryableError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return written, nil
}
