// Package query runs SPARQL queries declared in YAML files against a remote
// endpoint and writes the bindings out as TSV.
package query

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Spec is a parsed query YAML file.
type Spec struct {
	Query    string `yaml:"query"`
	Endpoint string `yaml:"endpoint"`
}

// LoadSpec parses a query YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing query file %s: %w", path, err)
	}
	if strings.TrimSpace(spec.Query) == "" {
		return nil, fmt.Errorf("query file %s declares no query", path)
	}
	if strings.TrimSpace(spec.Endpoint) == "" {
		return nil, fmt.Errorf("query file %s declares no endpoint", path)
	}
	return &spec, nil
}

// resultSet is the standard SPARQL JSON results envelope.
type resultSet struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]binding `json:"bindings"`
	} `json:"results"`
}

type binding struct {
	Value string `json:"value"`
}

// Options configures a query run.
type Options struct {
	// OutputDir receives the result TSV
	OutputDir string
	Timeout   time.Duration
	Logger    *slog.Logger

	// Client overrides the HTTP client, for tests
	Client *http.Client
}

// Result reports a completed query.
type Result struct {
	Endpoint string
	Path     string
	Columns  []string
	Rows     int
}

// Run executes the query in the YAML file at specPath and writes the result
// rows to <output_dir>/<basename>.tsv.
func Run(ctx context.Context, specPath string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	spec, err := LoadSpec(specPath)
	if err != nil {
		return nil, err
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 5 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}

	logger.Info("running query", "endpoint", spec.Endpoint)
	rs, err := execute(ctx, client, spec)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", spec.Endpoint, err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(specPath), filepath.Ext(specPath))
	dest := filepath.Join(opts.OutputDir, base+".tsv")
	if err := writeTSV(dest, rs); err != nil {
		return nil, err
	}

	logger.Info("wrote query results",
		"path", dest, "rows", len(rs.Results.Bindings))
	return &Result{
		Endpoint: spec.Endpoint,
		Path:     dest,
		Columns:  rs.Head.Vars,
		Rows:     len(rs.Results.Bindings),
	}, nil
}

func execute(ctx context.Context, client *http.Client, spec *Spec) (*resultSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		spec.Endpoint, strings.NewReader(spec.Query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", "application/sparql-results+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("endpoint returned %s: %s",
			resp.Status, strings.TrimSpace(string(body)))
	}

	var rs resultSet
	if err := json.NewDecoder(resp.Body).Decode(&rs); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	if len(rs.Head.Vars) == 0 {
		return nil, fmt.Errorf("result set declares no variables")
	}
	return &rs, nil
}

func writeTSV(dest string, rs *resultSet) error {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(rs.Head.Vars, "\t"))
	buf.WriteByte('\n')

	row := make([]string, len(rs.Head.Vars))
	for _, b := range rs.Results.Bindings {
		for i, v := range rs.Head.Vars {
			row[i] = sanitize(b[v].Value)
		}
		buf.WriteString(strings.Join(row, "\t"))
		buf.WriteByte('\n')
	}

	if err := os.WriteFile(dest, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}

var fieldSanitizer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func sanitize(s string) string {
	return fieldSanitizer.Replace(s)
}
