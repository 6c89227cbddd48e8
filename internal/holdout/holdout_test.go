package holdout

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kg-vasc/kgvasc/internal/graph"
	"github.com/kg-vasc/kgvasc/internal/testutil"
)

// ringGraph builds a cycle of n nodes with chord edges, so the spanning
// forest leaves room for holdout candidates.
func ringGraph(t *testing.T, n int) *graph.Graph {
	t.Helper()
	g := graph.New("holdout test")
	for i := 0; i < n; i++ {
		require.NoError(t, g.AddNode(&graph.Node{
			ID:       fmt.Sprintf("HP:%07d", i),
			Category: []string{"biolink:PhenotypicFeature"},
		}))
	}
	addEdge := func(a, b int) {
		require.NoError(t, g.AddEdge(&graph.Edge{
			Subject:   fmt.Sprintf("HP:%07d", a),
			Predicate: "biolink:subclass_of",
			Object:    fmt.Sprintf("HP:%07d", b),
		}))
	}
	for i := 0; i < n; i++ {
		addEdge(i, (i+1)%n)
	}
	addEdge(0, n/2)
	addEdge(1, n/2+1)
	return g
}

func readEdgeSet(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rows []string
	sc := bufio.NewScanner(f)
	require.True(t, sc.Scan(), "missing header in %s", path)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			rows = append(rows, line)
		}
	}
	require.NoError(t, sc.Err())
	return rows
}

func TestRun_SplitsEdges(t *testing.T) {
	g := ringGraph(t, 10) // 12 edges, 9 in the forest
	dir := t.TempDir()

	res, err := Run(context.Background(), g, Options{
		TrainFraction: 0.8,
		Seed:          42,
		OutputDir:     dir,
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	// ceil(12 * 0.2) = 3 held-out edges
	assert.Equal(t, 3, res.TestEdges)
	assert.Equal(t, 9, res.TrainEdges)
	assert.Equal(t, 0, res.ValidEdges)
	assert.Equal(t, 12, res.Negatives)

	train := readEdgeSet(t, filepath.Join(dir, "pos_train_edges.tsv"))
	test := readEdgeSet(t, filepath.Join(dir, "pos_test_edges.tsv"))
	assert.Len(t, train, 9)
	assert.Len(t, test, 3)
	assert.NoFileExists(t, filepath.Join(dir, "pos_valid_edges.tsv"))

	// Train and test never share an edge
	seen := make(map[string]bool)
	for _, row := range train {
		seen[row] = true
	}
	for _, row := range test {
		assert.False(t, seen[row], "edge in both train and test: %s", row)
	}
}

func TestRun_ValidationSplit(t *testing.T) {
	g := ringGraph(t, 10)
	dir := t.TempDir()

	res, err := Run(context.Background(), g, Options{
		TrainFraction: 0.8,
		Validation:    true,
		Seed:          7,
		OutputDir:     dir,
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	// ceil(12 * 0.2) = 3 held out; test gets the larger half
	assert.Equal(t, 2, res.TestEdges)
	assert.Equal(t, 1, res.ValidEdges)
	assert.FileExists(t, filepath.Join(dir, "pos_valid_edges.tsv"))
	assert.FileExists(t, filepath.Join(dir, "neg_valid.tsv"))
}

func TestRun_NegativesAvoidRealEdges(t *testing.T) {
	g := ringGraph(t, 10)
	dir := t.TempDir()

	_, err := Run(context.Background(), g, Options{
		TrainFraction: 0.8,
		Seed:          1,
		OutputDir:     dir,
		Logger:        testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	for _, name := range []string{"neg_train.tsv", "neg_test.tsv"} {
		for _, row := range readEdgeSet(t, filepath.Join(dir, name)) {
			fields := strings.Split(row, "\t")
			require.GreaterOrEqual(t, len(fields), 3)
			subject, object := fields[0], fields[2]
			assert.False(t, g.HasEdge(subject, object),
				"sampled negative is a real edge: %s -> %s", subject, object)
			assert.NotEqual(t, subject, object)
		}
	}
}

func TestRun_DeterministicUnderSeed(t *testing.T) {
	run := func(dir string) []string {
		g := ringGraph(t, 12)
		_, err := Run(context.Background(), g, Options{
			TrainFraction: 0.75,
			Seed:          99,
			OutputDir:     dir,
			Logger:        testutil.NewTestLoggerAt(t, slog.LevelInfo),
		})
		require.NoError(t, err)
		return readEdgeSet(t, filepath.Join(dir, "pos_test_edges.tsv"))
	}

	first := run(t.TempDir())
	second := run(t.TempDir())
	assert.Equal(t, first, second)
}

func TestRun_RejectsBadFraction(t *testing.T) {
	g := ringGraph(t, 4)
	for _, fraction := range []float64{0, 1, -0.2, 1.5} {
		_, err := Run(context.Background(), g, Options{TrainFraction: fraction, OutputDir: t.TempDir()})
		require.Error(t, err, "fraction %g", fraction)
	}
}

func TestRun_EmptyGraph(t *testing.T) {
	g := graph.New("empty")
	_, err := Run(context.Background(), g, Options{TrainFraction: 0.8, OutputDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no edges")
}
