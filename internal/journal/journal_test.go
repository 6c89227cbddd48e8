package journal

import (
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kg-vasc/kgvasc/internal/graph"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New("kg_vasc graph")
	require.NoError(t, g.AddNode(&graph.Node{
		ID:         "HP:0002597",
		Name:       "Abnormality of the vasculature",
		Category:   []string{"biolink:PhenotypicFeature"},
		ProvidedBy: []string{"hp"},
	}))
	require.NoError(t, g.AddNode(&graph.Node{ID: "HP:0000118", Name: "Phenotypic abnormality"}))
	require.NoError(t, g.AddEdge(&graph.Edge{
		Subject:   "HP:0002597",
		Predicate: "biolink:subclass_of",
		Object:    "HP:0000118",
		Relation:  "rdfs:subClassOf",
	}))
	return g
}

func TestStore_WriteGraphAndCounts(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "kg_vasc.jnl"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.WriteGraph(ctx, testGraph(t)))

	nodes, edges, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)

	// A second write replaces, not appends
	require.NoError(t, s.WriteGraph(ctx, testGraph(t)))
	nodes, edges, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)
}

func TestStore_RecordBuild(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	b := NewBuild("kg_vasc graph")
	require.NoError(t, s.RecordBuild(ctx, b))

	b.Status = StatusCompleted
	b.NodeCount = 2
	b.EdgeCount = 1
	b.FinishedAt = time.Now().UTC()
	require.NoError(t, s.RecordBuild(ctx, b))

	builds, err := s.Builds(ctx)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, b.ID, builds[0].ID)
	assert.Equal(t, StatusCompleted, builds[0].Status)
	assert.Equal(t, 2, builds[0].NodeCount)
	assert.False(t, builds[0].FinishedAt.IsZero())
}

func TestWriteJournal_Compressed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kg_vasc.jnl.gz")

	build := NewBuild("kg_vasc graph")
	build.Status = StatusCompleted
	require.NoError(t, WriteJournal(context.Background(), path, true, testGraph(t), build))

	// Only the compressed artifact remains
	_, err := os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "kg_vasc.jnl"))
	assert.True(t, os.IsNotExist(err))

	// The gzip payload is a valid journal
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	raw := filepath.Join(dir, "unpacked.jnl")
	out, err := os.Create(raw)
	require.NoError(t, err)
	_, err = out.ReadFrom(gz)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	s, err := Open(raw)
	require.NoError(t, err)
	defer s.Close()
	nodes, edges, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)
}

func TestStore_WriteGraph_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM edges").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	s := &Store{db: db}
	err = s.WriteGraph(context.Background(), testGraph(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clearing edges")
	assert.NoError(t, mock.ExpectationsWereMet())
}
