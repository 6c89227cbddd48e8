package merge

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kg-vasc/kgvasc/internal/manifest"
	"github.com/kg-vasc/kgvasc/internal/stats"
	"github.com/kg-vasc/kgvasc/internal/testutil"
)

const hpNodes = `id	name	category	provided_by
HP:0002597	Abnormality of the vasculature	biolink:PhenotypicFeature	hp
HP:0000118	Phenotypic abnormality	biolink:PhenotypicFeature	hp
`

const hpEdges = `subject	predicate	object	relation	provided_by
HP:0002597	biolink:subclass_of	HP:0000118	rdfs:subClassOf	hp
`

const envoNodes = `id	name	category
ENVO:00002297	environmental feature	biolink:EnvironmentalFeature
HP:0000118	Phenotypic abnormality	biolink:PhenotypicFeature
`

const envoEdges = `subject	predicate	object
ENVO:00002297	biolink:related_to	HP:0000118
`

func writeSourceFiles(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"hp_nodes.tsv":   hpNodes,
		"hp_edges.tsv":   hpEdges,
		"envo_nodes.tsv": envoNodes,
		"envo_edges.tsv": envoEdges,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func testManifest(t *testing.T) (*manifest.Manifest, string) {
	t.Helper()
	dir := t.TempDir()
	writeSourceFiles(t, dir)
	outDir := filepath.Join(dir, "merged")

	m := &manifest.Manifest{
		Configuration: manifest.Configuration{
			OutputDirectory: outDir,
			Checkpoint:      true,
		},
		MergedGraph: manifest.MergedGraph{
			Name: "kg_vasc graph",
			Source: map[string]manifest.Source{
				"hp": {
					Name: "HP",
					Input: manifest.Input{
						Format: manifest.FormatTSV,
						Filename: []string{
							filepath.Join(dir, "hp_nodes.tsv"),
							filepath.Join(dir, "hp_edges.tsv"),
						},
					},
				},
				"envo": {
					Name: "ENVO",
					Input: manifest.Input{
						Format: manifest.FormatTSV,
						Filename: []string{
							filepath.Join(dir, "envo_nodes.tsv"),
							filepath.Join(dir, "envo_edges.tsv"),
						},
					},
				},
			},
			Operations: []manifest.Operation{
				{
					Name: "kgx.graph_operations.summarize_graph.generate_graph_stats",
					Args: map[string]any{
						"graph_name":            "kg_vasc graph",
						"filename":              "merged_graph_stats.yaml",
						"node_facet_properties": []any{"provided_by"},
						"edge_facet_properties": []any{"provided_by"},
					},
				},
			},
			Destination: map[string]manifest.Destination{
				"merged-kg-tsv": {Format: manifest.FormatTSV, Compression: manifest.CompressionTarGz, Filename: "merged-kg"},
				"merged-kg-nt":  {Format: manifest.FormatNT, Compression: manifest.CompressionGz, Filename: "kg_vasc.nt.gz"},
				"merged-kg-jnl": {Format: manifest.FormatJournal, Compression: manifest.CompressionGz, Filename: "kg_vasc.jnl.gz"},
			},
		},
	}
	return m, outDir
}

func TestMerger_Run(t *testing.T) {
	m, outDir := testManifest(t)

	merger := New(m, Options{Processes: 2, Logger: testutil.NewTestLogger(t)})
	result, err := merger.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "kg_vasc graph", result.GraphName)
	// HP:0000118 appears in both sources and merges into one node
	assert.Equal(t, 3, result.NodeCount)
	assert.Equal(t, 2, result.EdgeCount)

	require.Len(t, result.Sources, 2)
	// Sources load and merge in sorted key order
	assert.Equal(t, "envo", result.Sources[0].Key)
	assert.Equal(t, "hp", result.Sources[1].Key)
	assert.Equal(t, 2, result.Sources[1].Nodes)

	require.Len(t, result.Destinations, 3)

	// Checkpoint TSVs
	for _, name := range []string{"merged-graph_nodes.tsv", "merged-graph_edges.tsv"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, "missing checkpoint file %s", name)
	}

	// Destination artifacts
	for _, name := range []string{"merged-kg.tar.gz", "kg_vasc.nt.gz", "kg_vasc.jnl.gz"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, "missing destination %s", name)
	}

	// The N-Triples artifact decompresses and mentions the merged node
	f, err := os.Open(filepath.Join(outDir, "kg_vasc.nt.gz"))
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	nt, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(nt), "HP_0000118")
}

func TestMerger_Run_StatsReport(t *testing.T) {
	m, outDir := testManifest(t)

	merger := New(m, Options{Logger: testutil.NewTestLogger(t)})
	_, err := merger.Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "stats", "merged_graph_stats.yaml"))
	require.NoError(t, err)

	var summary stats.Summary
	require.NoError(t, yaml.Unmarshal(data, &summary))
	assert.Equal(t, "kg_vasc graph", summary.GraphName)
	assert.Equal(t, 3, summary.NodeStats.TotalNodes)
	assert.Equal(t, 2, summary.EdgeStats.TotalEdges)

	// The shared node is faceted across both providers
	bucket := summary.NodeStats.CountByCategory["biolink:PhenotypicFeature"]
	require.NotNil(t, bucket)
	assert.Equal(t, 2, bucket.Count)
	assert.Equal(t, map[string]int{"hp": 2, "ENVO": 1}, bucket.Facets["provided_by"])
}

func TestMerger_Run_InvalidManifest(t *testing.T) {
	m, _ := testManifest(t)
	m.MergedGraph.Destination["bad"] = manifest.Destination{Format: "parquet", Filename: "x"}

	merger := New(m, Options{Logger: testutil.NewTestLogger(t)})
	_, err := merger.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid merge manifest")
}

func TestMerger_Run_MissingSourceFile(t *testing.T) {
	m, _ := testManifest(t)
	src := m.MergedGraph.Source["hp"]
	src.Input.Filename = append(src.Input.Filename, filepath.Join(t.TempDir(), "absent.tsv"))
	m.MergedGraph.Source["hp"] = src

	merger := New(m, Options{Logger: testutil.NewTestLogger(t)})
	_, err := merger.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.tsv")
}

func TestLookupOperation(t *testing.T) {
	_, ok := LookupOperation("generate_graph_stats")
	assert.True(t, ok)
	_, ok = LookupOperation("kgx.graph_operations.summarize_graph.generate_graph_stats")
	assert.True(t, ok)
	_, ok = LookupOperation("kgx.graph_operations.clique_merge")
	assert.False(t, ok)

	assert.Contains(t, ListOperations(), "generate_graph_stats")
}

func TestClassifyTSVFiles(t *testing.T) {
	nodes, edges := classifyTSVFiles([]string{"data/hp_nodes.tsv", "data/hp_edges.tsv"})
	assert.Equal(t, []string{"data/hp_nodes.tsv"}, nodes)
	assert.Equal(t, []string{"data/hp_edges.tsv"}, edges)

	// Unconventional names fall back to list order
	nodes, edges = classifyTSVFiles([]string{"a.tsv", "b.tsv"})
	assert.Equal(t, []string{"a.tsv"}, nodes)
	assert.Equal(t, []string{"b.tsv"}, edges)
}
