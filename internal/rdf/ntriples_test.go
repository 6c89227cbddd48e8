package rdf

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kg-vasc/kgvasc/internal/graph"
)

func TestExpandCURIE(t *testing.T) {
	tests := []struct {
		curie string
		want  string
	}{
		{"HP:0002597", "http://purl.obolibrary.org/obo/HP_0002597"},
		{"ENVO:00002297", "http://purl.obolibrary.org/obo/ENVO_00002297"},
		{"biolink:PhenotypicFeature", "https://w3id.org/biolink/vocab/PhenotypicFeature"},
		{"rdfs:subClassOf", "http://www.w3.org/2000/01/rdf-schema#subClassOf"},
		{"http://example.org/already-an-iri", "http://example.org/already-an-iri"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandCURIE(tt.curie), "curie %s", tt.curie)
	}
}

func TestWriteGraph(t *testing.T) {
	g := graph.New("kg_vasc")
	require.NoError(t, g.AddNode(&graph.Node{
		ID:          "HP:0002597",
		Name:        "Abnormality of the vasculature",
		Category:    []string{"biolink:PhenotypicFeature"},
		Description: "An abnormality of the \"vascular\" system.",
		ProvidedBy:  []string{"hp"},
	}))
	require.NoError(t, g.AddNode(&graph.Node{ID: "HP:0000118", Name: "Phenotypic abnormality"}))
	require.NoError(t, g.AddEdge(&graph.Edge{
		Subject:   "HP:0002597",
		Predicate: "biolink:subclass_of",
		Object:    "HP:0000118",
		Relation:  "rdfs:subClassOf",
	}))

	var buf bytes.Buffer
	require.NoError(t, WriteGraph(&buf, g))
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines {
		assert.True(t, strings.HasSuffix(line, " ."), "line %q not terminated", line)
	}

	assert.Contains(t, out,
		"<http://purl.obolibrary.org/obo/HP_0002597> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <https://w3id.org/biolink/vocab/PhenotypicFeature> .")
	assert.Contains(t, out,
		`<http://purl.obolibrary.org/obo/HP_0002597> <http://www.w3.org/2000/01/rdf-schema#label> "Abnormality of the vasculature" .`)
	// Quotes in literals are escaped
	assert.Contains(t, out, `"An abnormality of the \"vascular\" system."`)
	// The edge uses the relation IRI when present
	assert.Contains(t, out,
		"<http://purl.obolibrary.org/obo/HP_0002597> <http://www.w3.org/2000/01/rdf-schema#subClassOf> <http://purl.obolibrary.org/obo/HP_0000118> .")
}

func TestWriteGraph_PredicateFallback(t *testing.T) {
	g := graph.New("kg_vasc")
	require.NoError(t, g.AddEdge(&graph.Edge{
		Subject:   "ENVO:1",
		Predicate: "biolink:related_to",
		Object:    "HP:1",
	}))

	var buf bytes.Buffer
	require.NoError(t, WriteGraph(&buf, g))
	assert.Contains(t, buf.String(), "<https://w3id.org/biolink/vocab/related_to>")
}

func TestLiteralEscaping(t *testing.T) {
	assert.Equal(t, `"tab\there"`, literal("tab\there"))
	assert.Equal(t, `"line\nbreak"`, literal("line\nbreak"))
	assert.Equal(t, `"back\\slash"`, literal(`back\slash`))
}

func TestWriteGraphFile_Gzip(t *testing.T) {
	g := graph.New("kg_vasc")
	require.NoError(t, g.AddNode(&graph.Node{ID: "HP:1", Name: "one"}))

	path := filepath.Join(t.TempDir(), "kg_vasc.nt.gz")
	require.NoError(t, WriteGraphFile(path, g, true))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"one"`)
}
