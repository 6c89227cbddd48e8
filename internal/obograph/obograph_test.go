package obograph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "graphs": [
    {
      "id": "http://purl.obolibrary.org/obo/hp.json",
      "nodes": [
        {
          "id": "http://purl.obolibrary.org/obo/HP_0002597",
          "lbl": "Abnormality of the vasculature",
          "type": "CLASS",
          "meta": {
            "definition": {"val": "An abnormality of the vasculature."},
            "synonyms": [{"pred": "hasExactSynonym", "val": "vascular abnormality"}],
            "xrefs": [{"val": "UMLS:C0234224"}]
          }
        },
        {
          "id": "http://purl.obolibrary.org/obo/HP_0000118",
          "lbl": "Phenotypic abnormality",
          "type": "CLASS"
        },
        {
          "id": "http://purl.obolibrary.org/obo/hp#hasDbXref",
          "lbl": "has db xref",
          "type": "PROPERTY"
        },
        {
          "id": "http://purl.obolibrary.org/obo/HP_0000001",
          "lbl": "All",
          "type": "CLASS",
          "meta": {"deprecated": true}
        }
      ],
      "edges": [
        {
          "sub": "http://purl.obolibrary.org/obo/HP_0002597",
          "pred": "is_a",
          "obj": "http://purl.obolibrary.org/obo/HP_0000118"
        },
        {
          "sub": "http://purl.obolibrary.org/obo/HP_0000118",
          "pred": "http://purl.obolibrary.org/obo/BFO_0000050",
          "obj": "http://purl.obolibrary.org/obo/HP_0000001"
        }
      ]
    }
  ]
}`

func TestCURIE(t *testing.T) {
	tests := []struct {
		iri  string
		want string
	}{
		{"http://purl.obolibrary.org/obo/HP_0002597", "HP:0002597"},
		{"http://purl.obolibrary.org/obo/ENVO_00002297", "ENVO:00002297"},
		{"HP:0002597", "HP:0002597"},
		{"is_a", "is_a"},
		{"http://example.org/vocab#term", "term"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CURIE(tt.iri), "iri %s", tt.iri)
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"graphs": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no graphs")
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"graphs": [`))
	require.Error(t, err)
}

func TestToGraph(t *testing.T) {
	doc, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	g, err := doc.ToGraph("hp")
	require.NoError(t, err)

	// PROPERTY nodes are skipped
	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 2, g.EdgeCount())

	n, ok := g.Node("HP:0002597")
	require.True(t, ok)
	assert.Equal(t, "Abnormality of the vasculature", n.Name)
	assert.Equal(t, []string{"biolink:PhenotypicFeature"}, n.Category)
	assert.Equal(t, "An abnormality of the vasculature.", n.Description)
	assert.Equal(t, []string{"vascular abnormality"}, n.Synonyms)
	assert.Equal(t, []string{"UMLS:C0234224"}, n.Xrefs)
	assert.Equal(t, []string{"hp"}, n.ProvidedBy)
	assert.Equal(t, "http://purl.obolibrary.org/obo/HP_0002597", n.Extra["iri"])

	deprecated, ok := g.Node("HP:0000001")
	require.True(t, ok)
	assert.True(t, deprecated.Deprecated)

	edges := g.Edges()
	require.Len(t, edges, 2)
	// is_a maps to the biolink subclass predicate
	assert.Equal(t, "biolink:subclass_of", edges[1].Predicate)
	assert.Equal(t, "rdfs:subClassOf", edges[1].Relation)
	// Known OBO relations map through the predicate table
	assert.Equal(t, "biolink:part_of", edges[0].Predicate)
	assert.Equal(t, "BFO:0000050", edges[0].Relation)
}
