// Package holdout splits a merged graph into training and test edge sets for
// link-prediction experiments. The split keeps a spanning forest of every
// connected component inside the training set, so holding out edges never
// disconnects nodes the training graph could otherwise reach.
package holdout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/kg-vasc/kgvasc/internal/graph"
	"github.com/kg-vasc/kgvasc/internal/kgx"
)

// negativePredicate marks sampled non-edges in the output files.
const negativePredicate = "biolink:related_to"

// Options configures a holdout split.
type Options struct {
	// TrainFraction is the share of edges kept for training, in (0, 1)
	TrainFraction float64
	// Validation carves a validation set out of the held-out edges
	Validation bool
	// Seed makes sampling reproducible
	Seed int64
	// OutputDir receives the edge set TSVs
	OutputDir string
	Logger    *slog.Logger
}

// Result reports the sizes and locations of the produced edge sets.
type Result struct {
	TrainEdges int
	TestEdges  int
	ValidEdges int
	Negatives  int
	Files      []string
}

// Run splits the graph's edges and writes the positive and negative edge
// sets under OutputDir.
func Run(ctx context.Context, g *graph.Graph, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.TrainFraction <= 0 || opts.TrainFraction >= 1 {
		return nil, fmt.Errorf("train fraction must be between 0 and 1, got %g", opts.TrainFraction)
	}
	if g.EdgeCount() == 0 {
		return nil, fmt.Errorf("graph has no edges to split")
	}
	if err := os.MkdirAll(opts.OutputDir, 0750); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	forest, candidates := spanningSplit(g)
	holdoutCount := int(math.Ceil(float64(g.EdgeCount()) * (1 - opts.TrainFraction)))
	if holdoutCount > len(candidates) {
		logger.Warn("spanning forest limits the holdout size",
			"requested", holdoutCount, "available", len(candidates))
		holdoutCount = len(candidates)
	}

	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	held := candidates[:holdoutCount]
	train := append(forest, candidates[holdoutCount:]...)

	test, valid := held, []*graph.Edge(nil)
	if opts.Validation {
		half := (len(held) + 1) / 2
		test, valid = held[:half], held[half:]
	}

	negatives, err := sampleNegatives(ctx, g, rng, g.EdgeCount())
	if err != nil {
		return nil, err
	}
	negTrain, negTest, negValid := splitNegatives(negatives, len(train), len(test), len(valid))

	sets := []struct {
		name  string
		edges []*graph.Edge
	}{
		{"pos_train_edges.tsv", train},
		{"pos_test_edges.tsv", test},
		{"pos_valid_edges.tsv", valid},
		{"neg_train.tsv", negTrain},
		{"neg_test.tsv", negTest},
		{"neg_valid.tsv", negValid},
	}

	res := &Result{
		TrainEdges: len(train),
		TestEdges:  len(test),
		ValidEdges: len(valid),
		Negatives:  len(negatives),
	}
	for _, set := range sets {
		if !opts.Validation && (set.name == "pos_valid_edges.tsv" || set.name == "neg_valid.tsv") {
			continue
		}
		path := filepath.Join(opts.OutputDir, set.name)
		if err := writeEdgeSet(path, set.edges); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}

	logger.Info("wrote holdout sets",
		"train", res.TrainEdges, "test", res.TestEdges,
		"valid", res.ValidEdges, "negatives", res.Negatives)
	return res, nil
}

// spanningSplit partitions the edges into a spanning forest, which must stay
// in training, and the remaining cycle edges, which may be held out.
func spanningSplit(g *graph.Graph) (forest, candidates []*graph.Edge) {
	uf := graph.NewUnionFind()
	for _, e := range g.Edges() {
		if uf.Union(e.Subject, e.Object) {
			forest = append(forest, e)
		} else {
			candidates = append(candidates, e)
		}
	}
	return forest, candidates
}

// sampleNegatives draws node pairs with no edge between them in either
// direction. Sampling is rejection based, so a near-complete graph may yield
// fewer negatives than asked for.
func sampleNegatives(ctx context.Context, g *graph.Graph, rng *rand.Rand, count int) ([]*graph.Edge, error) {
	nodes := g.Nodes()
	if len(nodes) < 2 {
		return nil, fmt.Errorf("graph has too few nodes for negative sampling")
	}

	seen := make(map[[2]string]struct{}, count)
	negatives := make([]*graph.Edge, 0, count)
	maxAttempts := count * 100
	for attempts := 0; len(negatives) < count && attempts < maxAttempts; attempts++ {
		if attempts%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		a := nodes[rng.Intn(len(nodes))].ID
		b := nodes[rng.Intn(len(nodes))].ID
		if a == b || g.HasEdge(a, b) || g.HasEdge(b, a) {
			continue
		}
		key := [2]string{a, b}
		if a > b {
			key = [2]string{b, a}
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		negatives = append(negatives, &graph.Edge{
			Subject:   a,
			Predicate: negativePredicate,
			Object:    b,
		})
	}
	return negatives, nil
}

// splitNegatives distributes the sampled negatives across the sets in
// proportion to the positive set sizes.
func splitNegatives(negatives []*graph.Edge, trainN, testN, validN int) (train, test, valid []*graph.Edge) {
	total := trainN + testN + validN
	if total == 0 || len(negatives) == 0 {
		return nil, nil, nil
	}
	trainEnd := len(negatives) * trainN / total
	testEnd := trainEnd + len(negatives)*testN/total
	if validN == 0 {
		testEnd = len(negatives)
	}
	return negatives[:trainEnd], negatives[trainEnd:testEnd], negatives[testEnd:]
}

func writeEdgeSet(path string, edges []*graph.Edge) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := kgx.WriteEdges(f, edges); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
