// Package journal persists the merged graph as an SQLite journal file, the
// "jnl" destination of the merge manifest. The journal holds the node and
// edge tables plus a build log of merge runs, and is queryable with any
// SQLite client.
package journal

import (
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kg-vasc/kgvasc/internal/graph"
)

// Build statuses recorded in the journal.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Build is one merge run recorded in the journal.
type Build struct {
	ID         string
	GraphName  string
	NodeCount  int
	EdgeCount  int
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewBuild creates a build record for a merge run starting now.
func NewBuild(graphName string) *Build {
	return &Build{
		ID:        uuid.New().String(),
		GraphName: graphName,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// Store is an open journal database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) a journal at path and applies pending migrations.
// Use ":memory:" for an in-memory journal.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging journal: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the journal database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// WriteGraph replaces the journal's node and edge tables with the contents
// of g, in a single transaction.
func (s *Store) WriteGraph(ctx context.Context, g *graph.Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning journal transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"edges", "nodes"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (id, name, category, description, provided_by) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range g.Nodes() {
		_, err := nodeStmt.ExecContext(ctx, n.ID, n.Name,
			strings.Join(n.Category, "|"), n.Description, strings.Join(n.ProvidedBy, "|"))
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO edges (subject, predicate, object, relation, provided_by) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer edgeStmt.Close()
	for _, e := range g.Edges() {
		_, err := edgeStmt.ExecContext(ctx, e.Subject, e.Predicate, e.Object, e.Relation,
			strings.Join(e.ProvidedBy, "|"))
		if err != nil {
			return fmt.Errorf("inserting edge %s-%s-%s: %w", e.Subject, e.Predicate, e.Object, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing journal transaction: %w", err)
	}
	return nil
}

// RecordBuild upserts a build record.
func (s *Store) RecordBuild(ctx context.Context, b *Build) error {
	var finished any
	if !b.FinishedAt.IsZero() {
		finished = b.FinishedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (id, graph_name, node_count, edge_count, status, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   node_count = excluded.node_count,
		   edge_count = excluded.edge_count,
		   status = excluded.status,
		   finished_at = excluded.finished_at`,
		b.ID, b.GraphName, b.NodeCount, b.EdgeCount, b.Status, b.StartedAt, finished)
	if err != nil {
		return fmt.Errorf("recording build %s: %w", b.ID, err)
	}
	return nil
}

// Builds returns all recorded builds, most recent first.
func (s *Store) Builds(ctx context.Context) ([]*Build, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, graph_name, node_count, edge_count, status, started_at, finished_at
		 FROM builds ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying builds: %w", err)
	}
	defer rows.Close()

	var builds []*Build
	for rows.Next() {
		b := &Build{}
		var finished sql.NullTime
		if err := rows.Scan(&b.ID, &b.GraphName, &b.NodeCount, &b.EdgeCount, &b.Status, &b.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning build: %w", err)
		}
		if finished.Valid {
			b.FinishedAt = finished.Time
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// Counts returns the number of nodes and edges stored in the journal.
func (s *Store) Counts(ctx context.Context) (nodes, edges int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&nodes); err != nil {
		return 0, 0, fmt.Errorf("counting nodes: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&edges); err != nil {
		return 0, 0, fmt.Errorf("counting edges: %w", err)
	}
	return nodes, edges, nil
}

// WriteJournal writes g and its build record into a journal file at path.
// When compressed is true the journal is written to a scratch file and
// gzip-compressed into path.
func WriteJournal(ctx context.Context, path string, compressed bool, g *graph.Graph, build *Build) error {
	target := path
	if compressed {
		target = strings.TrimSuffix(path, ".gz")
		if target == path {
			target = path + ".raw"
		}
	}

	// Start from a fresh file so stale tables never leak into the artifact
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale journal: %w", err)
	}

	s, err := Open(target)
	if err != nil {
		return err
	}
	if err := s.WriteGraph(ctx, g); err != nil {
		s.Close()
		return err
	}
	if err := s.RecordBuild(ctx, build); err != nil {
		s.Close()
		return err
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("closing journal: %w", err)
	}

	if !compressed {
		return nil
	}
	if err := gzipFile(target, path); err != nil {
		return err
	}
	return os.Remove(target)
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening journal for compression: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		out.Close()
		return fmt.Errorf("compressing journal: %w", err)
	}
	if err := gz.Close(); err != nil {
		out.Close()
		return fmt.Errorf("closing gzip stream: %w", err)
	}
	return out.Close()
}
