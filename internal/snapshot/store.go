// Package snapshot persists graph fact logs as content-addressed commits
// in SQLite. A commit's id is the hash of the log's canonical encoding, so
// identical logs share an id and saving is idempotent. Restore rebuilds a
// graph exclusively through its public append surface.
package snapshot

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/minigraph/internal/graph"
	"github.com/roach88/minigraph/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// ErrCommitNotFound is returned when a requested commit id does not exist.
var ErrCommitNotFound = errors.New("snapshot: commit not found")

// Commit describes one saved snapshot.
type Commit struct {
	ID        string
	CreatedAt string
	HeadSeq   int64
	QuadCount int
}

// Store provides durable snapshot storage backed by SQLite.
// Uses WAL mode with a single connection; SQLite supports one writer at a
// time and a second connection only buys SQLITE_BUSY errors.
type Store struct {
	db *sql.DB
}

// Open creates or opens a snapshot database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// multiple times on the same file.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", ir.SnapshotVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Save records the graph's current committed log as a new commit and
// returns its id. Saving the same log twice returns the same id without
// writing a second copy.
func (s *Store) Save(ctx context.Context, g *graph.Graph) (string, error) {
	quads := g.Facts()
	id := ir.CommitID(quads)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO commits (id, head_seq, quad_count, engine_version, snapshot_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, g.Head(), len(quads), ir.EngineVersion, ir.SnapshotVersion)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	// Zero rows affected means the id already exists; its quads are the
	// same by construction, so there is nothing left to write.
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return id, tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO commit_quads (commit_id, position, source, attribute, value, context, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	defer stmt.Close()

	for i, q := range quads {
		_, err := stmt.ExecContext(ctx, id, i,
			ir.EncodeValue(q.Source),
			ir.EncodeValue(q.Attribute),
			ir.EncodeValue(q.Value),
			ir.EncodeValue(q.Context),
			q.Seq)
		if err != nil {
			return "", fmt.Errorf("save snapshot: quad %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return id, nil
}

// Load reads one commit's quads in log order.
func (s *Store) Load(ctx context.Context, id string) ([]ir.Quad, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT quad_count FROM commits WHERE id = ?`, id).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCommitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, attribute, value, context, seq
		FROM commit_quads
		WHERE commit_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	quads := make([]ir.Quad, 0, count)
	for rows.Next() {
		var src, attr, val, ctxEnc string
		var seq int64
		if err := rows.Scan(&src, &attr, &val, &ctxEnc, &seq); err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		q, err := decodeQuad(src, attr, val, ctxEnc, seq)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		quads = append(quads, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return quads, nil
}

// Restore replaces the graph's contents with the given commit. The graph
// is cleared and each quad re-enters through AppendIn, so the restored log
// carries fresh sequence numbers in the original order. Watches do not
// survive a restore; callers re-register them afterward.
func (s *Store) Restore(ctx context.Context, g *graph.Graph, id string) error {
	quads, err := s.Load(ctx, id)
	if err != nil {
		return err
	}

	g.Clear()
	err = g.Batch(func() error {
		for _, q := range quads {
			g.AppendIn(q.Source, q.Attribute, q.Value, q.Context)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	return nil
}

// Log lists all commits, newest first.
func (s *Store) Log(ctx context.Context) ([]Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, head_seq, quad_count
		FROM commits
		ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("snapshot log: %w", err)
	}
	defer rows.Close()

	var out []Commit
	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.ID, &c.CreatedAt, &c.HeadSeq, &c.QuadCount); err != nil {
			return nil, fmt.Errorf("snapshot log: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot log: %w", err)
	}
	return out, nil
}

// Head returns the most recent commit, or ErrCommitNotFound on an empty
// store.
func (s *Store) Head(ctx context.Context) (Commit, error) {
	var c Commit
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, head_seq, quad_count
		FROM commits
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&c.ID, &c.CreatedAt, &c.HeadSeq, &c.QuadCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Commit{}, ErrCommitNotFound
	}
	if err != nil {
		return Commit{}, fmt.Errorf("snapshot head: %w", err)
	}
	return c, nil
}

func decodeQuad(src, attr, val, ctxEnc string, seq int64) (ir.Quad, error) {
	var q ir.Quad
	var err error
	if q.Source, err = ir.DecodeValue(src); err != nil {
		return q, err
	}
	if q.Attribute, err = ir.DecodeValue(attr); err != nil {
		return q, err
	}
	if q.Value, err = ir.DecodeValue(val); err != nil {
		return q, err
	}
	if q.Context, err = ir.DecodeValue(ctxEnc); err != nil {
		return q, err
	}
	q.Seq = seq
	return q, nil
}
