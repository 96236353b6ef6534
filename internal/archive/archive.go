// Package archive stores generated recipe documents in SQLite so they can
// be looked up, integrity-checked and served after the fact.
package archive

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("recipe not found")

// Entry is one archived recipe, without its document text.
type Entry struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Checksum      string    `json:"checksum"`
	NumOperations int       `json:"num_of_operations"`
	WaitSeconds   float64   `json:"wait_duration_sec"`
	CreatedAt     time.Time `json:"created_at"`
}

// StoreRequest describes a recipe document to archive.
type StoreRequest struct {
	Name          string
	Content       string
	NumOperations int
	WaitSeconds   float64
}

// Archive is a SQLite-backed store of generated recipes. Documents are
// stored as opaque text together with their summary statistics; the
// archive never parses them back into operations.
type Archive struct {
	db *sql.DB
}

// Open opens (and creates if needed) the archive database at path and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("archive path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(pctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if err := bootstrap(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS recipes (
  id             TEXT PRIMARY KEY,
  name           TEXT NOT NULL,
  content        TEXT NOT NULL,
  checksum       TEXT NOT NULL,
  num_operations INTEGER NOT NULL,
  wait_seconds   REAL NOT NULL,
  created_at     TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS recipes_created_at_idx ON recipes(created_at);`,
		`CREATE INDEX IF NOT EXISTS recipes_name_idx ON recipes(name);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap archive: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (a *Archive) Close() error { return a.db.Close() }

// Store archives a recipe document and returns its generated ID. The
// document's BLAKE3 checksum is recorded alongside so later reads can be
// verified.
func (a *Archive) Store(ctx context.Context, req StoreRequest) (string, error) {
	if req.Name == "" {
		return "", fmt.Errorf("name is empty")
	}
	if req.Content == "" {
		return "", fmt.Errorf("content is empty")
	}

	id := uuid.NewString()
	sum := blake3.Sum256([]byte(req.Content))
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := a.db.ExecContext(ctx, `
INSERT INTO recipes(id, name, content, checksum, num_operations, wait_seconds, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?);
`, id, req.Name, req.Content, hex.EncodeToString(sum[:]), req.NumOperations, req.WaitSeconds, now)
	if err != nil {
		return "", fmt.Errorf("store recipe: %w", err)
	}
	return id, nil
}

// Get returns the metadata of one archived recipe.
func (a *Archive) Get(ctx context.Context, id string) (*Entry, error) {
	row := a.db.QueryRowContext(ctx, `
SELECT id, name, checksum, num_operations, wait_seconds, created_at
FROM recipes
WHERE id = ?;
`, id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return e, nil
}

// Content returns the stored document text of one archived recipe.
func (a *Archive) Content(ctx context.Context, id string) (string, error) {
	var content string
	err := a.db.QueryRowContext(ctx,
		`SELECT content FROM recipes WHERE id = ?;`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get recipe content: %w", err)
	}
	return content, nil
}

// List returns all archived recipes, newest first.
func (a *Archive) List(ctx context.Context) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx, `
SELECT id, name, checksum, num_operations, wait_seconds, created_at
FROM recipes
ORDER BY created_at DESC, rowid DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list recipes: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return out, nil
}

// Verify recomputes the checksum of a stored document and compares it with
// the one recorded at store time.
func (a *Archive) Verify(ctx context.Context, id string) error {
	var content, checksum string
	err := a.db.QueryRowContext(ctx,
		`SELECT content, checksum FROM recipes WHERE id = ?;`, id).Scan(&content, &checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("verify recipe: %w", err)
	}

	sum := blake3.Sum256([]byte(content))
	if got := hex.EncodeToString(sum[:]); got != checksum {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", id, checksum, got)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e          Entry
		createdAtS string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Checksum, &e.NumOperations, &e.WaitSeconds, &createdAtS); err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAtS); err == nil {
		e.CreatedAt = t
	}
	return &e, nil
}
