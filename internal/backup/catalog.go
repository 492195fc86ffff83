package backup

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Artifact is one catalogued backup file.
type Artifact struct {
	Filename  string
	Type      string
	Size      int64
	CreatedAt time.Time
}

// Catalog records produced artifacts in sqlite so retention cleanup works
// from durable metadata instead of directory scans.
type Catalog struct {
	db  *sql.DB
	log *slog.Logger
}

func OpenCatalog(path string, log *slog.Logger) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	c := &Catalog{db: db, log: log}
	if err := c.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("catalog migrate: %w", err)
	}
	return c, nil
}

func (c *Catalog) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, string(b))
	return err
}

func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Catalog) Add(ctx context.Context, a Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO artifacts(filename, backup_type, size, created_at) VALUES(?,?,?,?)
		 ON CONFLICT(filename) DO UPDATE SET size=excluded.size`,
		a.Filename, a.Type, a.Size, a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Expired returns artifacts of backupType created before cutoff, oldest
// first.
func (c *Catalog) Expired(ctx context.Context, backupType string, cutoff time.Time) ([]Artifact, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT filename, backup_type, size, created_at FROM artifacts
		 WHERE backup_type = ? AND created_at < ? ORDER BY created_at`,
		backupType, cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		var created string
		if err := rows.Scan(&a.Filename, &a.Type, &a.Size, &created); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			a.CreatedAt = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (c *Catalog) Remove(ctx context.Context, filename string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM artifacts WHERE filename = ?`, filename)
	return err
}
