// Package backup produces PostgreSQL dump files and enforces retention on
// the resulting artifacts. The scheduler drives it through small
// interfaces; nothing here knows about cadences or run loops.
package backup

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Dir      string
	Compress bool
	Database DBConfig
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// PgDump is the dump binary to invoke (default "pg_dump" on PATH).
	PgDump string
}

// Result describes a produced backup file.
type Result struct {
	Filename string
	Size     int64
}

type Manager struct {
	cfg     Config
	log     *slog.Logger
	catalog *Catalog
}

func NewManager(cfg Config, catalog *Catalog, log *slog.Logger) (*Manager, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("backup dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	if cfg.Database.PgDump == "" {
		cfg.Database.PgDump = "pg_dump"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	return &Manager{cfg: cfg, log: log, catalog: catalog}, nil
}

// CreateBackup runs pg_dump into a timestamped file, optionally gzips it
// and catalogs the artifact. The context aborts the dump mid-flight.
func (m *Manager) CreateBackup(ctx context.Context, description, backupType string) (*Result, error) {
	start := time.Now()
	if backupType == "" {
		backupType = "full"
	}

	base := fmt.Sprintf("%s_backup_%s.sql", backupType, start.Format("20060102_150405"))
	path := filepath.Join(m.cfg.Dir, base)

	db := m.cfg.Database
	args := []string{
		"-h", db.Host,
		"-p", strconv.Itoa(db.Port),
		"-U", db.User,
		"-d", db.Name,
		"-f", path,
		"--no-password",
	}
	cmd := exec.CommandContext(ctx, db.PgDump, args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+db.Password)

	m.log.Info("backup starting", slog.String("type", backupType), slog.String("description", description))
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(path) // partial dump is worthless
		return nil, fmt.Errorf("pg_dump: %w: %s", err, strings.TrimSpace(string(out)))
	}

	final := path
	if m.cfg.Compress {
		gz, err := gzipFile(path)
		if err != nil {
			return nil, fmt.Errorf("compress backup: %w", err)
		}
		final = gz
	}

	fi, err := os.Stat(final)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	filename := filepath.Base(final)
	if m.catalog != nil {
		if err := m.catalog.Add(ctx, Artifact{Filename: filename, Type: backupType, Size: fi.Size(), CreatedAt: start}); err != nil {
			// The dump itself succeeded; an uncatalogued artifact just
			// escapes retention until recorded again.
			m.log.Warn("catalog insert failed", slog.String("artifact", filename), slog.Any("err", err))
		}
	}

	m.log.Info("backup created",
		slog.String("artifact", filename), slog.Int64("size", fi.Size()),
		slog.Duration("dur", time.Since(start)))
	return &Result{Filename: filename, Size: fi.Size()}, nil
}

// RemoveExpired deletes catalogued artifacts of backupType older than the
// retention window, files first, then their catalog rows.
func (m *Manager) RemoveExpired(ctx context.Context, backupType string, retention time.Duration) (int, error) {
	if m.catalog == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	expired, err := m.catalog.Expired(ctx, backupType, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	removed := 0
	for _, a := range expired {
		path := filepath.Join(m.cfg.Dir, a.Filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.log.Warn("remove expired backup failed", slog.String("artifact", a.Filename), slog.Any("err", err))
			continue
		}
		if err := m.catalog.Remove(ctx, a.Filename); err != nil {
			m.log.Warn("catalog delete failed", slog.String("artifact", a.Filename), slog.Any("err", err))
			continue
		}
		removed++
	}
	return removed, nil
}

// gzipFile compresses src to src.gz and removes the original.
func gzipFile(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	dst := src + ".gz"
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}

	_ = in.Close()
	if err := os.Remove(src); err != nil {
		return "", err
	}
	return dst, nil
}
