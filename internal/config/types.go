package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the daemon configuration. Files may be JSON or YAML; both are
// decoded strictly, so unknown keys are caught early instead of being
// silently ignored.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Backup  BackupConfig  `json:"backup"`
	Notify  NotifyConfig  `json:"notify,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// BackupConfig controls the backup subsystem.
//
// Enabled is the master switch; AutoBackupEnabled additionally gates the
// scheduled (as opposed to operator-triggered) backups.
type BackupConfig struct {
	Enabled           bool           `json:"enabled"`
	AutoBackupEnabled bool           `json:"auto_backup_enabled"`
	BackupDir         string         `json:"backup_dir"`
	RetentionDays     int            `json:"retention_days"`
	Compress          bool           `json:"compress"`
	CatalogPath       string         `json:"catalog_path,omitempty"`
	Database          DatabaseConfig `json:"database"`
}

// RetentionDuration returns the default retention window as a duration.
func (c BackupConfig) RetentionDuration() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name"`
	// PgDump overrides the pg_dump binary path (default: "pg_dump" on PATH).
	PgDump string `json:"pg_dump,omitempty"`
}

// NotifyConfig controls webhook notifications for backup outcomes.
// Timeout is a Go duration string (e.g. "10s").
type NotifyConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
	OnSuccess  bool   `json:"on_success"`
	OnFailure  bool   `json:"on_failure"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

// TimeoutDuration parses the webhook delivery timeout. Empty or zero means
// "use def"; malformed or negative values are an error.
func (c NotifyConfig) TimeoutDuration(def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(c.Timeout)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("notify.timeout: invalid duration %q: %w", c.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("notify.timeout: must be >= 0")
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
