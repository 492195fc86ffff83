package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Load reads, decodes, defaults and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	jsonBytes, format, err := coerceToJSONBytes(path, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s config: %w", format, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jsonBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Backup.BackupDir == "" {
		c.Backup.BackupDir = "./backups"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 30
	}
	if c.Backup.CatalogPath == "" {
		c.Backup.CatalogPath = filepath.Join(c.Backup.BackupDir, "catalog.db")
	}
	if c.Backup.Database.Host == "" {
		c.Backup.Database.Host = "localhost"
	}
	if c.Backup.Database.Port == 0 {
		c.Backup.Database.Port = 5432
	}
	if c.Backup.Database.PgDump == "" {
		c.Backup.Database.PgDump = "pg_dump"
	}
	if c.Notify.RatePerSec == 0 {
		c.Notify.RatePerSec = 1
	}
}

func (c *Config) Validate() error {
	if c.Backup.Enabled {
		if c.Backup.BackupDir == "" {
			return fmt.Errorf("backup.backup_dir: must not be empty")
		}
		if c.Backup.RetentionDays < 1 {
			return fmt.Errorf("backup.retention_days: must be at least 1")
		}
		if c.Backup.Database.Name == "" {
			return fmt.Errorf("backup.database.name: must not be empty")
		}
	}
	if c.Notify.Enabled && strings.TrimSpace(c.Notify.WebhookURL) == "" {
		return fmt.Errorf("notify.webhook_url: required when notify is enabled")
	}
	if _, err := c.Notify.TimeoutDuration(0); err != nil {
		return err
	}
	return nil
}

// coerceToJSONBytes converts YAML config to JSON bytes so the strict JSON
// decoder (DisallowUnknownFields) serves both formats.
func coerceToJSONBytes(path string, data []byte) ([]byte, string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, "json", nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, "yaml", fmt.Errorf("yaml unmarshal: %w", err)
	}
	v = normalizeYAML(v)

	j, err := json.Marshal(v)
	if err != nil {
		return nil, "yaml", fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, "yaml", nil
}

// normalizeYAML ensures all map keys are strings so the result can be
// JSON-marshaled.
func normalizeYAML(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[k] = normalizeYAML(v)
		}
		return m
	case []any:
		for i := range x {
			x[i] = normalizeYAML(x[i])
		}
		return x
	default:
		return in
	}
}
