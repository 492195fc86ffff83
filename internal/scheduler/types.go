package scheduler

import (
	"context"
	"time"
)

// Config is the slice of daemon configuration the scheduler cares about.
// It is read at construction and again on every Start().
type Config struct {
	// Enabled is the master switch for the backup subsystem.
	Enabled bool
	// AutoBackupEnabled controls whether scheduled backups run at all.
	// When false, Start() succeeds but spawns nothing.
	AutoBackupEnabled bool
	// Retention is the default retention window for schedules that do not
	// set their own.
	Retention time.Duration
}

// Result describes a completed backup artifact.
type Result struct {
	Artifact string
	Size     int64
}

// BackupRunner executes one backup attempt. The context is cancelled when
// the scheduler stops; honoring it is the runner's responsibility.
type BackupRunner interface {
	CreateBackup(ctx context.Context, description, backupType string) (Result, error)
}

// RetentionEnforcer removes stored artifacts of a backup type that are
// older than the retention window and reports how many were removed.
// Artifacts are grouped by backup type because that is all CreateBackup
// carries; the scheduler therefore enforces the longest retention among
// schedules sharing a type.
type RetentionEnforcer interface {
	RemoveExpired(ctx context.Context, backupType string, retention time.Duration) (int, error)
}

// ScheduleConfig describes one named backup schedule. Accessors return
// value copies; LastRun is maintained by the schedule's own run loop.
type ScheduleConfig struct {
	Name        string
	Description string
	Cadence     Cadence
	BackupType  string // e.g. "full", "archive"
	Enabled     bool
	Retention   time.Duration
	LastRun     time.Time
}

// HistoryRecord is the immutable outcome of a single backup execution.
type HistoryRecord struct {
	Timestamp time.Time
	Schedule  string
	Type      string
	Artifact  string
	Success   bool
	Duration  time.Duration
	Size      int64
	Error     string
}

// Status is a point-in-time snapshot of the scheduler.
type Status struct {
	Running         bool
	LastBackupTime  time.Time
	NextBackupTime  time.Time
	ActiveSchedules int
	TotalSchedules  int
	RecentBackups   int
}

// BackupEvent is the payload published on the event bus for
// backup.started / backup.finished / backup.failed / backup.overdue.
type BackupEvent struct {
	Schedule string        `json:"schedule"`
	Type     string        `json:"type"`
	Artifact string        `json:"artifact,omitempty"`
	Size     int64         `json:"size,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}
