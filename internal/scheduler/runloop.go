package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// runLoop is the long-lived goroutine behind one schedule. Each iteration
// waits until the cadence's next fire time or a shutdown signal, whichever
// comes first. Shutdown is only observed here, between executions; once a
// backup starts it runs to completion.
func (s *Scheduler) runLoop(ctx context.Context, stopCh <-chan struct{}, name string) {
	defer s.wg.Done()

	log := s.log.With(slog.String("schedule", name))
	log.Debug("run loop started")

	for {
		sc, ok := s.reg.get(name)
		if !ok || !sc.Enabled {
			log.Debug("schedule gone or disabled; run loop exiting")
			return
		}

		next := sc.Cadence.Next(time.Now())
		log.Debug("next run computed", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		s.execute(ctx, sc)
		s.reg.markRun(name, time.Now())
	}
}

// execute performs one backup attempt and records exactly one history
// entry, success or failure. Runner errors never propagate; the loop keeps
// its schedule regardless.
func (s *Scheduler) execute(ctx context.Context, sc ScheduleConfig) {
	start := time.Now()
	desc := fmt.Sprintf("Scheduled %s backup (%s)", sc.BackupType, sc.Description)

	s.publish("backup.started", BackupEvent{Schedule: sc.Name, Type: sc.BackupType})
	res, err := s.callRunner(ctx, desc, sc.BackupType)
	dur := time.Since(start)

	rec := HistoryRecord{
		Timestamp: start,
		Schedule:  sc.Name,
		Type:      sc.BackupType,
		Duration:  dur,
	}
	if err != nil {
		rec.Error = err.Error()
		s.log.Error("scheduled backup failed",
			slog.String("schedule", sc.Name), slog.Any("err", err), slog.Duration("dur", dur))
		s.publish("backup.failed", BackupEvent{Schedule: sc.Name, Type: sc.BackupType, Duration: dur, Error: rec.Error})
	} else {
		rec.Success = true
		rec.Artifact = res.Artifact
		rec.Size = res.Size

		s.smu.Lock()
		s.lastBackup = start
		s.smu.Unlock()

		s.log.Info("scheduled backup completed",
			slog.String("schedule", sc.Name), slog.String("artifact", res.Artifact),
			slog.Int64("size", res.Size), slog.Duration("dur", dur))
		s.publish("backup.finished", BackupEvent{Schedule: sc.Name, Type: sc.BackupType, Artifact: res.Artifact, Size: res.Size, Duration: dur})
	}
	s.hist.append(rec)
}

// callRunner shields the loop from a panicking runner by converting the
// panic into an ordinary execution error.
func (s *Scheduler) callRunner(ctx context.Context, desc, backupType string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in backup runner",
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("backup runner panicked: %v", r)
		}
	}()
	return s.runner.CreateBackup(ctx, desc, backupType)
}

// cleanupLoop enforces per-schedule retention on a fixed interval. The
// fallback retention is snapshotted at Start; reading it from the config here
// would mean taking the lifecycle mutex, which Stop holds across the join.
func (s *Scheduler) cleanupLoop(ctx context.Context, stopCh <-chan struct{}, fallback time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.enforceRetention(ctx, fallback)
		}
	}
}

func (s *Scheduler) enforceRetention(ctx context.Context, fallback time.Duration) {
	if s.retention == nil {
		return
	}

	// Artifacts are stored per backup type, so when several schedules share
	// a type the longest retention wins (never delete early).
	byType := map[string]time.Duration{}
	for _, sc := range s.reg.snapshot() {
		retention := sc.Retention
		if retention <= 0 {
			retention = fallback
		}
		if retention <= 0 {
			continue
		}
		if retention > byType[sc.BackupType] {
			byType[sc.BackupType] = retention
		}
	}

	for backupType, retention := range byType {
		removed, err := s.retention.RemoveExpired(ctx, backupType, retention)
		if err != nil {
			s.log.Warn("retention cleanup failed", slog.String("type", backupType), slog.Any("err", err))
			continue
		}
		if removed > 0 {
			s.log.Info("expired backups removed", slog.String("type", backupType), slog.Int("count", removed))
		}
	}
	s.log.Debug("retention cleanup pass completed")
}

// healthLoop periodically checks whether schedules are executing on time.
func (s *Scheduler) healthLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.checkHealth(time.Now())
		}
	}
}

// overdueGrace is how far past its computed next-run time a schedule may be
// before the health check flags it.
const overdueGrace = time.Hour

func (s *Scheduler) checkHealth(now time.Time) {
	for _, name := range s.overdue(now) {
		s.log.Warn("schedule overdue", slog.String("schedule", name))
		s.publish("backup.overdue", BackupEvent{Schedule: name})
	}
	s.log.Debug("health check completed")
}

// overdue returns the enabled schedules whose next run, computed from their
// last recorded run, lies more than overdueGrace in the past. Schedules
// that have never run are skipped; nothing meaningful can be derived yet.
func (s *Scheduler) overdue(now time.Time) []string {
	var out []string
	for name, sc := range s.reg.snapshot() {
		if !sc.Enabled || sc.LastRun.IsZero() {
			continue
		}
		due := sc.Cadence.Next(sc.LastRun)
		if now.Sub(due) > overdueGrace {
			out = append(out, name)
		}
	}
	return out
}
