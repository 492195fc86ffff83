package scheduler

import "time"

// Status reports the scheduler state for CLI/UI consumers. NextBackupTime
// is the earliest upcoming fire time across enabled schedules and is
// computed on demand, so it stays meaningful even while stopped.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	s.smu.Lock()
	last := s.lastBackup
	s.smu.Unlock()

	now := time.Now()
	var next time.Time
	active, total := 0, 0
	for _, sc := range s.reg.snapshot() {
		total++
		if !sc.Enabled {
			continue
		}
		active++
		if n := sc.Cadence.Next(now); next.IsZero() || n.Before(next) {
			next = n
		}
	}

	return Status{
		Running:         running,
		LastBackupTime:  last,
		NextBackupTime:  next,
		ActiveSchedules: active,
		TotalSchedules:  total,
		RecentBackups:   s.hist.size(),
	}
}

// Schedules returns a snapshot copy of every registered schedule.
func (s *Scheduler) Schedules() map[string]ScheduleConfig {
	return s.reg.snapshot()
}

// History returns up to limit execution records, newest first. limit <= 0
// returns the full retained history.
func (s *Scheduler) History(limit int) []HistoryRecord {
	return s.hist.recent(limit)
}
