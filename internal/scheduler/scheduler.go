package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"backupd/internal/eventbus"
)

const (
	cleanupInterval = 6 * time.Hour
	healthInterval  = 1 * time.Hour

	// defaultRetention applies to schedules added through AddSchedule.
	defaultRetention = 30 * 24 * time.Hour
)

// Deps are the scheduler's collaborators. Runner is required; Retention and
// Bus may be nil (cleanup becomes a no-op, events are not published).
type Deps struct {
	Runner    BackupRunner
	Retention RetentionEnforcer
	Bus       eventbus.Bus
}

// Scheduler owns the schedule registry, the execution history and the
// Start/Stop lifecycle. Construct it with New; the zero value is not usable.
type Scheduler struct {
	log *slog.Logger

	runner    BackupRunner
	retention RetentionEnforcer
	bus       eventbus.Bus

	reg  *registry
	hist *history

	// mu guards the lifecycle fields only. Run loops never take it, so
	// Stop may hold it across the join without deadlocking an in-flight
	// backup.
	mu      sync.Mutex
	cfg     Config
	running bool
	cancel  context.CancelFunc
	stopCh  chan struct{}
	wg      sync.WaitGroup

	smu        sync.Mutex
	lastBackup time.Time
}

// New builds a scheduler with the default schedule set pre-registered:
//
//	daily_full       every day at 03:00        configured retention
//	weekly_archive   every Sunday at 02:00     90 days
//	monthly_archive  1st of month at 01:00     365 days
//
// Each default is enabled iff cfg.AutoBackupEnabled.
func New(cfg Config, deps Deps, log *slog.Logger) *Scheduler {
	s := &Scheduler{
		log:       log,
		cfg:       cfg,
		runner:    deps.Runner,
		retention: deps.Retention,
		bus:       deps.Bus,
		reg:       newRegistry(),
		hist:      &history{},
	}
	s.registerDefaults()
	return s
}

func (s *Scheduler) registerDefaults() {
	// Cadence literals here are static and valid; add normalizes them.
	defaults := []ScheduleConfig{
		{
			Name:        "daily_full",
			Description: "Daily full database backup",
			Cadence:     Cadence{Kind: KindDaily, Hour: 3},
			BackupType:  "full",
			Enabled:     s.cfg.AutoBackupEnabled,
			Retention:   s.cfg.Retention,
		},
		{
			Name:        "weekly_archive",
			Description: "Weekly archive backup",
			Cadence:     Cadence{Kind: KindWeekly, Hour: 2, Weekday: time.Sunday},
			BackupType:  "archive",
			Enabled:     s.cfg.AutoBackupEnabled,
			Retention:   90 * 24 * time.Hour,
		},
		{
			Name:        "monthly_archive",
			Description: "Monthly long-term archive backup",
			Cadence:     Cadence{Kind: KindMonthly, Hour: 1},
			BackupType:  "archive",
			Enabled:     s.cfg.AutoBackupEnabled,
			Retention:   365 * 24 * time.Hour,
		},
	}
	for _, sc := range defaults {
		if err := s.reg.add(sc); err != nil {
			s.log.Error("default schedule rejected", slog.String("schedule", sc.Name), slog.Any("err", err))
		}
	}
}

// AddSchedule registers a new schedule under name. It fails with
// ErrScheduleExists if the name is taken and rejects malformed cadences.
func (s *Scheduler) AddSchedule(name string, cadence Cadence, description, backupType string) error {
	err := s.reg.add(ScheduleConfig{
		Name:        name,
		Description: description,
		Cadence:     cadence,
		BackupType:  backupType,
		Enabled:     true,
		Retention:   defaultRetention,
	})
	if err != nil {
		return err
	}
	s.log.Info("schedule added", slog.String("schedule", name), slog.String("cadence", cadence.String()))
	return nil
}

// RemoveSchedule unregisters a schedule. Its run loop (if any) exits on its
// next wakeup. Fails with ErrScheduleNotFound for unknown names.
func (s *Scheduler) RemoveSchedule(name string) error {
	if err := s.reg.remove(name); err != nil {
		return err
	}
	s.log.Info("schedule removed", slog.String("schedule", name))
	return nil
}

// Apply swaps the scheduler configuration and propagates the auto-backup
// flag to the registered schedules. It does not start or stop loops; the
// caller restarts the scheduler when that is wanted.
func (s *Scheduler) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.reg.setEnabledAll(cfg.AutoBackupEnabled)
}

// Start spawns one run loop per enabled schedule plus the cleanup and
// health loops. When the configuration disables backups it returns nil and
// spawns nothing. It fails with ErrAlreadyRunning on a running scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if !s.cfg.Enabled || !s.cfg.AutoBackupEnabled {
		s.log.Info("backup scheduling disabled in configuration")
		return nil
	}

	// Fresh cancellation primitives on every Start. A context or channel
	// cancelled during a previous Stop must never leak into this cycle.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopCh = make(chan struct{})
	s.running = true

	active := 0
	for name, sc := range s.reg.snapshot() {
		if !sc.Enabled {
			continue
		}
		active++
		s.wg.Add(1)
		go s.runLoop(runCtx, s.stopCh, name)
	}
	s.wg.Add(2)
	go s.cleanupLoop(runCtx, s.stopCh, s.cfg.Retention)
	go s.healthLoop(runCtx, s.stopCh)

	s.log.Info("scheduler started", slog.Int("schedules", active))
	return nil
}

// Stop cancels the shared context, signals every loop and blocks until all
// of them have exited. An in-flight backup is allowed to finish first. It
// fails with ErrNotRunning on a stopped scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	start := time.Now()
	s.log.Info("stopping scheduler")

	s.cancel()
	close(s.stopCh)
	s.wg.Wait()

	s.running = false
	s.cancel = nil
	s.stopCh = nil
	s.log.Info("scheduler stopped", slog.Duration("took", time.Since(start)))
	return nil
}

// IsRunning reports whether Start has spawned loops that have not been
// joined yet.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) publish(typ string, data BackupEvent) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventbus.Event{Type: typ, Time: time.Now(), Data: data})
}
