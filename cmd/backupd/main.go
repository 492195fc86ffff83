package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"backupd/internal/backup"
	"backupd/internal/config"
	"backupd/internal/eventbus"
	"backupd/internal/logging"
	"backupd/internal/notify"
	"backupd/internal/scheduler"
)

// backupRunner adapts the backup manager to the scheduler's runner port.
type backupRunner struct{ m *backup.Manager }

func (r backupRunner) CreateBackup(ctx context.Context, description, backupType string) (scheduler.Result, error) {
	res, err := r.m.CreateBackup(ctx, description, backupType)
	if err != nil {
		return scheduler.Result{}, err
	}
	return scheduler.Result{Artifact: res.Filename, Size: res.Size}, nil
}

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./backupd.yaml", "path to config file (json or yaml)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	logSvc, log := logging.New(loggingCfg(cfg))
	defer logSvc.Close()

	catalog, err := backup.OpenCatalog(cfg.Backup.CatalogPath, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	defer catalog.Close()

	mgr, err := backup.NewManager(backup.Config{
		Dir:      cfg.Backup.BackupDir,
		Compress: cfg.Backup.Compress,
		Database: backup.DBConfig{
			Host:     cfg.Backup.Database.Host,
			Port:     cfg.Backup.Database.Port,
			User:     cfg.Backup.Database.User,
			Password: cfg.Backup.Database.Password,
			Name:     cfg.Backup.Database.Name,
			PgDump:   cfg.Backup.Database.PgDump,
		},
	}, catalog, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	bus := eventbus.New()
	sched := scheduler.New(schedulerCfg(cfg), scheduler.Deps{
		Runner:    backupRunner{m: mgr},
		Retention: mgr,
		Bus:       bus,
	}, log)

	if cfg.Notify.Enabled {
		timeout, _ := cfg.Notify.TimeoutDuration(10 * time.Second)
		notifier := notify.New(notify.Config{
			WebhookURL: cfg.Notify.WebhookURL,
			OnSuccess:  cfg.Notify.OnSuccess,
			OnFailure:  cfg.Notify.OnFailure,
			RatePerSec: cfg.Notify.RatePerSec,
			Timeout:    timeout,
		}, log)
		events, unsubscribe := bus.Subscribe(64)
		defer unsubscribe()
		go notifier.Run(ctx, events)
	}

	if err := sched.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}

	// Hot reload: logging and scheduling flags apply live; database and
	// backup-dir changes need a process restart.
	cm := config.NewManager(cfgPath, log)
	if _, err := cm.Load(); err != nil {
		log.Warn("config watcher seed load failed", slog.Any("err", err))
	}
	updates := cm.Subscribe(1)
	go func() {
		if err := cm.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("config watcher stopped", slog.Any("err", err))
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case newCfg := <-updates:
				logSvc.Apply(loggingCfg(newCfg))
				sched.Apply(schedulerCfg(newCfg))
				if sched.IsRunning() {
					if err := sched.Stop(); err != nil {
						log.Warn("scheduler stop on reload failed", slog.Any("err", err))
						continue
					}
				}
				if err := sched.Start(ctx); err != nil && !errors.Is(err, scheduler.ErrAlreadyRunning) {
					log.Error("scheduler restart on reload failed", slog.Any("err", err))
				}
			}
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if sched.IsRunning() {
		if err := sched.Stop(); err != nil {
			log.Warn("scheduler stop failed", slog.Any("err", err))
		}
	}
}

func loggingCfg(c *config.Config) logging.Config {
	return logging.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logging.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

func schedulerCfg(c *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:           c.Backup.Enabled,
		AutoBackupEnabled: c.Backup.AutoBackupEnabled,
		Retention:         c.Backup.RetentionDuration(),
	}
}
