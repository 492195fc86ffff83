package scheduler

import (
	"fmt"
	"sync"
	"time"
)

// registry is the mutable map of schedule definitions. It has its own lock
// so run loops can read it without touching the lifecycle mutex.
type registry struct {
	mu        sync.Mutex
	schedules map[string]*ScheduleConfig
}

func newRegistry() *registry {
	return &registry{schedules: map[string]*ScheduleConfig{}}
}

func (r *registry) add(sc ScheduleConfig) error {
	cad, err := sc.Cadence.normalized()
	if err != nil {
		return fmt.Errorf("schedule %s: %w", sc.Name, err)
	}
	sc.Cadence = cad

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schedules[sc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrScheduleExists, sc.Name)
	}
	cp := sc
	r.schedules[sc.Name] = &cp
	return nil
}

func (r *registry) remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schedules[name]; !exists {
		return fmt.Errorf("%w: %s", ErrScheduleNotFound, name)
	}
	delete(r.schedules, name)
	return nil
}

// get returns a value copy; the zero ScheduleConfig and false when absent.
func (r *registry) get(name string) (ScheduleConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.schedules[name]
	if !ok {
		return ScheduleConfig{}, false
	}
	return *sc, true
}

// snapshot returns a defensive copy of every schedule so callers can never
// race with run-loop mutation of LastRun.
func (r *registry) snapshot() map[string]ScheduleConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]ScheduleConfig, len(r.schedules))
	for name, sc := range r.schedules {
		out[name] = *sc
	}
	return out
}

func (r *registry) markRun(name string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sc, ok := r.schedules[name]; ok {
		sc.LastRun = at
	}
}

// setEnabledAll flips the enabled flag on every schedule. Used when the
// auto-backup configuration flag changes.
func (r *registry) setEnabledAll(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sc := range r.schedules {
		sc.Enabled = enabled
	}
}
