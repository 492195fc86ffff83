// Package scheduler drives recurring database backups.
//
// # Overview
//
// A Scheduler owns a registry of named schedules, each with its own cadence
// (fixed interval, daily/weekly/monthly at a clock time, or a raw cron spec).
// Start() spawns one long-lived goroutine per enabled schedule plus two
// auxiliary loops (retention cleanup and health monitoring), all sharing one
// cancellation context created fresh for that Start. Stop() cancels and joins
// every goroutine before reporting the scheduler as stopped.
//
// The scheduler does not perform backups itself; it calls the injected
// BackupRunner and records the outcome of every attempt in a bounded
// in-memory history (newest entries first, capacity 100).
//
// # Lifecycle
//
// Start/Stop may be cycled any number of times; cancellation primitives are
// recreated on every Start. Registering or removing schedules while stopped
// is supported: definitions are stored and picked up on the next Start.
// A schedule added while running takes effect on the next Start.
//
// # Shutdown semantics
//
// Cancellation is cooperative. A run loop only checks for shutdown between
// executions, never mid-execution, so Stop() can block for as long as the
// current backup takes. Every history record therefore corresponds to a
// completed attempt.
package scheduler
