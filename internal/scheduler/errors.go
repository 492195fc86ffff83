package scheduler

import "errors"

var (
	// ErrAlreadyRunning is returned by Start when the scheduler is running.
	ErrAlreadyRunning = errors.New("scheduler already running")
	// ErrNotRunning is returned by Stop when the scheduler is not running.
	ErrNotRunning = errors.New("scheduler not running")
	// ErrScheduleExists is returned by AddSchedule for a duplicate name.
	ErrScheduleExists = errors.New("schedule already exists")
	// ErrScheduleNotFound is returned by RemoveSchedule for an unknown name.
	ErrScheduleNotFound = errors.New("schedule not found")
)
