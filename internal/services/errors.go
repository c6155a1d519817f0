// Package services implements the statistics engine's business logic: the
// query facade over the invocation store, aggregation semantics, and
// briefing composition. This file centralizes common service-level error
// values so that they can be consistently returned by service methods and
// checked by callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer.
package services

import "errors"

// Validation errors. These are the only failures surfaced directly to the
// caller of a public operation; no state is mutated when one is returned.
var (
	// ErrInvalidPeriod is returned for a time-period string that is not of
	// the form <n><unit> with unit one of h, d, w, m.
	ErrInvalidPeriod = errors.New("invalid time period: use forms like 1h, 1d, 1w, 1m")

	// ErrInvalidInvocation is returned when an invocation report is missing
	// a command name or user id, or carries a negative execution time.
	ErrInvalidInvocation = errors.New("invocation requires a command name and user id")

	// ErrInvalidBreakdown is returned for an unknown guild breakdown.
	ErrInvalidBreakdown = errors.New("breakdown must be one of: overall, commands, users, channels")

	// ErrInvalidCadence is returned for an unknown briefing cadence.
	ErrInvalidCadence = errors.New("cadence must be one of: daily, weekly, monthly")

	// ErrInvalidTimeOfDay is returned when a briefing time is not a valid
	// HH:MM wall-clock value.
	ErrInvalidTimeOfDay = errors.New("time of day must be HH:MM (00-23:00-59)")

	// ErrInvalidTarget indicates a briefing schedule with no destination.
	ErrInvalidTarget = errors.New("briefing target must not be empty")

	// ErrInvalidTimezone is returned for an unknown IANA timezone name.
	ErrInvalidTimezone = errors.New("unknown timezone")
)

// Neutral not-found sentinels. These report "no data for this selection",
// which is distinct from both an error and a legitimate zero-valued stat.
var (
	// ErrNoStats indicates a query matched zero records. Callers render it
	// as an explicit "no statistics" message, never as fabricated zeros.
	ErrNoStats = errors.New("no statistics recorded for this selection")

	// ErrScheduleNotFound indicates no briefing is scheduled for a target.
	ErrScheduleNotFound = errors.New("no briefing scheduled for this target")
)

// ErrDuplicateSchedule is returned when a briefing already exists for a
// (target, cadence) pair; the existing one must be removed first.
var ErrDuplicateSchedule = errors.New("a briefing with this cadence is already scheduled for this target")
