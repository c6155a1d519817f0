// Package schedule runs standing briefing deliveries.
//
// A Scheduler owns a single cron runner and one job per (target, cadence)
// pair. Each job fires at a caller-chosen wall-clock time in a caller-chosen
// timezone, then repeats at the cadence interval. The scheduler composes the
// briefing at fire time and hands the rendered text to an injected delivery
// function; it never talks to a chat platform itself.
package schedule

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"botmetrics/internal/services"
)

// DeliverFunc posts one rendered briefing to its destination. Implementations
// typically wrap an outbound webhook or bot client.
type DeliverFunc func(ctx context.Context, target, text string) error

// Task describes one standing briefing.
type Task struct {
	Target    string           `json:"target"`
	Cadence   services.Cadence `json:"cadence"`
	TimeOfDay string           `json:"time_of_day"`
	Timezone  string           `json:"timezone"`
	NextRun   time.Time        `json:"next_run"`
}

// Scheduler manages standing briefings on top of a cron runner. Safe for
// concurrent use.
type Scheduler struct {
	briefings *services.BriefingService
	deliver   DeliverFunc
	log       zerolog.Logger

	// DeliverTimeout bounds one compose-and-deliver run.
	DeliverTimeout time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]map[services.Cadence]cron.EntryID
	tasks   map[string]map[services.Cadence]Task
}

// New constructs a Scheduler. Jobs that are still running when their next
// fire comes due are skipped for that fire, and panicking jobs are recovered
// and logged, leaving the schedule intact.
func New(briefings *services.BriefingService, deliver DeliverFunc, logger zerolog.Logger) *Scheduler {
	cronLog := cron.PrintfLogger(&logger)
	return &Scheduler{
		briefings:      briefings,
		deliver:        deliver,
		log:            logger,
		DeliverTimeout: time.Minute,
		cron: cron.New(
			cron.WithChain(
				cron.Recover(cronLog),
				cron.SkipIfStillRunning(cronLog),
			),
		),
		entries: make(map[string]map[services.Cadence]cron.EntryID),
		tasks:   make(map[string]map[services.Cadence]Task),
	}
}

// Start begins firing jobs. Idempotent.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for in-flight jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var timeOfDayRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// parseTimeOfDay validates an HH:MM wall-clock time.
func parseTimeOfDay(s string) (hour, minute int, err error) {
	m := timeOfDayRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, services.ErrInvalidTimeOfDay
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, services.ErrInvalidTimeOfDay
	}
	return hour, minute, nil
}

// Schedule registers a standing briefing for target at timeOfDay (HH:MM) in
// the given IANA timezone (empty = UTC), repeating at the cadence interval.
// A second schedule for the same (target, cadence) pair is rejected with
// ErrDuplicateSchedule and leaves the existing one untouched.
func (s *Scheduler) Schedule(target, timeOfDay string, cadence services.Cadence, timezone string) (Task, error) {
	if target == "" {
		return Task{}, services.ErrInvalidTarget
	}
	hour, minute, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return Task{}, err
	}
	if _, err := services.ParseCadence(string(cadence)); err != nil {
		return Task{}, err
	}
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Task{}, services.ErrInvalidTimezone
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.entries[target][cadence]; dup {
		return Task{}, services.ErrDuplicateSchedule
	}

	sched := &cadenceSchedule{
		hour:     hour,
		minute:   minute,
		interval: cadence.Window(),
		loc:      loc,
	}
	id := s.cron.Schedule(sched, cron.FuncJob(func() { s.run(target, cadence) }))

	if s.entries[target] == nil {
		s.entries[target] = make(map[services.Cadence]cron.EntryID)
		s.tasks[target] = make(map[services.Cadence]Task)
	}
	s.entries[target][cadence] = id

	task := Task{
		Target:    target,
		Cadence:   cadence,
		TimeOfDay: timeOfDay,
		Timezone:  timezone,
		NextRun:   s.cron.Entry(id).Next,
	}
	s.tasks[target][cadence] = task

	s.log.Info().
		Str("target", target).
		Str("cadence", string(cadence)).
		Str("time_of_day", timeOfDay).
		Str("timezone", timezone).
		Time("next_run", task.NextRun).
		Msg("briefing scheduled")
	return task, nil
}

// Unschedule removes every standing briefing for the target, across all
// cadences. ErrScheduleNotFound when the target has none. Removal takes
// effect before the next fire; a run already in flight completes.
func (s *Scheduler) Unschedule(target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.entries[target]
	if !ok || len(ids) == 0 {
		return services.ErrScheduleNotFound
	}
	for cadence, id := range ids {
		s.cron.Remove(id)
		s.log.Info().
			Str("target", target).
			Str("cadence", string(cadence)).
			Msg("briefing unscheduled")
	}
	delete(s.entries, target)
	delete(s.tasks, target)
	return nil
}

// List returns all standing briefings, ordered by target then cadence, with
// each task's next fire time refreshed from the runner.
func (s *Scheduler) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.tasks))
	for target, byCadence := range s.tasks {
		for cadence, task := range byCadence {
			if id, ok := s.entries[target][cadence]; ok {
				if next := s.cron.Entry(id).Next; !next.IsZero() {
					task.NextRun = next
				}
			}
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return out[i].Cadence < out[j].Cadence
	})
	return out
}

// run composes and delivers one briefing. Failures are logged and swallowed
// so a bad run never disturbs the standing schedule.
func (s *Scheduler) run(target string, cadence services.Cadence) {
	ctx, cancel := context.WithTimeout(context.Background(), s.DeliverTimeout)
	defer cancel()

	br, err := s.briefings.Compose(ctx, cadence)
	if err != nil {
		s.log.Error().
			Err(err).
			Str("target", target).
			Str("cadence", string(cadence)).
			Msg("briefing composition failed")
		return
	}
	if err := s.deliver(ctx, target, br.Text()); err != nil {
		s.log.Error().
			Err(err).
			Str("target", target).
			Str("cadence", string(cadence)).
			Msg("briefing delivery failed")
		return
	}
	s.log.Info().
		Str("target", target).
		Str("cadence", string(cadence)).
		Msg("briefing delivered")
}

// cadenceSchedule is a cron.Schedule that first fires at the next occurrence
// of hour:minute in loc and then repeats every interval. Cron expressions
// cannot express "every 7 or 30 days anchored to a wall-clock time", hence
// the custom schedule.
type cadenceSchedule struct {
	hour     int
	minute   int
	interval time.Duration
	loc      *time.Location

	mu     sync.Mutex
	anchor time.Time
}

// Next implements cron.Schedule.
func (cs *cadenceSchedule) Next(t time.Time) time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.anchor.IsZero() {
		lt := t.In(cs.loc)
		anchor := time.Date(lt.Year(), lt.Month(), lt.Day(), cs.hour, cs.minute, 0, 0, cs.loc)
		if !anchor.After(t) {
			anchor = anchor.Add(24 * time.Hour)
		}
		cs.anchor = anchor
	}
	next := cs.anchor
	for !next.After(t) {
		next = next.Add(cs.interval)
	}
	return next
}
