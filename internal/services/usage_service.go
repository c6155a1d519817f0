// Package services – UsageService
//
// This file implements the UsageService, the query facade over the
// append-only invocation log. It records completed command invocations
// (best-effort with respect to the command path that reports them) and
// computes windowed aggregates: per-command, per-user, and per-guild
// summaries, error groupings, and hour-of-day histograms.
//
// Aggregates are recomputed from raw rows on every call and are never
// cached; two identical queries with no intervening writes return
// identical results. Service-level errors (e.g., ErrNoStats) are returned
// for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"botmetrics/internal/domain"
	"botmetrics/internal/repo"
)

// ParsePeriod converts a human time-period string into a trailing window
// duration. Accepted forms are <n><unit> with n >= 1 and unit one of
// h (hours), d (days), w (weeks), m (30-day months). Anything else yields
// ErrInvalidPeriod.
func ParsePeriod(p string) (time.Duration, error) {
	p = strings.TrimSpace(p)
	if len(p) < 2 {
		return 0, ErrInvalidPeriod
	}
	n, err := strconv.Atoi(p[:len(p)-1])
	if err != nil || n < 1 {
		return 0, ErrInvalidPeriod
	}
	switch p[len(p)-1] {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	default:
		return 0, ErrInvalidPeriod
	}
}

// GuildBreakdown selects the shape of a guild statistics query.
type GuildBreakdown string

// Supported guild breakdowns.
const (
	BreakdownOverall  GuildBreakdown = "overall"
	BreakdownCommands GuildBreakdown = "commands"
	BreakdownUsers    GuildBreakdown = "users"
	BreakdownChannels GuildBreakdown = "channels"
)

// ParseBreakdown validates a breakdown string; empty means overall.
func ParseBreakdown(s string) (GuildBreakdown, error) {
	switch GuildBreakdown(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return BreakdownOverall, nil
	case BreakdownOverall:
		return BreakdownOverall, nil
	case BreakdownCommands:
		return BreakdownCommands, nil
	case BreakdownUsers:
		return BreakdownUsers, nil
	case BreakdownChannels:
		return BreakdownChannels, nil
	default:
		return "", ErrInvalidBreakdown
	}
}

// GuildStats is the result of a guild query; exactly one of the payload
// fields is populated, according to Breakdown.
type GuildStats struct {
	GuildID   string                `json:"guild_id"`
	Breakdown GuildBreakdown        `json:"breakdown"`
	Commands  []domain.CommandStat  `json:"commands,omitempty"`
	Users     []domain.ActorCount   `json:"users,omitempty"`
	Channels  []domain.ChannelCount `json:"channels,omitempty"`
	Overview  *domain.GuildOverview `json:"overview,omitempty"`
}

// NewInvocation is the caller-supplied report of one completed command.
// GuildID and ChannelID are empty for direct messages; ErrorMessage is
// only meaningful when Success is false; ExecutionTime is nil when the
// dispatcher did not measure the command.
type NewInvocation struct {
	CommandName   string   `json:"command_name"`
	UserID        string   `json:"user_id"`
	GuildID       string   `json:"guild_id,omitempty"`
	ChannelID     string   `json:"channel_id,omitempty"`
	Success       bool     `json:"success"`
	ErrorMessage  string   `json:"error_message,omitempty"`
	ExecutionTime *float64 `json:"execution_time,omitempty"`
}

// UsageService provides invocation recording and windowed aggregation over
// the usage log. It is safe for concurrent use.
type UsageService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// TrackTimeout bounds each best-effort background write issued by
	// Track. Writes slower than this are abandoned and logged.
	TrackTimeout time.Duration

	// now is the clock used for window cutoffs and timestamps; replaced
	// in tests for determinism.
	now func() time.Time
}

// NewUsageService constructs a UsageService with a sane tracking timeout.
func NewUsageService(db *gorm.DB) *UsageService {
	return &UsageService{
		DB:           db,
		TrackTimeout: 5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// cutoff converts an optional trailing window into an inclusive unix-seconds
// lower bound; nil means all time (cutoff 0).
func (s *UsageService) cutoff(window *time.Duration) int64 {
	if window == nil || *window <= 0 {
		return 0
	}
	return s.now().Add(-*window).Unix()
}

// Record validates and appends one invocation with timestamp = now. The
// write is synchronous; use Track from command-response paths that must
// not wait on storage.
func (s *UsageService) Record(ctx context.Context, in NewInvocation) (*domain.CommandInvocation, error) {
	if strings.TrimSpace(in.CommandName) == "" || strings.TrimSpace(in.UserID) == "" {
		return nil, ErrInvalidInvocation
	}
	if in.ExecutionTime != nil && *in.ExecutionTime < 0 {
		return nil, ErrInvalidInvocation
	}

	inv := &domain.CommandInvocation{
		CommandName:   in.CommandName,
		UserID:        in.UserID,
		Timestamp:     s.now().Unix(),
		Success:       in.Success,
		ExecutionTime: in.ExecutionTime,
	}
	if in.GuildID != "" {
		g := in.GuildID
		inv.GuildID = &g
	}
	if in.ChannelID != "" {
		ch := in.ChannelID
		inv.ChannelID = &ch
	}
	// The error message only carries meaning for failures; a message on a
	// successful invocation is discarded rather than stored.
	if !in.Success && in.ErrorMessage != "" {
		m := in.ErrorMessage
		inv.ErrorMessage = &m
	}

	if err := repo.InsertInvocation(ctx, s.DB, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Track records an invocation in the background, bounded by TrackTimeout.
// Storage failures are logged and dropped: tracking is best-effort relative
// to the command result it instruments and must never delay or break the
// user-facing reply. Validation failures are still returned immediately.
func (s *UsageService) Track(in NewInvocation) error {
	if strings.TrimSpace(in.CommandName) == "" || strings.TrimSpace(in.UserID) == "" {
		return ErrInvalidInvocation
	}
	if in.ExecutionTime != nil && *in.ExecutionTime < 0 {
		return ErrInvalidInvocation
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.TrackTimeout)
		defer cancel()
		if _, err := s.Record(ctx, in); err != nil {
			log.Warn().
				Err(err).
				Str("command", in.CommandName).
				Str("user_id", in.UserID).
				Msg("dropping invocation record")
		}
	}()
	return nil
}

// CommandStats returns the usage summary of every command seen within the
// window (nil = all time), ordered by total uses descending with name
// tiebreak. An empty slice means no invocations matched.
func (s *UsageService) CommandStats(ctx context.Context, window *time.Duration) ([]domain.CommandStat, error) {
	return repo.CommandStats(ctx, s.DB, repo.InvocationFilter{Cutoff: s.cutoff(window)})
}

// CommandStat returns the summary for a single named command, or ErrNoStats
// when the command has no recorded invocations in the window. A never-used
// command is therefore distinguishable from one with a present-but-unused
// stat; no zero-filled placeholder is synthesized.
func (s *UsageService) CommandStat(ctx context.Context, name string, window *time.Duration) (*domain.CommandStat, error) {
	stats, err := repo.CommandStats(ctx, s.DB, repo.InvocationFilter{
		CommandName: name,
		Cutoff:      s.cutoff(window),
	})
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, ErrNoStats
	}
	return &stats[0], nil
}

// UserStats returns per-command summaries for one user's invocations,
// ordered like CommandStats. ErrNoStats when the user has none.
func (s *UsageService) UserStats(ctx context.Context, userID string, window *time.Duration) ([]domain.CommandStat, error) {
	stats, err := repo.CommandStats(ctx, s.DB, repo.InvocationFilter{
		UserID: userID,
		Cutoff: s.cutoff(window),
	})
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, ErrNoStats
	}
	return stats, nil
}

// GuildStats computes one of the four guild breakdowns. ErrNoStats when the
// guild has no invocations in the window.
func (s *UsageService) GuildStats(ctx context.Context, guildID string, window *time.Duration, breakdown GuildBreakdown) (*GuildStats, error) {
	cutoff := s.cutoff(window)
	out := &GuildStats{GuildID: guildID, Breakdown: breakdown}

	switch breakdown {
	case BreakdownCommands:
		stats, err := repo.CommandStats(ctx, s.DB, repo.InvocationFilter{GuildID: guildID, Cutoff: cutoff})
		if err != nil {
			return nil, err
		}
		if len(stats) == 0 {
			return nil, ErrNoStats
		}
		out.Commands = stats
	case BreakdownUsers:
		users, err := repo.GuildUserCounts(ctx, s.DB, guildID, cutoff, 10)
		if err != nil {
			return nil, err
		}
		if len(users) == 0 {
			return nil, ErrNoStats
		}
		out.Users = users
	case BreakdownChannels:
		channels, err := repo.GuildChannelCounts(ctx, s.DB, guildID, cutoff)
		if err != nil {
			return nil, err
		}
		if len(channels) == 0 {
			return nil, ErrNoStats
		}
		out.Channels = channels
	case BreakdownOverall:
		ov, err := repo.GuildOverview(ctx, s.DB, guildID, cutoff)
		if err != nil {
			return nil, err
		}
		if ov.TotalUses == 0 {
			return nil, ErrNoStats
		}
		out.Overview = ov
	default:
		return nil, ErrInvalidBreakdown
	}
	return out, nil
}

// ErrorStats groups failed invocations by command and verbatim error
// message. A failure recorded without a message appears under the empty
// string key. The outer map is empty (not nil) when nothing failed.
func (s *UsageService) ErrorStats(ctx context.Context, window *time.Duration) (map[string]map[string]int64, error) {
	rows, err := repo.ErrorCounts(ctx, s.DB, repo.InvocationFilter{Cutoff: s.cutoff(window)})
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]int64, len(rows))
	for _, r := range rows {
		m, ok := out[r.CommandName]
		if !ok {
			m = make(map[string]int64)
			out[r.CommandName] = m
		}
		m[r.ErrorMessage] = r.Count
	}
	return out, nil
}

// UsageTrends buckets each command's invocations within the window by UTC
// hour of day ("00".."23"). The buckets aggregate across days: this is a
// time-of-day histogram over the window, not a chronological series.
func (s *UsageService) UsageTrends(ctx context.Context, window time.Duration) (map[string]map[string]int64, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	rows, err := repo.TrendCounts(ctx, s.DB, repo.InvocationFilter{Cutoff: s.now().Add(-window).Unix()})
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]int64)
	for _, r := range rows {
		m, ok := out[r.CommandName]
		if !ok {
			m = make(map[string]int64)
			out[r.CommandName] = m
		}
		m[r.Hour] = r.Count
	}
	return out, nil
}

// TimeOfDayStats returns the hour-of-day histogram across all commands.
// The result always holds exactly 24 buckets, "00" through "23" in order,
// zero-filled for hours without activity, so callers can chart or
// enumerate it without key checks.
func (s *UsageService) TimeOfDayStats(ctx context.Context, window *time.Duration) ([]domain.HourCount, error) {
	rows, err := repo.HourCounts(ctx, s.DB, repo.InvocationFilter{Cutoff: s.cutoff(window)})
	if err != nil {
		return nil, err
	}

	by := make(map[string]int64, len(rows))
	for _, r := range rows {
		by[r.Hour] = r.Count
	}
	out := make([]domain.HourCount, 24)
	for h := 0; h < 24; h++ {
		label := twoDigit(h)
		out[h] = domain.HourCount{Hour: label, Count: by[label]}
	}
	return out, nil
}

// Invocations returns one page of raw invocation rows (newest first) plus
// the total matching count, for audit-style listings.
func (s *UsageService) Invocations(ctx context.Context, f repo.InvocationFilter, page, pageSize int) ([]domain.CommandInvocation, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := repo.CountInvocations(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.CommandInvocation{}, 0, nil
	}

	items, err := repo.ListInvocationsPage(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	return items, total, err
}

// TopErrorTotals folds an ErrorStats map into per-command failure totals,
// ordered by count descending with name tiebreak.
func TopErrorTotals(errs map[string]map[string]int64) []ErrorSummary {
	out := make([]ErrorSummary, 0, len(errs))
	for cmd, msgs := range errs {
		var n int64
		for _, c := range msgs {
			n += c
		}
		out = append(out, ErrorSummary{CommandName: cmd, Errors: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Errors != out[j].Errors {
			return out[i].Errors > out[j].Errors
		}
		return out[i].CommandName < out[j].CommandName
	})
	return out
}

// ErrorSummary is a per-command failure total used by briefings.
type ErrorSummary struct {
	CommandName string `json:"command_name"`
	Errors      int64  `json:"errors"`
}

// twoDigit formats an hour 0..23 as its zero-padded label.
func twoDigit(h int) string {
	if h < 10 {
		return "0" + strconv.Itoa(h)
	}
	return strconv.Itoa(h)
}
