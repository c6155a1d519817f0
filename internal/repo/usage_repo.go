// Package repo implements the data persistence layer for the usage log,
// backed by GORM. This file provides the append-only invocation store and
// the grouped aggregation queries the statistics engine is built on.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no presentation logic, only
// inserts and query composition over the command_usage table.
//
// Error semantics:
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated; callers decide whether a failed
//     write is dropped (best-effort tracking) or surfaced.
//   - Aggregation queries return empty slices, never errors, for "zero
//     matching rows"; distinguishing no-data from not-found is a service
//     concern.
//
// Timestamps are stored as unix seconds so that MAX() and hour bucketing
// stay in integer arithmetic (SQLite MAX over DATETIME TEXT columns scans
// back as TEXT, which does not round-trip through database/sql cleanly).
package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"botmetrics/internal/domain"
)

// InvocationFilter narrows invocation scans and aggregations. Zero-valued
// fields mean "any"; Cutoff is an inclusive unix-seconds lower bound on the
// invocation timestamp (0 = all time).
type InvocationFilter struct {
	CommandName string
	UserID      string
	GuildID     string
	Cutoff      int64
}

// apply composes the filter onto q.
func (f InvocationFilter) apply(q *gorm.DB) *gorm.DB {
	if f.CommandName != "" {
		q = q.Where("command_name = ?", f.CommandName)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.GuildID != "" {
		q = q.Where("guild_id = ?", f.GuildID)
	}
	if f.Cutoff > 0 {
		q = q.Where("timestamp >= ?", f.Cutoff)
	}
	return q
}

// ErrorCount is the query shape for failure grouping: how many times one
// command failed with one (verbatim) error message.
type ErrorCount struct {
	CommandName  string `json:"command_name"`
	ErrorMessage string `json:"error_message"`
	Count        int64  `json:"count"`
}

// TrendCount is the query shape for per-command hour-of-day bucketing.
type TrendCount struct {
	CommandName string `json:"command_name"`
	Hour        string `json:"hour"`
	Count       int64  `json:"count"`
}

// InsertInvocation appends one immutable invocation row. A missing ID is
// assigned a fresh UUID; a missing timestamp is stamped with the current
// UTC time. The insert is a single statement, so concurrent readers never
// observe a partially written row.
func InsertInvocation(ctx context.Context, db *gorm.DB, inv *domain.CommandInvocation) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Timestamp == 0 {
		inv.Timestamp = time.Now().UTC().Unix()
	}
	return db.WithContext(ctx).Create(inv).Error
}

// GetInvocation returns one row by primary key or ErrNotFound.
func GetInvocation(db *gorm.DB, id string) (*domain.CommandInvocation, error) {
	var inv domain.CommandInvocation
	if err := db.First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// CountInvocations returns the number of rows matching f.
func CountInvocations(ctx context.Context, db *gorm.DB, f InvocationFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Count(&total).Error
	return total, err
}

// ListInvocationsPage returns a page of matching rows, newest first. Ties on
// timestamp are broken by id so pages are deterministic.
func ListInvocationsPage(ctx context.Context, db *gorm.DB, f InvocationFilter, offset, limit int) ([]domain.CommandInvocation, error) {
	var out []domain.CommandInvocation
	err := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Order("timestamp DESC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// commandStatRow is the raw scan target for grouped command aggregation.
type commandStatRow struct {
	CommandName      string
	TotalUses        int64
	SuccessfulUses   int64
	AvgExecutionTime sql.NullFloat64
	LastUsed         int64
}

// CommandStats groups matching rows by command_name and computes the usage
// summary for each. Results are ordered by total_uses descending with ties
// broken by command_name ascending, so repeated identical queries yield
// identical output. An empty slice means no rows matched.
func CommandStats(ctx context.Context, db *gorm.DB, f InvocationFilter) ([]domain.CommandStat, error) {
	var rows []commandStatRow
	err := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Select(`command_name,
			COUNT(*) AS total_uses,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) AS successful_uses,
			AVG(execution_time) AS avg_execution_time,
			MAX(timestamp) AS last_used`).
		Group("command_name").
		Order("total_uses DESC, command_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.CommandStat, 0, len(rows))
	for _, r := range rows {
		st := domain.CommandStat{
			CommandName:    r.CommandName,
			TotalUses:      r.TotalUses,
			SuccessfulUses: r.SuccessfulUses,
			FailedUses:     r.TotalUses - r.SuccessfulUses,
			SuccessRate:    domain.Rate(r.SuccessfulUses, r.TotalUses),
			LastUsed:       time.Unix(r.LastUsed, 0).UTC(),
		}
		// AVG over all-NULL execution times is NULL, not 0.
		if r.AvgExecutionTime.Valid {
			st.AvgExecutionTime = r.AvgExecutionTime.Float64
		}
		out = append(out, st)
	}
	return out, nil
}

// ErrorCounts groups failed rows by (command_name, error_message) and counts
// them. Rows whose error message is NULL are grouped under the empty string
// rather than dropped. Ordered by count descending, then command and message
// ascending for determinism.
func ErrorCounts(ctx context.Context, db *gorm.DB, f InvocationFilter) ([]ErrorCount, error) {
	var rows []ErrorCount
	err := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Select(`command_name,
			COALESCE(error_message, '') AS error_message,
			COUNT(*) AS count`).
		Where("success = ?", false).
		Group("command_name, COALESCE(error_message, '')").
		Order("count DESC, command_name ASC, error_message ASC").
		Scan(&rows).Error
	return rows, err
}

// TrendCounts buckets matching rows by command_name and the UTC hour of day
// ("00".."23") of their timestamp. This is a histogram over the whole
// filtered range: records from different days sharing an hour land in the
// same bucket.
func TrendCounts(ctx context.Context, db *gorm.DB, f InvocationFilter) ([]TrendCount, error) {
	var rows []TrendCount
	err := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Select(`command_name,
			strftime('%H', timestamp, 'unixepoch') AS hour,
			COUNT(*) AS count`).
		Group("command_name, hour").
		Order("command_name ASC, hour ASC").
		Scan(&rows).Error
	return rows, err
}

// HourCounts buckets matching rows by UTC hour of day across all commands.
// Only hours with at least one row are returned; zero-filling the full
// "00".."23" range is the service's job.
func HourCounts(ctx context.Context, db *gorm.DB, f InvocationFilter) ([]domain.HourCount, error) {
	var rows []domain.HourCount
	err := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Select(`strftime('%H', timestamp, 'unixepoch') AS hour,
			COUNT(*) AS count`).
		Group("hour").
		Order("hour ASC").
		Scan(&rows).Error
	return rows, err
}

// GuildUserCounts tallies invocations per user within a guild, most active
// first. A limit <= 0 means no cap.
func GuildUserCounts(ctx context.Context, db *gorm.DB, guildID string, cutoff int64, limit int) ([]domain.ActorCount, error) {
	f := InvocationFilter{GuildID: guildID, Cutoff: cutoff}
	q := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Select("user_id, COUNT(*) AS total_uses").
		Group("user_id").
		Order("total_uses DESC, user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []domain.ActorCount
	err := q.Scan(&rows).Error
	return rows, err
}

// GuildChannelCounts tallies invocations per channel within a guild, busiest
// first (no cap). Rows without a channel are grouped under the empty string.
func GuildChannelCounts(ctx context.Context, db *gorm.DB, guildID string, cutoff int64) ([]domain.ChannelCount, error) {
	f := InvocationFilter{GuildID: guildID, Cutoff: cutoff}
	var rows []domain.ChannelCount
	err := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Select("COALESCE(channel_id, '') AS channel_id, COUNT(*) AS total_uses").
		Group("COALESCE(channel_id, '')").
		Order("total_uses DESC, channel_id ASC").
		Scan(&rows).Error
	return rows, err
}

// guildOverviewRow is the raw scan target for the single-row guild summary.
type guildOverviewRow struct {
	TotalUses      int64
	SuccessfulUses int64
	UniqueUsers    int64
	UniqueChannels int64
}

// GuildOverview computes the single-row summary for a guild: totals, success
// rate, distinct actor and channel counts, and the top five commands by use.
// A guild with no matching rows yields an overview with TotalUses == 0.
func GuildOverview(ctx context.Context, db *gorm.DB, guildID string, cutoff int64) (*domain.GuildOverview, error) {
	f := InvocationFilter{GuildID: guildID, Cutoff: cutoff}

	var row guildOverviewRow
	err := f.apply(db.WithContext(ctx).Model(&domain.CommandInvocation{})).
		Select(`COUNT(*) AS total_uses,
			COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS successful_uses,
			COUNT(DISTINCT user_id) AS unique_users,
			COUNT(DISTINCT channel_id) AS unique_channels`).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	ov := &domain.GuildOverview{
		GuildID:        guildID,
		TotalUses:      row.TotalUses,
		SuccessfulUses: row.SuccessfulUses,
		FailedUses:     row.TotalUses - row.SuccessfulUses,
		SuccessRate:    domain.Rate(row.SuccessfulUses, row.TotalUses),
		UniqueUsers:    row.UniqueUsers,
		UniqueChannels: row.UniqueChannels,
		TopCommands:    []domain.CommandStat{},
	}
	if row.TotalUses == 0 {
		return ov, nil
	}

	stats, err := CommandStats(ctx, db, f)
	if err != nil {
		return nil, err
	}
	if len(stats) > 5 {
		stats = stats[:5]
	}
	ov.TopCommands = stats
	return ov, nil
}
