// Package domain – derived statistics types.
//
// The types in this file are computed on demand from CommandInvocation rows
// and are never persisted. They are the query shapes returned by the
// aggregation layer (internal/repo) and surfaced through the public API.
package domain

import "time"

// CommandStat is the windowed usage summary for a single command.
//
// Invariant: TotalUses == SuccessfulUses + FailedUses. SuccessRate is a
// percentage in [0,100] and is defined as 0 when TotalUses is 0.
// AvgExecutionTime is the mean over rows that measured a duration; it is 0
// when no matching row carries an execution time.
type CommandStat struct {
	CommandName      string    `json:"command_name"`
	TotalUses        int64     `json:"total_uses"`
	SuccessfulUses   int64     `json:"successful_uses"`
	FailedUses       int64     `json:"failed_uses"`
	SuccessRate      float64   `json:"success_rate"`
	AvgExecutionTime float64   `json:"avg_execution_time"`
	LastUsed         time.Time `json:"last_used"`
}

// ActorCount is a per-user invocation tally inside a guild.
type ActorCount struct {
	UserID    string `json:"user_id"`
	TotalUses int64  `json:"total_uses"`
}

// ChannelCount is a per-channel invocation tally inside a guild.
type ChannelCount struct {
	ChannelID string `json:"channel_id"`
	TotalUses int64  `json:"total_uses"`
}

// HourCount is one bucket of an hour-of-day histogram. Hour is a two-digit
// zero-padded UTC label in "00".."23".
type HourCount struct {
	Hour  string `json:"hour"`
	Count int64  `json:"count"`
}

// GuildOverview summarizes all command activity within one guild.
type GuildOverview struct {
	GuildID        string        `json:"guild_id"`
	TotalUses      int64         `json:"total_uses"`
	SuccessfulUses int64         `json:"successful_uses"`
	FailedUses     int64         `json:"failed_uses"`
	SuccessRate    float64       `json:"success_rate"`
	UniqueUsers    int64         `json:"unique_users"`
	UniqueChannels int64         `json:"unique_channels"`
	TopCommands    []CommandStat `json:"top_commands"`
}

// Rate returns successful/total as a percentage, guarding the zero case.
func Rate(successful, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}
