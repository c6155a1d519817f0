// Package domain defines the persistence models for the command-usage
// analytics engine. These types are mapped with GORM and form the core
// data layer of the service.
package domain

import "time"

// CommandInvocation is one logged command execution attempt reported by a
// bot's command dispatcher. Rows are append-only: once written they are
// never updated or deleted.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - CommandName: exact (case-sensitive) command identifier; indexed for grouping.
//   - UserID: opaque identifier of the invoking actor.
//   - GuildID: optional server context; nil for direct messages.
//   - ChannelID: optional sub-context within a guild.
//   - Timestamp: completion time as unix seconds UTC; indexed for window scans.
//     Wall-clock based, so not guaranteed monotonic across rows.
//   - Success: outcome of the invocation.
//   - ErrorMessage: free-form failure text; nil on success and tolerated as
//     nil on failure (grouped under the empty string by error statistics).
//   - ExecutionTime: optional measured duration in seconds; nil when the
//     dispatcher did not time the command.
type CommandInvocation struct {
	ID            string   `json:"id"             gorm:"type:char(36);primaryKey"`
	CommandName   string   `json:"command_name"   gorm:"type:varchar(64);not null;index:idx_usage_command"`
	UserID        string   `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_usage_user"`
	GuildID       *string  `json:"guild_id,omitempty"   gorm:"type:varchar(64);index:idx_usage_guild"`
	ChannelID     *string  `json:"channel_id,omitempty" gorm:"type:varchar(64)"`
	Timestamp     int64    `json:"timestamp"      gorm:"not null;index:idx_usage_timestamp"`
	Success       bool     `json:"success"        gorm:"not null"`
	ErrorMessage  *string  `json:"error_message,omitempty"  gorm:"type:text"`
	ExecutionTime *float64 `json:"execution_time,omitempty"`
}

// TableName returns the database table name for CommandInvocation.
func (CommandInvocation) TableName() string { return "command_usage" }

// At returns the invocation completion time as a UTC time.Time.
func (ci CommandInvocation) At() time.Time { return time.Unix(ci.Timestamp, 0).UTC() }
