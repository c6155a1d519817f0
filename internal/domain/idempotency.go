// Package domain defines the core persistence models for the application.
package domain

import "time"

// Idempotency records a previously accepted invocation report, keyed by
// (reporter_id, key). It lets a dispatcher retry POSTing the same invocation
// (network flake, client retry) without producing duplicate usage rows.
type Idempotency struct {
	ID           string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	ReporterID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_reporter_key,priority:1"`
	Key          string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_reporter_key,priority:2"`
	InvocationID string    `gorm:"type:TEXT NOT NULL"`
	Status       int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt    time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt    time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
