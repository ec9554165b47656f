package models

import "time"

// ThresholdType identifies which limit window an alert refers to.
type ThresholdType string

// Threshold window types.
const (
	// ThresholdDaily marks an alert against the daily limit.
	ThresholdDaily ThresholdType = "daily"
	// ThresholdMonthly marks an alert against the monthly limit.
	ThresholdMonthly ThresholdType = "monthly"
)

// AlertStatus tracks the lifecycle of a usage alert.
type AlertStatus string

// Alert lifecycle states.
const (
	// AlertStatusSent is the initial state of a newly inserted alert.
	AlertStatusSent AlertStatus = "sent"
	// AlertStatusRead marks an alert acknowledged by the user.
	AlertStatusRead AlertStatus = "read"
	// AlertStatusDismissed marks an alert dismissed by the user.
	AlertStatusDismissed AlertStatus = "dismissed"
)

// UsageAlert records a threshold breach notification. Rows are append-only;
// only the status field is mutated after insert.
type UsageAlert struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;index"` // Owning user ID.

	ThresholdType  ThresholdType `gorm:"type:text;not null;index"` // Window the breach refers to.
	ThresholdValue int64         `gorm:"not null"`                 // Configured token limit.
	CurrentUsage   int64         `gorm:"not null"`                 // Tokens used in the window.
	Percentage     float64       `gorm:"not null"`                 // Usage as a percentage of the limit.

	Message string      `gorm:"type:text;not null"`            // Human-readable alert text.
	Status  AlertStatus `gorm:"type:text;not null;index"`      // Lifecycle state.
	SentAt  time.Time   `gorm:"not null;index;autoCreateTime"` // Insertion timestamp.
}

// TableName overrides the default table name.
func (UsageAlert) TableName() string {
	return "usage_alerts"
}
