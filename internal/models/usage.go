package models

import (
	"time"

	"gorm.io/datatypes"
)

// Usage records the ledger entry for a single attempted LLM operation.
// Rows are append-only: the request path never updates or deletes them.
type Usage struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string  `gorm:"type:text;not null;index"` // Owning user ID.
	NoteID *string `gorm:"type:text;index"`          // Related note ID, when available.

	Model     string `gorm:"type:text;not null;index"` // Model name, key into the rate table.
	Operation string `gorm:"type:text;not null;index"` // Operation kind (summary, tagging, ...).

	InputTokens  int64 `gorm:"not null;default:0"` // Input token count.
	OutputTokens int64 `gorm:"not null;default:0"` // Output token count.
	TotalTokens  int64 `gorm:"not null;default:0"` // Total token count.

	CostMicros int64 `gorm:"not null;default:0"` // Cost in micros of a dollar.

	ProcessingTimeMs int64 `gorm:"not null;default:0"` // End-to-end latency in milliseconds.

	Success      bool           `gorm:"not null;default:false"` // Outcome flag.
	ErrorMessage string         `gorm:"type:text"`              // User-facing message for failed attempts.
	ErrorDetail  datatypes.JSON `gorm:"type:jsonb"`             // Classification detail JSON for failed attempts.

	CreatedAt time.Time `gorm:"not null;index;autoCreateTime"` // Creation timestamp.
}

// TableName overrides the default table name.
func (Usage) TableName() string {
	return "usages"
}
