package models

import "time"

// ThresholdConfig stores per-user daily/monthly token limits and alerting
// preferences. One row per user, created lazily on first configuration.
type ThresholdConfig struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;uniqueIndex"` // Owning user ID, unique key.

	DailyLimit   int64 `gorm:"not null;default:0"` // Daily token limit, 0 = unlimited.
	MonthlyLimit int64 `gorm:"not null;default:0"` // Monthly token limit, 0 = unlimited.

	AlertEnabled   bool `gorm:"not null;default:false"` // Whether alerting is active.
	AlertThreshold int  `gorm:"not null;default:80"`    // Alert trigger percentage, 0-100.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (ThresholdConfig) TableName() string {
	return "threshold_configs"
}
