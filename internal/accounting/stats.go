package accounting

import (
	"context"
	"time"

	"github.com/notewise/aibridge/internal/models"
)

// Window is a half-open time interval [Start, End) used to aggregate usage.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// SystemPeriod selects the window shape for system-wide statistics.
type SystemPeriod string

// System aggregation periods.
const (
	// PeriodDaily is the anchor's local day.
	PeriodDaily SystemPeriod = "daily"
	// PeriodWeekly is the anchor's local week, Sunday-start.
	PeriodWeekly SystemPeriod = "weekly"
	// PeriodMonthly is the anchor's local calendar month.
	PeriodMonthly SystemPeriod = "monthly"
)

// UsageStats aggregates ledger rows over a window.
// Invariant: SuccessCount + ErrorCount == RequestCount.
type UsageStats struct {
	TotalTokens         int64   `json:"total_tokens"`
	TotalCostMicros     int64   `json:"total_cost_micros"`
	RequestCount        int64   `json:"request_count"`
	SuccessCount        int64   `json:"success_count"`
	ErrorCount          int64   `json:"error_count"`
	AvgProcessingTimeMs float64 `json:"avg_processing_time_ms"`
	Period              Window  `json:"period"`
}

// statsRow is the raw aggregation scan target.
type statsRow struct {
	TotalTokens         int64
	TotalCostMicros     int64
	RequestCount        int64
	SuccessCount        int64
	AvgProcessingTimeMs float64
}

const statsSelect = "COUNT(*) AS request_count, " +
	"COALESCE(SUM(total_tokens), 0) AS total_tokens, " +
	"COALESCE(SUM(cost_micros), 0) AS total_cost_micros, " +
	"COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0) AS success_count, " +
	"COALESCE(AVG(processing_time_ms), 0) AS avg_processing_time_ms"

// GetUsage aggregates one user's ledger rows whose created_at falls inside
// the window. The window is computed by the caller; this method performs no
// timezone inference of its own.
func (a *Accountant) GetUsage(ctx context.Context, userID string, window Window) (*UsageStats, error) {
	if a == nil || a.db == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if cached, ok := a.cache.get(ctx, userID, window); ok {
		return cached, nil
	}

	var row statsRow
	if errScan := a.db.WithContext(ctx).
		Model(&models.Usage{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, window.Start, window.End).
		Select(statsSelect).
		Scan(&row).Error; errScan != nil {
		return nil, errScan
	}

	stats := buildStats(row, window)
	a.cache.set(ctx, userID, window, stats)
	return stats, nil
}

// GetSystemUsage aggregates all users' ledger rows over the period window
// derived from the anchor time.
func (a *Accountant) GetSystemUsage(ctx context.Context, period SystemPeriod, anchor time.Time) (*UsageStats, error) {
	if a == nil || a.db == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	window := PeriodWindow(period, anchor)

	var row statsRow
	if errScan := a.db.WithContext(ctx).
		Model(&models.Usage{}).
		Where("created_at >= ? AND created_at < ?", window.Start, window.End).
		Select(statsSelect).
		Scan(&row).Error; errScan != nil {
		return nil, errScan
	}

	return buildStats(row, window), nil
}

func buildStats(row statsRow, window Window) *UsageStats {
	return &UsageStats{
		TotalTokens:         row.TotalTokens,
		TotalCostMicros:     row.TotalCostMicros,
		RequestCount:        row.RequestCount,
		SuccessCount:        row.SuccessCount,
		ErrorCount:          row.RequestCount - row.SuccessCount,
		AvgProcessingTimeMs: row.AvgProcessingTimeMs,
		Period:              window,
	}
}

// DailyWindow returns the anchor's local calendar day as a window.
func DailyWindow(anchor time.Time) Window {
	local := anchor.In(time.Local)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeeklyWindow returns the anchor's local week, starting Sunday.
func WeeklyWindow(anchor time.Time) Window {
	local := anchor.In(time.Local)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
	start = start.AddDate(0, 0, -int(local.Weekday()))
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthlyWindow returns the anchor's local calendar month as a window.
func MonthlyWindow(anchor time.Time) Window {
	local := anchor.In(time.Local)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.Local)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// PeriodWindow derives the window for a system period anchored at anchor.
// Unknown periods fall back to daily.
func PeriodWindow(period SystemPeriod, anchor time.Time) Window {
	switch period {
	case PeriodWeekly:
		return WeeklyWindow(anchor)
	case PeriodMonthly:
		return MonthlyWindow(anchor)
	default:
		return DailyWindow(anchor)
	}
}
