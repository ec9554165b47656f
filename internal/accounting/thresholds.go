package accounting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/notewise/aibridge/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThresholdInput configures a user's limits and alerting preferences.
type ThresholdInput struct {
	UserID         string
	DailyLimit     int64
	MonthlyLimit   int64
	AlertEnabled   bool
	AlertThreshold int
}

// SetThreshold upserts a user's threshold configuration atomically: insert,
// or update on user_id conflict, so concurrent configuration calls for the
// same user cannot race a read-modify-write.
func (a *Accountant) SetThreshold(ctx context.Context, input ThresholdInput) error {
	if a == nil || a.db == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return errors.New("accounting: user id is required")
	}
	if input.AlertThreshold < 0 || input.AlertThreshold > 100 {
		return fmt.Errorf("accounting: alert threshold %d out of range 0-100", input.AlertThreshold)
	}

	row := models.ThresholdConfig{
		UserID:         userID,
		DailyLimit:     input.DailyLimit,
		MonthlyLimit:   input.MonthlyLimit,
		AlertEnabled:   input.AlertEnabled,
		AlertThreshold: input.AlertThreshold,
	}
	return a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"daily_limit", "monthly_limit", "alert_enabled", "alert_threshold", "updated_at"}),
		}).
		Create(&row).Error
}

// GetThreshold returns a user's threshold configuration, or nil when none
// has been set (alerting disabled, no explicit limits).
func (a *Accountant) GetThreshold(ctx context.Context, userID string) (*models.ThresholdConfig, error) {
	if a == nil || a.db == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var row models.ThresholdConfig
	errFind := a.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		First(&row).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errFind != nil {
		return nil, errFind
	}
	return &row, nil
}

// EvaluateThresholds compares the user's current daily and monthly usage
// against the configured limits and inserts a sent alert for each window
// whose usage has reached the alert percentage. At most one alert is kept
// per user, threshold type, and window, so repeated breaches within the
// same window do not pile up rows. Failures are logged, never propagated.
func (a *Accountant) EvaluateThresholds(ctx context.Context, userID string) {
	if a == nil || a.db == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	config, errConfig := a.GetThreshold(ctx, userID)
	if errConfig != nil {
		log.WithError(errConfig).Warnf("accounting: load threshold config failed (user=%s)", userID)
		return
	}
	if config == nil || !config.AlertEnabled {
		return
	}

	now := time.Now()

	if config.DailyLimit > 0 {
		a.evaluateWindow(ctx, config, models.ThresholdDaily, config.DailyLimit, DailyWindow(now))
	}
	if config.MonthlyLimit > 0 {
		a.evaluateWindow(ctx, config, models.ThresholdMonthly, config.MonthlyLimit, MonthlyWindow(now))
	}
}

// evaluateWindow checks one limit window and inserts an alert when crossed.
func (a *Accountant) evaluateWindow(ctx context.Context, config *models.ThresholdConfig, thresholdType models.ThresholdType, limit int64, window Window) {
	stats, errStats := a.GetUsage(ctx, config.UserID, window)
	if errStats != nil {
		log.WithError(errStats).Warnf("accounting: usage aggregation failed (user=%s type=%s)", config.UserID, thresholdType)
		return
	}

	percentage := float64(stats.TotalTokens) / float64(limit) * 100
	if percentage < float64(config.AlertThreshold) {
		return
	}

	alreadySent, errCheck := a.alertExists(ctx, config.UserID, thresholdType, window)
	if errCheck != nil {
		log.WithError(errCheck).Warnf("accounting: alert dedup check failed (user=%s type=%s)", config.UserID, thresholdType)
		return
	}
	if alreadySent {
		return
	}

	alert := models.UsageAlert{
		UserID:         config.UserID,
		ThresholdType:  thresholdType,
		ThresholdValue: limit,
		CurrentUsage:   stats.TotalTokens,
		Percentage:     percentage,
		Message:        alertMessage(thresholdType, percentage, stats.TotalTokens, limit),
		Status:         models.AlertStatusSent,
		SentAt:         time.Now(),
	}
	if errCreate := a.db.WithContext(ctx).Create(&alert).Error; errCreate != nil {
		log.WithError(errCreate).Warnf("accounting: insert usage alert failed (user=%s type=%s)", config.UserID, thresholdType)
		return
	}
	log.Infof("accounting: usage alert sent (user=%s type=%s usage=%d limit=%d)", config.UserID, thresholdType, stats.TotalTokens, limit)
}

// alertExists reports whether an alert for the same user, threshold type,
// and window has already been inserted.
func (a *Accountant) alertExists(ctx context.Context, userID string, thresholdType models.ThresholdType, window Window) (bool, error) {
	var count int64
	if errCount := a.db.WithContext(ctx).
		Model(&models.UsageAlert{}).
		Where("user_id = ? AND threshold_type = ? AND sent_at >= ? AND sent_at < ?", userID, thresholdType, window.Start, window.End).
		Count(&count).Error; errCount != nil {
		return false, errCount
	}
	return count > 0, nil
}

func alertMessage(thresholdType models.ThresholdType, percentage float64, usage, limit int64) string {
	window := "daily"
	if thresholdType == models.ThresholdMonthly {
		window = "monthly"
	}
	return fmt.Sprintf("Your %s token usage has reached %.0f%% of the configured limit (%d of %d tokens).", window, percentage, usage, limit)
}

// ListAlerts returns a user's alerts, newest first, optionally filtered by
// status.
func (a *Accountant) ListAlerts(ctx context.Context, userID string, status models.AlertStatus) ([]models.UsageAlert, error) {
	if a == nil || a.db == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	q := a.db.WithContext(ctx).
		Model(&models.UsageAlert{}).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("sent_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var alerts []models.UsageAlert
	if errFind := q.Find(&alerts).Error; errFind != nil {
		return nil, errFind
	}
	return alerts, nil
}

// UpdateAlertStatus transitions an alert to read or dismissed. Alerts are
// never deleted; sent is not a valid target state.
func (a *Accountant) UpdateAlertStatus(ctx context.Context, alertID uint64, status models.AlertStatus) error {
	if a == nil || a.db == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if status != models.AlertStatusRead && status != models.AlertStatusDismissed {
		return fmt.Errorf("accounting: invalid alert status %q", status)
	}

	res := a.db.WithContext(ctx).
		Model(&models.UsageAlert{}).
		Where("id = ?", alertID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
