package accounting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/notewise/aibridge/internal/classify"
	"github.com/notewise/aibridge/internal/db"
	"github.com/notewise/aibridge/internal/models"
	"github.com/notewise/aibridge/internal/pricing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func testRates() *pricing.Table {
	return pricing.NewTable(map[string]pricing.Rate{
		"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	})
}

func TestRecordAttemptSuccess(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	accountant.RecordAttempt(context.Background(), RecordInput{
		UserID:         "u1",
		Model:          "gpt-4o-mini",
		Operation:      "summarize",
		InputTokens:    1_000_000,
		OutputTokens:   1_000_000,
		ProcessingTime: 1500 * time.Millisecond,
		Success:        true,
	})

	var row models.Usage
	if errFind := conn.First(&row).Error; errFind != nil {
		t.Fatalf("find usage: %v", errFind)
	}
	if row.TotalTokens != 2_000_000 {
		t.Fatalf("TotalTokens = %d, want 2000000", row.TotalTokens)
	}
	if row.CostMicros != 750000 {
		t.Fatalf("CostMicros = %d, want 750000", row.CostMicros)
	}
	if row.ProcessingTimeMs != 1500 {
		t.Fatalf("ProcessingTimeMs = %d, want 1500", row.ProcessingTimeMs)
	}
	if !row.Success {
		t.Fatalf("row must be marked successful")
	}
}

func TestRecordAttemptSurvivesCancelledCaller(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	// A disconnected client cancels the request context; the ledger write
	// must still land.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	accountant.RecordAttempt(ctx, RecordInput{
		UserID:       "u1",
		Model:        "gpt-4o-mini",
		Operation:    "summarize",
		InputTokens:  100,
		OutputTokens: 50,
		Success:      true,
	})

	var count int64
	if errCount := conn.Model(&models.Usage{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count usages: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("ledger rows = %d, want 1 despite cancelled caller context", count)
	}
}

func TestRecordAttemptUnknownModelZeroCost(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	accountant.RecordAttempt(context.Background(), RecordInput{
		UserID:       "u1",
		Model:        "unpriced-model",
		Operation:    "summarize",
		InputTokens:  500,
		OutputTokens: 100,
		Success:      true,
	})

	var row models.Usage
	if errFind := conn.First(&row).Error; errFind != nil {
		t.Fatalf("find usage: %v", errFind)
	}
	if row.CostMicros != 0 {
		t.Fatalf("CostMicros = %d, want 0 for unpriced model", row.CostMicros)
	}
	if row.TotalTokens != 600 {
		t.Fatalf("TotalTokens = %d, want 600", row.TotalTokens)
	}
}

func TestRecordAttemptFailureZeroesTokensAndCost(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	failure := classify.WrapKind(classify.KindTimeout, errors.New("request timed out"), nil)
	accountant.RecordAttempt(context.Background(), RecordInput{
		UserID:       "u1",
		Model:        "gpt-4o-mini",
		Operation:    "summarize",
		InputTokens:  500,
		OutputTokens: 100,
		Failure:      failure,
	})

	var row models.Usage
	if errFind := conn.First(&row).Error; errFind != nil {
		t.Fatalf("find usage: %v", errFind)
	}
	if row.Success {
		t.Fatalf("failed attempt must not be marked successful")
	}
	if row.TotalTokens != 0 || row.CostMicros != 0 {
		t.Fatalf("failed attempt must keep zero tokens and cost, got tokens=%d cost=%d", row.TotalTokens, row.CostMicros)
	}
	if row.ErrorMessage != classify.UserMessage(classify.KindTimeout) {
		t.Fatalf("ErrorMessage = %q, want the user-facing timeout message", row.ErrorMessage)
	}
	if len(row.ErrorDetail) == 0 {
		t.Fatalf("ErrorDetail must carry the classified summary")
	}
}

func TestGetUsageAggregatesWindow(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	now := time.Now()
	rows := []models.Usage{
		{UserID: "u1", Model: "m", Operation: "op", TotalTokens: 100, CostMicros: 10, ProcessingTimeMs: 100, Success: true, CreatedAt: now},
		{UserID: "u1", Model: "m", Operation: "op", TotalTokens: 200, CostMicros: 20, ProcessingTimeMs: 300, Success: true, CreatedAt: now},
		{UserID: "u1", Model: "m", Operation: "op", Success: false, CreatedAt: now},
		// Outside the window and for another user: both excluded.
		{UserID: "u1", Model: "m", Operation: "op", TotalTokens: 999, Success: true, CreatedAt: now.AddDate(0, 0, -2)},
		{UserID: "u2", Model: "m", Operation: "op", TotalTokens: 999, Success: true, CreatedAt: now},
	}
	if errCreate := conn.Create(&rows).Error; errCreate != nil {
		t.Fatalf("seed usage: %v", errCreate)
	}

	stats, errStats := accountant.GetUsage(context.Background(), "u1", DailyWindow(now))
	if errStats != nil {
		t.Fatalf("get usage: %v", errStats)
	}
	if stats.RequestCount != 3 {
		t.Fatalf("RequestCount = %d, want 3", stats.RequestCount)
	}
	if stats.SuccessCount != 2 || stats.ErrorCount != 1 {
		t.Fatalf("success/error = %d/%d, want 2/1", stats.SuccessCount, stats.ErrorCount)
	}
	if stats.SuccessCount+stats.ErrorCount != stats.RequestCount {
		t.Fatalf("success + error must equal request count")
	}
	if stats.TotalTokens != 300 {
		t.Fatalf("TotalTokens = %d, want 300", stats.TotalTokens)
	}
	if stats.TotalCostMicros != 30 {
		t.Fatalf("TotalCostMicros = %d, want 30", stats.TotalCostMicros)
	}
}

func TestGetSystemUsageSpansUsers(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	now := time.Now()
	rows := []models.Usage{
		{UserID: "u1", Model: "m", Operation: "op", TotalTokens: 100, Success: true, CreatedAt: now},
		{UserID: "u2", Model: "m", Operation: "op", TotalTokens: 200, Success: true, CreatedAt: now},
	}
	if errCreate := conn.Create(&rows).Error; errCreate != nil {
		t.Fatalf("seed usage: %v", errCreate)
	}

	stats, errStats := accountant.GetSystemUsage(context.Background(), PeriodDaily, now)
	if errStats != nil {
		t.Fatalf("get system usage: %v", errStats)
	}
	if stats.RequestCount != 2 || stats.TotalTokens != 300 {
		t.Fatalf("system stats = %+v, want 2 requests and 300 tokens", stats)
	}
}

func TestSetThresholdUpsertsSingleRow(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	input := ThresholdInput{UserID: "u1", DailyLimit: 1000, AlertEnabled: true, AlertThreshold: 80}
	if errSet := accountant.SetThreshold(context.Background(), input); errSet != nil {
		t.Fatalf("set threshold: %v", errSet)
	}
	input.DailyLimit = 2000
	if errSet := accountant.SetThreshold(context.Background(), input); errSet != nil {
		t.Fatalf("set threshold again: %v", errSet)
	}

	var count int64
	if errCount := conn.Model(&models.ThresholdConfig{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("threshold rows = %d, want 1", count)
	}

	config, errGet := accountant.GetThreshold(context.Background(), "u1")
	if errGet != nil {
		t.Fatalf("get threshold: %v", errGet)
	}
	if config.DailyLimit != 2000 {
		t.Fatalf("DailyLimit = %d, want 2000 after upsert", config.DailyLimit)
	}
}

func TestSetThresholdValidates(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	if errSet := accountant.SetThreshold(context.Background(), ThresholdInput{UserID: " "}); errSet == nil {
		t.Fatalf("blank user id must be rejected")
	}
	if errSet := accountant.SetThreshold(context.Background(), ThresholdInput{UserID: "u1", AlertThreshold: 101}); errSet == nil {
		t.Fatalf("threshold above 100 must be rejected")
	}
}

func TestGetThresholdMissingIsNil(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	config, errGet := accountant.GetThreshold(context.Background(), "nobody")
	if errGet != nil {
		t.Fatalf("get threshold: %v", errGet)
	}
	if config != nil {
		t.Fatalf("missing config must be nil, got %+v", config)
	}
}

func TestEvaluateThresholdsInsertsOneAlert(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	if errSet := accountant.SetThreshold(context.Background(), ThresholdInput{
		UserID: "u1", DailyLimit: 1000, AlertEnabled: true, AlertThreshold: 80,
	}); errSet != nil {
		t.Fatalf("set threshold: %v", errSet)
	}

	row := models.Usage{UserID: "u1", Model: "m", Operation: "op", TotalTokens: 850, Success: true, CreatedAt: time.Now()}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("seed usage: %v", errCreate)
	}

	accountant.EvaluateThresholds(context.Background(), "u1")

	var alerts []models.UsageAlert
	if errFind := conn.Find(&alerts).Error; errFind != nil {
		t.Fatalf("find alerts: %v", errFind)
	}
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts))
	}
	alert := alerts[0]
	if alert.ThresholdType != models.ThresholdDaily {
		t.Fatalf("ThresholdType = %s, want daily", alert.ThresholdType)
	}
	if alert.Percentage != 85 {
		t.Fatalf("Percentage = %v, want 85", alert.Percentage)
	}
	if alert.Status != models.AlertStatusSent {
		t.Fatalf("Status = %s, want sent", alert.Status)
	}

	// A second evaluation in the same window must not add another row.
	accountant.EvaluateThresholds(context.Background(), "u1")
	var count int64
	if errCount := conn.Model(&models.UsageAlert{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count alerts: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("alerts after re-evaluation = %d, want 1", count)
	}
}

func TestEvaluateThresholdsBelowThresholdNoAlert(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	if errSet := accountant.SetThreshold(context.Background(), ThresholdInput{
		UserID: "u1", DailyLimit: 1000, AlertEnabled: true, AlertThreshold: 80,
	}); errSet != nil {
		t.Fatalf("set threshold: %v", errSet)
	}
	row := models.Usage{UserID: "u1", Model: "m", Operation: "op", TotalTokens: 700, Success: true, CreatedAt: time.Now()}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("seed usage: %v", errCreate)
	}

	accountant.EvaluateThresholds(context.Background(), "u1")

	var count int64
	if errCount := conn.Model(&models.UsageAlert{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count alerts: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("alerts = %d, want 0 below the alert threshold", count)
	}
}

func TestEvaluateThresholdsDisabledIsNoOp(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	if errSet := accountant.SetThreshold(context.Background(), ThresholdInput{
		UserID: "u1", DailyLimit: 10, AlertEnabled: false, AlertThreshold: 80,
	}); errSet != nil {
		t.Fatalf("set threshold: %v", errSet)
	}
	row := models.Usage{UserID: "u1", Model: "m", Operation: "op", TotalTokens: 1000, Success: true, CreatedAt: time.Now()}
	if errCreate := conn.Create(&row).Error; errCreate != nil {
		t.Fatalf("seed usage: %v", errCreate)
	}

	accountant.EvaluateThresholds(context.Background(), "u1")

	var count int64
	if errCount := conn.Model(&models.UsageAlert{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count alerts: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("alerts = %d, want 0 when alerting is disabled", count)
	}
}

func TestUpdateAlertStatus(t *testing.T) {
	conn := openTestDB(t)
	accountant := New(conn, testRates())

	alert := models.UsageAlert{
		UserID: "u1", ThresholdType: models.ThresholdDaily, ThresholdValue: 100,
		CurrentUsage: 90, Percentage: 90, Message: "m", Status: models.AlertStatusSent, SentAt: time.Now(),
	}
	if errCreate := conn.Create(&alert).Error; errCreate != nil {
		t.Fatalf("seed alert: %v", errCreate)
	}

	if errUpdate := accountant.UpdateAlertStatus(context.Background(), alert.ID, models.AlertStatusRead); errUpdate != nil {
		t.Fatalf("update status: %v", errUpdate)
	}
	alerts, errList := accountant.ListAlerts(context.Background(), "u1", models.AlertStatusRead)
	if errList != nil {
		t.Fatalf("list alerts: %v", errList)
	}
	if len(alerts) != 1 {
		t.Fatalf("read alerts = %d, want 1", len(alerts))
	}

	if errUpdate := accountant.UpdateAlertStatus(context.Background(), alert.ID, models.AlertStatusSent); errUpdate == nil {
		t.Fatalf("sent is not a valid target state")
	}
	if errUpdate := accountant.UpdateAlertStatus(context.Background(), 424242, models.AlertStatusRead); !errors.Is(errUpdate, gorm.ErrRecordNotFound) {
		t.Fatalf("missing alert: got %v, want record not found", errUpdate)
	}
}

func TestWindows(t *testing.T) {
	// Wednesday, 2024-07-17 15:04:05 local.
	anchor := time.Date(2024, 7, 17, 15, 4, 5, 0, time.Local)

	daily := DailyWindow(anchor)
	if !daily.Contains(anchor) {
		t.Fatalf("daily window must contain its anchor")
	}
	if daily.Start.Hour() != 0 || !daily.End.Equal(daily.Start.AddDate(0, 0, 1)) {
		t.Fatalf("daily window = %+v", daily)
	}

	weekly := WeeklyWindow(anchor)
	if weekly.Start.Weekday() != time.Sunday {
		t.Fatalf("weekly window starts on %s, want Sunday", weekly.Start.Weekday())
	}
	if !weekly.Contains(anchor) {
		t.Fatalf("weekly window must contain its anchor")
	}
	if !weekly.End.Equal(weekly.Start.AddDate(0, 0, 7)) {
		t.Fatalf("weekly window = %+v", weekly)
	}

	monthly := MonthlyWindow(anchor)
	if monthly.Start.Day() != 1 || monthly.Start.Month() != time.July {
		t.Fatalf("monthly window = %+v", monthly)
	}
	if !monthly.Contains(anchor) {
		t.Fatalf("monthly window must contain its anchor")
	}

	if got := PeriodWindow("bogus", anchor); !got.Start.Equal(daily.Start) {
		t.Fatalf("unknown period must fall back to daily")
	}
}

func TestWindowsHalfOpen(t *testing.T) {
	anchor := time.Date(2024, 7, 17, 0, 0, 0, 0, time.Local)
	window := DailyWindow(anchor)

	if !window.Contains(window.Start) {
		t.Fatalf("window start is inclusive")
	}
	if window.Contains(window.End) {
		t.Fatalf("window end is exclusive")
	}
}
