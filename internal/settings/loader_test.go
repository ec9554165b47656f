package settings

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/notewise/aibridge/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestRefreshDBConfigSnapshot(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	rows := []models.Setting{
		{Key: UsagesRetentionDaysKey, Value: json.RawMessage(`90`), UpdatedAt: time.Now()},
		{Key: ModelRatesKey, Value: json.RawMessage(`{"m":{"input_per_million":1}}`), UpdatedAt: time.Now()},
	}
	if errCreate := conn.Create(&rows).Error; errCreate != nil {
		t.Fatalf("seed settings: %v", errCreate)
	}

	if errRefresh := RefreshDBConfigSnapshot(context.Background(), conn); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}

	if got, ok := IntValue(UsagesRetentionDaysKey); !ok || got != 90 {
		t.Fatalf("IntValue = %d ok=%v, want 90 true", got, ok)
	}
	if raw, ok := DBConfigValue(ModelRatesKey); !ok || len(raw) == 0 {
		t.Fatalf("model rates value missing from snapshot")
	}
}

func TestIntValueEncodings(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{`42`, 42, true},
		{`42.0`, 42, true},
		{`"42"`, 42, true},
		{`{"value": 42}`, 42, true},
		{`42.5`, 0, false},
		{`"not a number"`, 0, false},
	}
	for _, tc := range cases {
		StoreDBConfig(time.Now(), map[string]json.RawMessage{"k": json.RawMessage(tc.raw)})
		got, ok := IntValue("k")
		if got != tc.want || ok != tc.ok {
			t.Fatalf("IntValue(%s) = %d ok=%v, want %d %v", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
