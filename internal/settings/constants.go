package settings

// DB config keys and defaults for settings.
const (
	// ModelRatesKey is the DB config key for the model rate-table override.
	// The value is a JSON object mapping model names to per-million-token
	// prices, in the shape accepted by pricing.ParseRates.
	ModelRatesKey = "MODEL_RATES"
	// UsagesRetentionDaysKey controls how long ledger rows are kept.
	UsagesRetentionDaysKey = "USAGES_RETENTION_DAYS"
	// DefaultUsagesRetentionDays disables retention cleanup by default.
	DefaultUsagesRetentionDays = 0
	// SettingsRefreshIntervalSecondsKey controls the snapshot reload cadence.
	SettingsRefreshIntervalSecondsKey = "SETTINGS_REFRESH_INTERVAL_SECONDS"
	// DefaultSettingsRefreshIntervalSeconds is the fallback reload cadence.
	DefaultSettingsRefreshIntervalSeconds = 300
)
