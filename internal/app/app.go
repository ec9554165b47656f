// Package app wires configuration, persistence, the completion client, and
// the HTTP surface into a runnable service.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/notewise/aibridge/internal/accounting"
	"github.com/notewise/aibridge/internal/config"
	"github.com/notewise/aibridge/internal/db"
	"github.com/notewise/aibridge/internal/http/api/admin"
	"github.com/notewise/aibridge/internal/http/api/ai"
	"github.com/notewise/aibridge/internal/llm"
	"github.com/notewise/aibridge/internal/logging"
	"github.com/notewise/aibridge/internal/pricing"
	"github.com/notewise/aibridge/internal/settings"
	"github.com/notewise/aibridge/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, appCfg config.AppConfig) error {
	cfg, errLoad := config.Load(appCfg.ConfigPath)
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// Run boots the service and blocks until ctx is cancelled or the listener
// fails.
func Run(ctx context.Context, appCfg config.AppConfig) error {
	cfg, errLoad := config.Load(appCfg.ConfigPath)
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Logging)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	log.Infof("database connected (dialect=%s)", db.DialectName(conn))
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		log.WithError(errRefresh).Warn("initial settings refresh failed")
	}

	rates := pricing.NewTable(cfg.Pricing)
	applyRateOverride(rates)

	opts := make([]accounting.Option, 0, 1)
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts = append(opts, accounting.WithStatsCache(redisClient))
		log.Infof("stats cache enabled (redis=%s)", cfg.Redis.Addr)
	}
	accountant := accounting.New(conn, rates, opts...)

	accounting.NewRetentionCleaner(conn).Start(ctx)
	go settingsRefreshLoop(ctx, conn, rates)

	log.Infof("provider gateway configured (endpoint=%s key=%s)", cfg.Provider.Endpoint, util.HideAPIKey(cfg.Provider.APIKey))
	client := llm.New(llm.NewHTTPInvoker(cfg.Provider.Endpoint, cfg.Provider.APIKey), llm.Config{
		MaxAttempts:       cfg.Client.MaxAttempts,
		BaseDelay:         cfg.Client.BaseDelay(),
		BackoffMultiplier: cfg.Client.BackoffMultiplier,
		CeilingTokens:     cfg.Client.CeilingTokens,
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	ai.RegisterAIRoutes(engine, client, accountant)
	admin.RegisterAdminRoutes(engine, conn, accountant)

	server := &http.Server{Addr: cfg.Server.Addr, Handler: engine}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("server shutdown failed")
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// settingsRefreshLoop periodically reloads DB-backed settings and reapplies
// the model-rate override, so operators can adjust pricing and retention
// without a restart.
func settingsRefreshLoop(ctx context.Context, conn *gorm.DB, rates *pricing.Table) {
	for {
		interval := time.Duration(settings.DefaultSettingsRefreshIntervalSeconds) * time.Second
		if parsed, ok := settings.IntValue(settings.SettingsRefreshIntervalSecondsKey); ok && parsed > 0 {
			interval = time.Duration(parsed) * time.Second
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}

		if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
			log.WithError(errRefresh).Warn("settings refresh failed")
			continue
		}
		applyRateOverride(rates)
	}
}

// applyRateOverride replaces the rate table when the settings table carries
// a MODEL_RATES override.
func applyRateOverride(rates *pricing.Table) {
	raw, ok := settings.DBConfigValue(settings.ModelRatesKey)
	if !ok || len(raw) == 0 {
		return
	}
	parsed, errParse := pricing.ParseRates(raw)
	if errParse != nil {
		log.WithError(errParse).Warn("invalid model rates override, keeping current table")
		return
	}
	rates.Replace(parsed)
	log.Infof("model rate table replaced from settings (%d models)", len(parsed))
}
