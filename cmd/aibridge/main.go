package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/notewise/aibridge/internal/app"
	"github.com/notewise/aibridge/internal/config"

	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to the config file")
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := config.AppConfig{ConfigPath: *configPath}

	if *migrateOnly {
		if errMigrate := app.Migrate(ctx, appCfg); errMigrate != nil {
			log.WithError(errMigrate).Fatal("migration failed")
		}
		return
	}

	if errRun := app.Run(ctx, appCfg); errRun != nil {
		log.WithError(errRun).Fatal("server exited")
	}
}
