package app

import (
	"fmt"
	"os"

	"github.com/kujua-learning/kujua-api/api"
	"github.com/kujua-learning/kujua-api/config"
	"github.com/kujua-learning/kujua-api/database"
	"github.com/kujua-learning/kujua-api/router"
	"github.com/kujua-learning/kujua-api/services"
	"github.com/kujua-learning/kujua-api/services/cron"
)

// SetupAndRunServer wires configuration, storage, services, routes and
// background jobs, then blocks serving requests
func SetupAndRunServer() error {
	if err := config.LoadENV(); err != nil {
		return err
	}

	cfg, err := config.Get()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := database.StartGORM(cfg.Database, cfg.Server.GoEnv)
	if err != nil {
		fmt.Println("Check whether Postgres is running and reachable")
		return err
	}

	if err := store.Init(); err != nil {
		fmt.Println("Failed to run database migrations")
		return err
	}

	mailer := services.NewEmailService(cfg.SMTP, cfg.FrontendURL)

	server := api.NewAPIServer(fmt.Sprintf(":%d", cfg.Server.Port))
	app := server.GetEngine()

	deps := router.SetupRoutes(app, store, cfg, mailer)

	// Background jobs, enabled by default
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" {
		cronManager = cron.NewCronManager(store.GetDB(), deps.AdminService)
		if err := cronManager.Start(); err != nil {
			fmt.Println("Warning: failed to start cron jobs:", err)
		}
	}

	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if deps.RedisCache != nil {
			deps.RedisCache.Close()
		}
		store.Close()
	}()

	return server.Run()
}
