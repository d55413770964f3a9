package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/pms/db"
	"github.com/monocle-dev/pms/internal/auth"
	"github.com/monocle-dev/pms/internal/config"
	"github.com/monocle-dev/pms/internal/handlers"
	"github.com/monocle-dev/pms/internal/ids"
	"github.com/monocle-dev/pms/internal/router"
	"github.com/monocle-dev/pms/internal/services"
	"github.com/monocle-dev/pms/internal/types"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	slog.SetDefault(cfg.NewLogger())

	if cfg.SlogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err = auth.InitJWT(cfg.JWT.Secret, cfg.JWT.TTL); err != nil {
		log.Fatalf("Failed to initialize JWT: %v", err)
	}

	if err = ids.Init(cfg.SnowflakeNode); err != nil {
		log.Fatalf("Invalid SNOWFLAKE_NODE: %v", err)
	}

	if err = db.ConnectDatabase(cfg.Database.Driver, cfg.Database.URL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err = db.MigrateDatabase(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if _, err = services.NewTemplateService(db.DB).EnsureDefaultIndustry(context.Background()); err != nil {
		log.Fatalf("Failed to create default industry: %v", err)
	}

	types.SetAllowedOrigins(cfg.AllowedOrigins)
	handlers.CookieDomain = cfg.CookieDomain

	r := router.NewRouter()

	slog.Info("server starting", "port", cfg.Port, "driver", cfg.Database.Driver)

	if err = r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
