package main

import (
    "os"

    "github.com/gin-gonic/gin"
    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/config"
    "github.com/zaqqye/placement_backend/internal/database"
    "github.com/zaqqye/placement_backend/internal/logging"
    "github.com/zaqqye/placement_backend/internal/middleware"
    "github.com/zaqqye/placement_backend/internal/notify"
    "github.com/zaqqye/placement_backend/internal/routes"
    "github.com/zaqqye/placement_backend/internal/store"
    "github.com/zaqqye/placement_backend/internal/ws"
)

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("config: %v", err)
    }
    logger := logging.New(cfg.LogLevel, cfg.GinMode)

    db, err := database.Connect(cfg)
    if err != nil {
        logger.Fatalf("database connection failed: %v", err)
    }

    if err := database.Migrate(db); err != nil {
        logger.Fatalf("database migration failed: %v", err)
    }

    if err := database.SeedSuperOperator(db, cfg, logger); err != nil {
        logger.Fatalf("super operator seed failed: %v", err)
    }

    hubs := ws.NewHubs()
    hubs.Run()

    gin.SetMode(cfg.GinMode)
    r := gin.New()
    r.Use(gin.Recovery())
    routes.Register(r, routes.Deps{
        Store:    store.New(db),
        Config:   cfg,
        Log:      logger,
        Notifier: notify.Multi{notify.Logger{Log: logger}, hubs},
        Hubs:     hubs,
        Limiter:  middleware.NewLimiter(cfg.RedisURL, logger),
    })

    port := cfg.Port
    if port == "" {
        port = "8080"
    }

    logger.WithFields(log.Fields{"port": port, "driver": cfg.DBDriver}).Info("placement server listening")
    if err := r.Run(":" + port); err != nil {
        logger.WithError(err).Error("server exited with error")
        os.Exit(1)
    }
}
