package main

import (
    "context"
    "flag"

    log "github.com/sirupsen/logrus"

    "github.com/zaqqye/placement_backend/internal/accounts"
    "github.com/zaqqye/placement_backend/internal/config"
    "github.com/zaqqye/placement_backend/internal/database"
    "github.com/zaqqye/placement_backend/internal/jobs"
    "github.com/zaqqye/placement_backend/internal/logging"
    "github.com/zaqqye/placement_backend/internal/profile"
    "github.com/zaqqye/placement_backend/internal/scope"
    "github.com/zaqqye/placement_backend/internal/seed"
    "github.com/zaqqye/placement_backend/internal/store"
)

func main() {
    file := flag.String("file", "seed.yaml", "YAML fixture to load")
    demo := flag.Bool("demo", false, "load the bundled demo fixture instead of -file")
    flag.Parse()

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

    fixture := seed.Demo()
    if !*demo {
        if fixture, err = seed.Load(*file); err != nil {
            logger.Fatalf("fixture: %v", err)
        }
    }

    ctx := context.Background()
    st := store.New(db)
    super, err := st.FindUserByEmail(ctx, cfg.SuperEmail)
    if err != nil {
        logger.Fatalf("super operator %s not found: %v", cfg.SuperEmail, err)
    }

    seeder := &seed.Seeder{
        Accounts: &accounts.Service{Store: st, Log: logger},
        Jobs:     &jobs.Service{Store: st, Log: logger},
        Profiles: &profile.Service{Store: st, Log: logger},
        Log:      logger,
    }
    res, err := seeder.Apply(ctx, scope.SuperOperator{UserID: super.ID}, fixture)
    if err != nil {
        logger.Fatalf("seed failed: %v", err)
    }
    logger.WithFields(log.Fields{
        "colleges": res.Colleges,
        "skipped":  res.Skipped,
        "accounts": res.Accounts,
        "jobs":     res.Jobs,
    }).Info("seed complete")
}
