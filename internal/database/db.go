package database

import (
    "fmt"

    "github.com/glebarez/sqlite"
    "gorm.io/driver/mysql"
    "gorm.io/driver/postgres"
    "gorm.io/gorm"
    "gorm.io/gorm/logger"

    "github.com/zaqqye/placement_backend/internal/config"
    "github.com/zaqqye/placement_backend/internal/models"
)

// Dialector picks the gorm driver for cfg.DBDriver. DB_DSN wins over the
// individual DB_* settings.
func Dialector(cfg *config.Config) (gorm.Dialector, error) {
    switch cfg.DBDriver {
    case "postgres", "":
        dsn := cfg.DBDSN
        if dsn == "" {
            dsn = fmt.Sprintf(
                "host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
                cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
            )
        }
        return postgres.Open(dsn), nil
    case "mysql":
        dsn := cfg.DBDSN
        if dsn == "" {
            dsn = fmt.Sprintf(
                "%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
                cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
            )
        }
        return mysql.Open(dsn), nil
    case "sqlite":
        return sqlite.Open(cfg.DBDSN), nil
    default:
        return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
    }
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
    dialector, err := Dialector(cfg)
    if err != nil {
        return nil, err
    }
    gcfg := &gorm.Config{TranslateError: true}
    if cfg.GinMode == "release" {
        gcfg.Logger = logger.Default.LogMode(logger.Warn)
    }
    db, err := gorm.Open(dialector, gcfg)
    if err != nil {
        return nil, err
    }
    if cfg.DBDriver == "sqlite" {
        // one writer at a time; also keeps in-memory databases on one connection
        sqlDB, err := db.DB()
        if err != nil {
            return nil, err
        }
        sqlDB.SetMaxOpenConns(1)
    }
    return db, nil
}

// OpenMemory opens a private in-memory SQLite database with the schema
// migrated. Used by tests and `placementctl -demo`.
func OpenMemory() (*gorm.DB, error) {
    db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
        TranslateError: true,
        Logger:         logger.Default.LogMode(logger.Silent),
    })
    if err != nil {
        return nil, err
    }
    sqlDB, err := db.DB()
    if err != nil {
        return nil, err
    }
    sqlDB.SetMaxOpenConns(1)
    if err := Migrate(db); err != nil {
        return nil, err
    }
    return db, nil
}

func Migrate(db *gorm.DB) error {
    return db.AutoMigrate(
        &models.College{},
        &models.User{},
        &models.StudentProfile{},
        &models.JobPosting{},
        &models.Application{},
    )
}
