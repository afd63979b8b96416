package config

import (
    "fmt"
    "strings"
    "time"

    "github.com/caarlos0/env/v11"
    "github.com/joho/godotenv"
)

type Config struct {
    Port string `env:"PORT" envDefault:"8080"`

    // Database
    DBDriver   string `env:"DB_DRIVER" envDefault:"postgres"`
    DBHost     string `env:"DB_HOST" envDefault:"localhost"`
    DBPort     string `env:"DB_PORT" envDefault:"5432"`
    DBUser     string `env:"DB_USER" envDefault:"postgres"`
    DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
    DBName     string `env:"DB_NAME" envDefault:"placement_db"`
    DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
    DBDSN      string `env:"DB_DSN"` // overrides the individual DB_* fields

    JWTSecret      string        `env:"JWT_SECRET" envDefault:"supersecret_change_me"`
    AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"60m"`

    // Bootstrap super operator
    SuperEmail    string `env:"SUPER_EMAIL" envDefault:"super@example.com"`
    SuperPassword string `env:"SUPER_PASSWORD" envDefault:"super123"`
    SuperFullName string `env:"SUPER_FULL_NAME" envDefault:"Super Operator"`

    // Apply rate limiting; memory limiter when REDIS_URL is empty
    RedisURL        string        `env:"REDIS_URL"`
    ApplyRateLimit  int           `env:"APPLY_RATE_LIMIT" envDefault:"10"`
    ApplyRateWindow time.Duration `env:"APPLY_RATE_WINDOW" envDefault:"1m"`

    RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
    RequeueRejectedOnEdit bool          `env:"REQUEUE_REJECTED_ON_EDIT" envDefault:"false"`

    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
    GinMode  string `env:"GIN_MODE" envDefault:"debug"`
}

// Load reads .env when present (non-fatal if missing in production) and
// parses the environment.
func Load() (*Config, error) {
    _ = godotenv.Load()
    return Parse()
}

// Parse reads the process environment only.
func Parse() (*Config, error) {
    var cfg Config
    if err := env.Parse(&cfg); err != nil {
        return nil, fmt.Errorf("parse env: %w", err)
    }
    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return &cfg, nil
}

func (c *Config) validate() error {
    c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
    switch c.DBDriver {
    case "postgres", "mysql", "sqlite":
    default:
        return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
    }
    if c.DBDriver == "sqlite" && c.DBDSN == "" {
        c.DBDSN = "placement.db"
    }
    if strings.TrimSpace(c.JWTSecret) == "" {
        return fmt.Errorf("JWT_SECRET must not be empty")
    }
    if c.AccessTokenTTL <= 0 {
        return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
    }
    if c.ApplyRateLimit < 0 {
        return fmt.Errorf("APPLY_RATE_LIMIT must not be negative")
    }
    if c.ApplyRateWindow <= 0 {
        c.ApplyRateWindow = time.Minute
    }
    return nil
}
