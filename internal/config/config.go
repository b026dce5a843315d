package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string        `env:"APP_ENV" envDefault:"development" validate:"oneof=development production test"`
	DBPath                string        `env:"DB_PATH" envDefault:"./data/reviews.db" validate:"required"`
	DBDriver              string        `env:"DB_DRIVER" envDefault:"sqlite3" validate:"required"`
	RedisAddr             string        `env:"REDIS_ADDR" envDefault:"localhost:6379" validate:"required_if=RedisEnabled true"`
	RedisEnabled          bool          `env:"REDIS_ENABLED" envDefault:"false"`
	DBMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25" validate:"gte=1"`
	DBMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5" validate:"gte=0"`
	DBConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime     time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`
	DBConnectRetries      int           `env:"DB_CONNECT_RETRIES" envDefault:"3" validate:"gte=1"`
	RedisPassword         string        `env:"REDIS_PASSWORD"`
	RedisDB               int           `env:"REDIS_DB" envDefault:"0" validate:"gte=0"`
	GRPCPort              int           `env:"GRPC_PORT" envDefault:"50051" validate:"min=1,max=65535"`
	GRPCReflectionEnabled bool          `env:"GRPC_REFLECTION_ENABLED" envDefault:"false"`
	CacheTTL              time.Duration `env:"CACHE_TTL" envDefault:"10m" validate:"gt=0"`

	SheetsSpreadsheetID   string        `env:"SHEETS_SPREADSHEET_ID"`
	SheetsRange           string        `env:"SHEETS_RANGE" envDefault:"A:Z"`
	SheetsAPIKey          string        `env:"SHEETS_API_KEY"`
	SheetsCredentialsFile string        `env:"SHEETS_CREDENTIALS_FILE" validate:"omitempty,file"`
	PublicCSVURL          string        `env:"PUBLIC_CSV_URL" validate:"required_without=SheetsSpreadsheetID,omitempty,url"`
	ArchiveSources        string        `env:"ARCHIVE_SOURCES"`
	FetchTimeout          time.Duration `env:"FETCH_TIMEOUT" envDefault:"60s" validate:"gt=0"`

	SnapshotDir      string        `env:"SNAPSHOT_DIR" envDefault:"./data" validate:"required"`
	SyncTimeout      time.Duration `env:"SYNC_TIMEOUT" envDefault:"5m" validate:"gt=0"`
	SyncStatusTTL    time.Duration `env:"SYNC_STATUS_TTL" envDefault:"1h" validate:"gt=0"`
	SyncSingleFlight bool          `env:"SYNC_SINGLE_FLIGHT" envDefault:"true"`
	DedupExternalID  bool          `env:"DEDUP_EXTERNAL_ID" envDefault:"false"`
	Timezone         string        `env:"TIMEZONE" envDefault:"UTC" validate:"timezone"`
	AgentsSeedFile   string        `env:"AGENTS_SEED_FILE" validate:"omitempty,file"`

	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100" validate:"gte=0"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5" validate:"gte=0"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28" validate:"gte=0"`
}

var validate = validator.New()

// LoadFromEnv loads configuration from environment variables and validates
// it.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Location returns the zone named ranges and date-only timestamps are read
// in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NewLogger creates a new Zap logger based on the config. When LogFile is
// set, entries are also written as JSON to a rotating file.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.AppEnv == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	if cfg.LogFile == "" {
		return logger, nil
	}

	level := zapcore.DebugLevel
	if cfg.AppEnv == "production" {
		level = zapcore.InfoLevel
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}),
		level,
	)
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}
