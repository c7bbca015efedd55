package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const DefaultSecret = "default-secret"

var (
	ErrDatabaseURLRequired   = errors.New("database_url is required")
	ErrAdminPasswordRequired = errors.New("admin_password is required")
	ErrInvalidPort           = errors.New("port must be a number between 1 and 65535")
	ErrInvalidSessionTTL     = errors.New("session_ttl must be positive")
)

type Config struct {
	Debug                bool          `yaml:"debug"                  envconfig:"DEBUG"`
	Dev                  bool          `yaml:"dev"                    envconfig:"DEV"`
	Host                 string        `yaml:"host"                   envconfig:"HOST"`
	Port                 string        `yaml:"port"                   envconfig:"PORT"`
	BaseURL              string        `yaml:"base_url"               envconfig:"BASE_URL"`
	Secret               string        `yaml:"secret"                 envconfig:"SECRET"`
	DatabaseURL          string        `yaml:"database_url"           envconfig:"DATABASE_URL"`
	MigrationSource      string        `yaml:"migration_source"       envconfig:"MIGRATION_SOURCE"`
	OtelCollectorUrl     string        `yaml:"otel_collector_url"     envconfig:"OTEL_COLLECTOR_URL"`
	AllowOrigins         []string      `yaml:"allow_origins"          envconfig:"CORS_ALLOWED_ORIGINS"`
	AdminPassword        string        `yaml:"admin_password"         envconfig:"ADMIN_PASSWORD"`
	AdminTokenExpiration time.Duration `yaml:"admin_token_expiration" envconfig:"ADMIN_TOKEN_EXPIRATION"`
	RedisURL             string        `yaml:"redis_url"              envconfig:"REDIS_URL"`
	SurveyCacheTTL       time.Duration `yaml:"survey_cache_ttl"       envconfig:"SURVEY_CACHE_TTL"`
	SessionTTL           time.Duration `yaml:"session_ttl"            envconfig:"SESSION_TTL"`
	LogFile              string        `yaml:"log_file"               envconfig:"LOG_FILE"`
}

// LogBuffer keeps the messages produced while loading configuration, before
// the application logger exists.
type LogBuffer struct {
	entries []logEntry
}

type logEntry struct {
	level   string
	message string
	fields  []zap.Field
}

func (b *LogBuffer) Info(msg string, fields ...zap.Field) {
	b.entries = append(b.entries, logEntry{level: "info", message: msg, fields: fields})
}

func (b *LogBuffer) Warn(msg string, fields ...zap.Field) {
	b.entries = append(b.entries, logEntry{level: "warn", message: msg, fields: fields})
}

func (b *LogBuffer) FlushToZap(logger *zap.Logger) {
	for _, e := range b.entries {
		switch e.level {
		case "warn":
			logger.Warn(e.message, e.fields...)
		default:
			logger.Info(e.message, e.fields...)
		}
	}
	b.entries = nil
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}

	if c.AdminPassword == "" {
		return ErrAdminPasswordRequired
	}

	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return ErrInvalidPort
	}

	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}

	return nil
}

func Default() Config {
	return Config{
		Debug:                false,
		Host:                 "localhost",
		Port:                 "8080",
		Secret:               DefaultSecret,
		MigrationSource:      "file://internal/database/migrations",
		AllowOrigins:         []string{"http://localhost:5173"},
		AdminTokenExpiration: 12 * time.Hour,
		SurveyCacheTTL:       10 * time.Minute,
		SessionTTL:           30 * time.Minute,
	}
}

// Load builds the configuration from defaults, the yaml file, .env, the
// environment and command line flags, later sources overriding earlier ones.
func Load() (Config, *LogBuffer) {
	logBuffer := &LogBuffer{}
	config := Default()

	var err error
	config, err = FromFile("config.yaml", config, logBuffer)
	if err != nil {
		logBuffer.Warn("Failed to load config from file", zap.Error(err), zap.String("path", "config.yaml"))
	}

	err = godotenv.Overload()
	if err != nil {
		logBuffer.Info("No .env file loaded", zap.String("reason", err.Error()))
	}

	config = FromEnv(config, logBuffer)

	config, err = FromFlags(config, os.Args[1:])
	if err != nil {
		logBuffer.Warn("Failed to parse command line flags", zap.Error(err))
	}

	return config, logBuffer
}

func FromFile(filePath string, config Config, logBuffer *LogBuffer) (Config, error) {
	if _, err := os.Stat(filePath); err != nil {
		logBuffer.Info("Config file not found, skipping", zap.String("path", filePath))
		return config, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return config, err
	}

	fileConfig := Config{}
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return config, err
	}

	logBuffer.Info("Loaded config from file", zap.String("path", filePath))
	return merge(config, fileConfig), nil
}

func FromEnv(config Config, logBuffer *LogBuffer) Config {
	envConfig := Config{
		Debug:            os.Getenv("DEBUG") == "true",
		Dev:              os.Getenv("DEV") == "true",
		Host:             os.Getenv("HOST"),
		Port:             os.Getenv("PORT"),
		BaseURL:          os.Getenv("BASE_URL"),
		Secret:           os.Getenv("SECRET"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MigrationSource:  os.Getenv("MIGRATION_SOURCE"),
		OtelCollectorUrl: os.Getenv("OTEL_COLLECTOR_URL"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		RedisURL:         os.Getenv("REDIS_URL"),
		LogFile:          os.Getenv("LOG_FILE"),
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		envConfig.AllowOrigins = splitList(origins)
	}

	durations := map[string]*time.Duration{
		"ADMIN_TOKEN_EXPIRATION": &envConfig.AdminTokenExpiration,
		"SURVEY_CACHE_TTL":       &envConfig.SurveyCacheTTL,
		"SESSION_TTL":            &envConfig.SessionTTL,
	}
	for key, target := range durations {
		raw := os.Getenv(key)
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			logBuffer.Warn("Ignoring invalid duration from environment", zap.String("key", key), zap.String("value", raw))
			continue
		}
		*target = d
	}

	return merge(config, envConfig)
}

func FromFlags(config Config, args []string) (Config, error) {
	flagConfig := Config{}

	fs := flag.NewFlagSet("survey-backend", flag.ContinueOnError)
	fs.BoolVar(&flagConfig.Debug, "debug", false, "debug mode")
	fs.BoolVar(&flagConfig.Dev, "dev", false, "development mode")
	fs.StringVar(&flagConfig.Host, "host", "", "host")
	fs.StringVar(&flagConfig.Port, "port", "", "port")
	fs.StringVar(&flagConfig.DatabaseURL, "database_url", "", "database url")
	fs.StringVar(&flagConfig.MigrationSource, "migration_source", "", "migration source")
	fs.StringVar(&flagConfig.RedisURL, "redis_url", "", "redis url")
	fs.StringVar(&flagConfig.LogFile, "log_file", "", "log file path")

	if err := fs.Parse(args); err != nil {
		return config, err
	}

	return merge(config, flagConfig), nil
}

// merge copies every non-zero field of override onto base.
func merge(base, override Config) Config {
	if override.Debug {
		base.Debug = true
	}
	if override.Dev {
		base.Dev = true
	}
	if override.Host != "" {
		base.Host = override.Host
	}
	if override.Port != "" {
		base.Port = override.Port
	}
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.Secret != "" {
		base.Secret = override.Secret
	}
	if override.DatabaseURL != "" {
		base.DatabaseURL = override.DatabaseURL
	}
	if override.MigrationSource != "" {
		base.MigrationSource = override.MigrationSource
	}
	if override.OtelCollectorUrl != "" {
		base.OtelCollectorUrl = override.OtelCollectorUrl
	}
	if len(override.AllowOrigins) > 0 {
		base.AllowOrigins = override.AllowOrigins
	}
	if override.AdminPassword != "" {
		base.AdminPassword = override.AdminPassword
	}
	if override.AdminTokenExpiration != 0 {
		base.AdminTokenExpiration = override.AdminTokenExpiration
	}
	if override.RedisURL != "" {
		base.RedisURL = override.RedisURL
	}
	if override.SurveyCacheTTL != 0 {
		base.SurveyCacheTTL = override.SurveyCacheTTL
	}
	if override.SessionTTL != 0 {
		base.SessionTTL = override.SessionTTL
	}
	if override.LogFile != "" {
		base.LogFile = override.LogFile
	}
	return base
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
