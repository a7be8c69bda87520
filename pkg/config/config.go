package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	CORS       CORSConfig
	Log        LogConfig
	Allocation AllocationConfig
	Scoring    ScoringConfig
	Decisions  DecisionSinkConfig
	Reports    ReportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AllocationConfig tunes the allocation API and its background runs.
type AllocationConfig struct {
	Enabled           bool
	TopCandidates     int
	SemesterLimit     int
	PersistByDefault  bool
	WorkerConcurrency int
	WorkerRetries     int
	RunTimeout        time.Duration
}

// ScoringConfig points at the weight documents and toggles hot reload.
type ScoringConfig struct {
	DefaultsPath string
	UserPath     string
	Watch        bool
}

// DecisionSinkConfig selects where decision records are mirrored.
type DecisionSinkConfig struct {
	Sink       string
	Trace      bool
	JSONLPath  string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ReportsConfig governs cached decision reports.
type ReportsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Allocation = AllocationConfig{
		Enabled:           v.GetBool("ENABLE_ALLOCATION_API"),
		TopCandidates:     v.GetInt("ALLOCATION_TOP_CANDIDATES"),
		SemesterLimit:     v.GetInt("ALLOCATION_SEMESTER_LIMIT"),
		PersistByDefault:  v.GetBool("ALLOCATION_PERSIST_BY_DEFAULT"),
		WorkerConcurrency: v.GetInt("ALLOCATION_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("ALLOCATION_WORKER_RETRIES"),
		RunTimeout:        parseDuration(v.GetString("ALLOCATION_RUN_TIMEOUT"), 5*time.Minute),
	}

	cfg.Scoring = ScoringConfig{
		DefaultsPath: v.GetString("SCORING_DEFAULTS_PATH"),
		UserPath:     v.GetString("SCORING_USER_PATH"),
		Watch:        v.GetBool("SCORING_WATCH"),
	}

	cfg.Decisions = DecisionSinkConfig{
		Sink:       strings.ToLower(v.GetString("DECISION_SINK")),
		Trace:      v.GetBool("DECISION_TRACE"),
		JSONLPath:  v.GetString("DECISION_JSONL_PATH"),
		MaxSizeMB:  v.GetInt("DECISION_JSONL_MAX_SIZE_MB"),
		MaxBackups: v.GetInt("DECISION_JSONL_MAX_BACKUPS"),
		MaxAgeDays: v.GetInt("DECISION_JSONL_MAX_AGE_DAYS"),
	}

	cfg.Reports = ReportsConfig{
		CacheEnabled: v.GetBool("ENABLE_REPORT_CACHE"),
		CacheTTL:     parseDuration(v.GetString("REPORT_CACHE_TTL"), 10*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "room_allocation")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_ALLOCATION_API", true)
	v.SetDefault("ALLOCATION_TOP_CANDIDATES", 3)
	v.SetDefault("ALLOCATION_SEMESTER_LIMIT", 4)
	v.SetDefault("ALLOCATION_PERSIST_BY_DEFAULT", true)
	v.SetDefault("ALLOCATION_WORKER_CONCURRENCY", 1)
	v.SetDefault("ALLOCATION_WORKER_RETRIES", 1)
	v.SetDefault("ALLOCATION_RUN_TIMEOUT", "5m")

	v.SetDefault("SCORING_DEFAULTS_PATH", "./configs/scoring/defaults.json")
	v.SetDefault("SCORING_USER_PATH", "./configs/scoring/user.json")
	v.SetDefault("SCORING_WATCH", false)

	v.SetDefault("DECISION_SINK", "none")
	v.SetDefault("DECISION_TRACE", false)
	v.SetDefault("DECISION_JSONL_PATH", "./logs/decisions.jsonl")
	v.SetDefault("DECISION_JSONL_MAX_SIZE_MB", 50)
	v.SetDefault("DECISION_JSONL_MAX_BACKUPS", 5)
	v.SetDefault("DECISION_JSONL_MAX_AGE_DAYS", 30)

	v.SetDefault("ENABLE_REPORT_CACHE", false)
	v.SetDefault("REPORT_CACHE_TTL", "10m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
