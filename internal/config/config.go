package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Auth     AuthConfig     `yaml:"auth"`
	Booking  BookingConfig  `yaml:"booking"`
	Storage  StorageConfig  `yaml:"storage"`
	Notifier NotifierConfig `yaml:"notifier"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// RedisConfig is optional. An empty Addr disables caching, idempotency,
// rate limiting and cross-instance invalidation.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PostgresConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

// KafkaConfig is optional. Without brokers booking events are only logged.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type BookingConfig struct {
	CancellationCutoff time.Duration `yaml:"cancellation_cutoff"`
	PendingTTL         time.Duration `yaml:"pending_ttl"`
	ExpiryInterval     time.Duration `yaml:"expiry_interval"`
	ReturnWindow       time.Duration `yaml:"return_window"`
	RateLimit          int           `yaml:"rate_limit"`
	RateWindow         time.Duration `yaml:"rate_window"`
	IdempotencyTTL     time.Duration `yaml:"idempotency_ttl"`
}

type StorageConfig struct {
	Driver   string `yaml:"driver"`
	SeedPath string `yaml:"seed_path"`
}

type NotifierConfig struct {
	OutputDir string `yaml:"output_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
			Migrate: true,
		},
		Kafka: KafkaConfig{
			Topic:   "booking-events",
			GroupID: "flightbook-notifier",
		},
		Auth: AuthConfig{
			Issuer:   "flightbook",
			TokenTTL: time.Hour,
		},
		Booking: BookingConfig{
			CancellationCutoff: time.Hour,
			PendingTTL:         30 * time.Minute,
			ExpiryInterval:     time.Minute,
			ReturnWindow:       30 * 24 * time.Hour,
			RateLimit:          10,
			RateWindow:         time.Minute,
			IdempotencyTTL:     2 * time.Hour,
		},
		Storage: StorageConfig{
			Driver: DriverPostgres,
		},
		Notifier: NotifierConfig{
			OutputDir: "tickets",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// New loads configuration in three layers: built-in defaults, an optional
// YAML file named by CONFIG_PATH, then environment variables (a .env file is
// loaded first if present).
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *Config) error {
	envString("SERVER_HOST", &cfg.Server.Host)
	envString("POSTGRES_HOST", &cfg.Postgres.Host)
	envString("POSTGRES_USER", &cfg.Postgres.User)
	envString("POSTGRES_PASSWORD", &cfg.Postgres.Password)
	envString("POSTGRES_DB", &cfg.Postgres.Name)
	envString("POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	envString("REDIS_ADDR", &cfg.Redis.Addr)
	envString("REDIS_PASSWORD", &cfg.Redis.Password)
	envString("KAFKA_TOPIC", &cfg.Kafka.Topic)
	envString("KAFKA_GROUP_ID", &cfg.Kafka.GroupID)
	envString("JWT_SECRET", &cfg.Auth.JWTSecret)
	envString("JWT_ISSUER", &cfg.Auth.Issuer)
	envString("STORAGE_DRIVER", &cfg.Storage.Driver)
	envString("STORAGE_SEED_PATH", &cfg.Storage.SeedPath)
	envString("NOTIFIER_OUTPUT_DIR", &cfg.Notifier.OutputDir)
	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}

	maxConns := int(cfg.Postgres.MaxConns)

	err := errors.Join(
		envInt("SERVER_PORT", &cfg.Server.Port),
		envInt("POSTGRES_PORT", &cfg.Postgres.Port),
		envInt("POSTGRES_MAX_CONNS", &maxConns),
		envBool("POSTGRES_MIGRATE", &cfg.Postgres.Migrate),
		envInt("REDIS_DB", &cfg.Redis.DB),
		envDuration("JWT_TTL", &cfg.Auth.TokenTTL),
		envDuration("BOOKING_CANCELLATION_CUTOFF", &cfg.Booking.CancellationCutoff),
		envDuration("BOOKING_PENDING_TTL", &cfg.Booking.PendingTTL),
		envDuration("BOOKING_EXPIRY_INTERVAL", &cfg.Booking.ExpiryInterval),
		envDuration("BOOKING_RETURN_WINDOW", &cfg.Booking.ReturnWindow),
		envInt("BOOKING_RATE_LIMIT", &cfg.Booking.RateLimit),
		envDuration("BOOKING_RATE_WINDOW", &cfg.Booking.RateWindow),
		envDuration("BOOKING_IDEMPOTENCY_TTL", &cfg.Booking.IdempotencyTTL),
	)

	cfg.Postgres.MaxConns = int32(maxConns)

	return err
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Postgres.User == "" {
			return errors.New("missing POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			return errors.New("missing POSTGRES_PASSWORD")
		}
		if c.Postgres.Name == "" {
			return errors.New("missing POSTGRES_DB")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid STORAGE_DRIVER: %q", c.Storage.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}

	if c.Booking.CancellationCutoff < 0 || c.Booking.PendingTTL <= 0 || c.Booking.ExpiryInterval <= 0 {
		return errors.New("booking durations must be positive")
	}

	if c.Booking.RateLimit < 0 {
		return fmt.Errorf("invalid BOOKING_RATE_LIMIT: %d", c.Booking.RateLimit)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %q", c.Log.Format)
	}

	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}

	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}

	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}

	*dst = d
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
