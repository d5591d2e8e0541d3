package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config captures the reservation service configuration.
type Config struct {
	HTTPPort  int            `yaml:"http_port"`
	Database  DatabaseConfig `yaml:"database"`
	Redis     RedisConfig    `yaml:"redis"`
	MutexTTL  time.Duration  `yaml:"mutex_ttl"`
	TimeZone  string         `yaml:"time_zone"`
	Reminders ReminderConfig `yaml:"reminders"`
	SES       SESConfig      `yaml:"ses"`
	Log       LogConfig      `yaml:"log"`
	Tracing   TracingConfig  `yaml:"tracing"`

	// Location is resolved from TimeZone.
	Location *time.Location `yaml:"-"`
}

// DatabaseConfig selects the durable store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig enables the Redis slot mutex when Addr is set.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ReminderConfig controls the reminder sweeper.
type ReminderConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Lead     time.Duration `yaml:"lead"`
}

// SESConfig enables e-mail notifications when Region is set.
type SESConfig struct {
	Region    string `yaml:"region"`
	FromEmail string `yaml:"from_email"`
}

// LogConfig selects the root logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles AWS X-Ray.
type TracingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DaemonAddr string `yaml:"daemon_addr"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		HTTPPort: 8080,
		Database: DatabaseConfig{Driver: "sqlite", DSN: "reservations.db"},
		MutexTTL: 10 * time.Second,
		TimeZone: "UTC",
		Reminders: ReminderConfig{
			Enabled:  true,
			Interval: time.Minute,
			Lead:     10 * time.Minute,
		},
		Log:      LogConfig{Level: "info", Format: "json"},
		Tracing:  TracingConfig{DaemonAddr: "127.0.0.1:2000"},
		Location: time.UTC,
	}
}

// Load reads the YAML file named by RESERVATION_CONFIG, if any, then applies
// RESERVATION_* environment overrides.
func Load() (Config, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("RESERVATION_CONFIG")))
}

// LoadFile reads an optional YAML file and applies environment overrides on top.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("設定ファイルを読み込めません: %w", err)
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("設定ファイルの形式が不正です: %s: %w", path, err)
		}
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 4)

	applyEnv(&cfg, &invalid)

	switch strings.ToLower(cfg.Database.Driver) {
	case "sqlite", "sqlite3":
		if strings.TrimSpace(cfg.Database.DSN) == "" {
			missing = append(missing, "RESERVATION_DB_DSN")
		}
	case "postgres", "postgresql", "mysql":
		if strings.TrimSpace(cfg.Database.DSN) == "" || cfg.Database.DSN == Default().Database.DSN {
			missing = append(missing, "RESERVATION_DB_DSN")
		}
	default:
		invalid = append(invalid, "RESERVATION_DB_DRIVER")
	}

	if cfg.SES.Region != "" && strings.TrimSpace(cfg.SES.FromEmail) == "" {
		missing = append(missing, "RESERVATION_SES_FROM")
	}

	if cfg.HTTPPort <= 0 {
		invalid = appendOnce(invalid, "RESERVATION_HTTP_PORT")
	}
	if cfg.MutexTTL <= 0 {
		invalid = appendOnce(invalid, "RESERVATION_MUTEX_TTL")
	}
	if cfg.Reminders.Interval <= 0 {
		invalid = appendOnce(invalid, "RESERVATION_SWEEP_INTERVAL")
	}
	if cfg.Reminders.Lead <= 0 {
		invalid = appendOnce(invalid, "RESERVATION_REMINDER_LEAD")
	}
	if loc, err := time.LoadLocation(cfg.TimeZone); err != nil {
		invalid = appendOnce(invalid, "RESERVATION_TIME_ZONE")
	} else {
		cfg.Location = loc
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		invalid = appendOnce(invalid, "RESERVATION_LOG_FORMAT")
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		invalid = appendOnce(invalid, "RESERVATION_LOG_LEVEL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func applyEnv(cfg *Config, invalid *[]string) {
	if value := env("RESERVATION_HTTP_PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 {
			*invalid = append(*invalid, "RESERVATION_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if value := env("RESERVATION_DB_DRIVER"); value != "" {
		cfg.Database.Driver = value
	}
	if value := env("RESERVATION_DB_DSN"); value != "" {
		cfg.Database.DSN = value
	}

	if value := env("RESERVATION_REDIS_ADDR"); value != "" {
		cfg.Redis.Addr = value
	}
	if value := env("RESERVATION_REDIS_PASSWORD"); value != "" {
		cfg.Redis.Password = value
	}
	if value := env("RESERVATION_REDIS_DB"); value != "" {
		db, err := strconv.Atoi(value)
		if err != nil || db < 0 {
			*invalid = append(*invalid, "RESERVATION_REDIS_DB")
		} else {
			cfg.Redis.DB = db
		}
	}
	if value := env("RESERVATION_REDIS_KEY_PREFIX"); value != "" {
		cfg.Redis.KeyPrefix = value
	}

	parseDuration("RESERVATION_MUTEX_TTL", &cfg.MutexTTL, invalid)
	parseDuration("RESERVATION_SWEEP_INTERVAL", &cfg.Reminders.Interval, invalid)
	parseDuration("RESERVATION_REMINDER_LEAD", &cfg.Reminders.Lead, invalid)
	parseBool("RESERVATION_REMINDERS_ENABLED", &cfg.Reminders.Enabled, invalid)

	if value := env("RESERVATION_TIME_ZONE"); value != "" {
		cfg.TimeZone = value
	}

	if value := env("RESERVATION_SES_REGION"); value != "" {
		cfg.SES.Region = value
	}
	if value := env("RESERVATION_SES_FROM"); value != "" {
		cfg.SES.FromEmail = value
	}

	if value := env("RESERVATION_LOG_LEVEL"); value != "" {
		cfg.Log.Level = value
	}
	if value := env("RESERVATION_LOG_FORMAT"); value != "" {
		cfg.Log.Format = value
	}

	parseBool("RESERVATION_TRACING", &cfg.Tracing.Enabled, invalid)
	if value := env("RESERVATION_XRAY_DAEMON_ADDR"); value != "" {
		cfg.Tracing.DaemonAddr = value
	}
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func parseDuration(key string, target *time.Duration, invalid *[]string) {
	value := env(key)
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		*invalid = append(*invalid, key)
		return
	}
	*target = d
}

func parseBool(key string, target *bool, invalid *[]string) {
	value := env(key)
	if value == "" {
		return
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*invalid = append(*invalid, key)
		return
	}
	*target = b
}

func appendOnce(values []string, key string) []string {
	for _, v := range values {
		if v == key {
			return values
		}
	}
	return append(values, key)
}
