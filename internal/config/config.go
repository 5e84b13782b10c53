package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "ROIDASH"

// Config holds all configuration for the dashboard engine
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Server     ServerConfig     `mapstructure:"server"`
	Poll       PollConfig       `mapstructure:"poll"`
	Countdown  CountdownConfig  `mapstructure:"countdown"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Display    DisplayConfig    `mapstructure:"display"`
	Redis      RedisConfig      `mapstructure:"redis"`
	ClickHouse ClickHouseConfig `mapstructure:"clickhouse"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// APIConfig points at the wallet backend
type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Token             string        `mapstructure:"token"`
	Owner             string        `mapstructure:"owner"` // Cache namespace for this user's feeds
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 = unlimited
	Burst             int           `mapstructure:"burst"`
	PageSize          int           `mapstructure:"page_size"`
	MaxPages          int           `mapstructure:"max_pages"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type CountdownConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// DedupConfig holds the ROI amount tolerance
type DedupConfig struct {
	AbsoluteTolerance float64 `mapstructure:"absolute_tolerance"`
	RelativeTolerance float64 `mapstructure:"relative_tolerance"`
}

type DisplayConfig struct {
	Timezone   string `mapstructure:"timezone"`
	DateLayout string `mapstructure:"date_layout"`
	PageSize   int    `mapstructure:"page_size"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ClickHouseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type LoggingConfig struct {
	Level         string `mapstructure:"level"`
	Format        string `mapstructure:"format"`
	IncludeCaller bool   `mapstructure:"include_caller"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:5000/api",
			Owner:             "default",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
			PageSize:          50,
			MaxPages:          200,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Poll: PollConfig{
			Interval: time.Minute,
		},
		Countdown: CountdownConfig{
			Interval: time.Second,
		},
		Dedup: DedupConfig{
			AbsoluteTolerance: 1,
			RelativeTolerance: 0.01,
		},
		Display: DisplayConfig{
			Timezone:   "Local",
			DateLayout: "Jan 2, 2006 3:04 PM",
			PageSize:   10,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			TTL:      30 * time.Second,
		},
		ClickHouse: ClickHouseConfig{
			Addr:     "127.0.0.1:9000",
			Database: "default",
			Username: "default",
		},
		MinIO: MinIOConfig{
			Endpoint:  "localhost:9001",
			AccessKey: "minioadmin",
			SecretKey: "minioadmin",
			Bucket:    "roi-snapshots",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads an optional .env file, an optional config file and ROIDASH_*
// environment variables on top of the defaults.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	registerDefaults(v, cfg)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// registerDefaults makes every key known to viper so AutomaticEnv applies on Unmarshal.
func registerDefaults(v *viper.Viper, c *Config) {
	defaults := map[string]any{
		"api.base_url":             c.API.BaseURL,
		"api.token":                c.API.Token,
		"api.owner":                c.API.Owner,
		"api.timeout":              c.API.Timeout,
		"api.requests_per_second":  c.API.RequestsPerSecond,
		"api.burst":                c.API.Burst,
		"api.page_size":            c.API.PageSize,
		"api.max_pages":            c.API.MaxPages,
		"server.addr":              c.Server.Addr,
		"poll.interval":            c.Poll.Interval,
		"countdown.interval":       c.Countdown.Interval,
		"dedup.absolute_tolerance": c.Dedup.AbsoluteTolerance,
		"dedup.relative_tolerance": c.Dedup.RelativeTolerance,
		"display.timezone":         c.Display.Timezone,
		"display.date_layout":      c.Display.DateLayout,
		"display.page_size":        c.Display.PageSize,
		"redis.enabled":            c.Redis.Enabled,
		"redis.addr":               c.Redis.Addr,
		"redis.password":           c.Redis.Password,
		"redis.db":                 c.Redis.DB,
		"redis.pool_size":          c.Redis.PoolSize,
		"redis.ttl":                c.Redis.TTL,
		"clickhouse.enabled":       c.ClickHouse.Enabled,
		"clickhouse.addr":          c.ClickHouse.Addr,
		"clickhouse.database":      c.ClickHouse.Database,
		"clickhouse.username":      c.ClickHouse.Username,
		"clickhouse.password":      c.ClickHouse.Password,
		"minio.enabled":            c.MinIO.Enabled,
		"minio.endpoint":           c.MinIO.Endpoint,
		"minio.access_key":         c.MinIO.AccessKey,
		"minio.secret_key":         c.MinIO.SecretKey,
		"minio.bucket":             c.MinIO.Bucket,
		"minio.use_ssl":            c.MinIO.UseSSL,
		"logging.level":            c.Logging.Level,
		"logging.format":           c.Logging.Format,
		"logging.include_caller":   c.Logging.IncludeCaller,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Location resolves the display timezone.
func (d DisplayConfig) Location() (*time.Location, error) {
	return time.LoadLocation(d.Timezone)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []string

	if c.API.BaseURL == "" {
		errs = append(errs, "api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, "api.timeout must be positive")
	}
	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, "api.requests_per_second must be non-negative")
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, "api.page_size must be positive")
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, "poll.interval must be positive")
	}
	if c.Countdown.Interval <= 0 {
		errs = append(errs, "countdown.interval must be positive")
	}
	if c.Dedup.AbsoluteTolerance < 0 {
		errs = append(errs, "dedup.absolute_tolerance must be non-negative")
	}
	if c.Dedup.RelativeTolerance < 0 || c.Dedup.RelativeTolerance >= 1 {
		errs = append(errs, "dedup.relative_tolerance must be between 0 and 1")
	}
	if _, err := c.Display.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("display.timezone %q is unknown", c.Display.Timezone))
	}
	if c.Display.PageSize <= 0 {
		errs = append(errs, "display.page_size must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis.addr is required when redis is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Addr == "" {
		errs = append(errs, "clickhouse.addr is required when clickhouse is enabled")
	}
	if c.MinIO.Enabled && (c.MinIO.Endpoint == "" || c.MinIO.Bucket == "") {
		errs = append(errs, "minio.endpoint and minio.bucket are required when minio is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
