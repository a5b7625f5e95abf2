package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-dashboard/internal/cache"
)

// Config holds dashboard configuration loaded from YAML, .env and the environment.
type Config struct {
	ServerPort string `validate:"required,numeric"`

	WeatherAPIKey     string        `validate:"required"`
	WeatherAPIURL     string        `validate:"required,url"`
	IconBaseURL       string        `validate:"required,url"`
	WeatherAPITimeout time.Duration `validate:"gt=0"`

	DefaultLocation string `validate:"required"`
	DefaultUnit     string `validate:"oneof=standard metric imperial"`
	DisplayTimezone string `validate:"required"`

	StorageBackend        string `validate:"oneof=memory file memcached redis sqlite"`
	StorageKey            string `validate:"required"`
	FilePath              string
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration `validate:"gte=0"`
	MemcachedMaxIdleConns int           `validate:"gte=0"`
	RedisAddr             string
	RedisPassword         string
	RedisDB               int `validate:"gte=0"`
	SQLitePath            string

	RateLimitRPS   int `validate:"gt=0"`
	RateLimitBurst int `validate:"gt=0"`

	HealthWindow       time.Duration `validate:"gte=0"`
	OverloadDeniedPct  int           `validate:"gte=0,lte=100"`
	DegradedFailurePct int           `validate:"gte=0,lte=100"`

	InitTimeout     time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	AllowedOrigins []string `validate:"dive,required"`

	location *time.Location
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		IconURL string `yaml:"icon_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Dashboard struct {
		DefaultLocation string `yaml:"default_location"`
		DefaultUnit     string `yaml:"default_unit"`
		DisplayTimezone string `yaml:"display_timezone"`
		InitTimeout     string `yaml:"init_timeout"`
	} `yaml:"dashboard"`

	Storage struct {
		Backend   string `yaml:"backend"`
		Key       string `yaml:"key"`
		FilePath  string `yaml:"file_path"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"storage"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Health struct {
		Window             string `yaml:"window"`
		OverloadDeniedPct  *int   `yaml:"overload_denied_pct"`
		DegradedFailurePct *int   `yaml:"degraded_failure_pct"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

var validate = validator.New()

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml,
// after loading an optional .env. Env vars override file values. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	apiKey, err := loadAPIKey(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort: firstNonEmpty(os.Getenv("SERVER_PORT"), fc.Server.Port, "8080"),

		WeatherAPIKey:     apiKey,
		WeatherAPIURL:     firstNonEmpty(os.Getenv("WEATHER_API_URL"), fc.WeatherAPI.URL, "https://api.openweathermap.org/data/2.5"),
		IconBaseURL:       firstNonEmpty(fc.WeatherAPI.IconURL, "http://openweathermap.org/img/wn"),
		WeatherAPITimeout: parseDurationOrZero(fc.WeatherAPI.Timeout, 5*time.Second),

		DefaultLocation: firstNonEmpty(os.Getenv("DEFAULT_LOCATION"), fc.Dashboard.DefaultLocation, "Lappeenranta"),
		DefaultUnit:     strings.ToLower(firstNonEmpty(os.Getenv("DEFAULT_UNIT"), fc.Dashboard.DefaultUnit, "standard")),
		DisplayTimezone: firstNonEmpty(os.Getenv("DISPLAY_TIMEZONE"), fc.Dashboard.DisplayTimezone, "Local"),
		InitTimeout:     parseDuration(fc.Dashboard.InitTimeout, 10*time.Second),

		StorageBackend:        strings.ToLower(firstNonEmpty(os.Getenv("STORAGE_BACKEND"), fc.Storage.Backend, cache.BackendFile)),
		StorageKey:            firstNonEmpty(fc.Storage.Key, "weatherData"),
		FilePath:              firstNonEmpty(os.Getenv("STORAGE_FILE_PATH"), fc.Storage.FilePath, "data"),
		MemcachedAddrs:        firstNonEmpty(os.Getenv("MEMCACHED_ADDRS"), fc.Storage.Memcached.Addrs, "localhost:11211"),
		MemcachedTimeout:      parseDuration(fc.Storage.Memcached.Timeout, 500*time.Millisecond),
		MemcachedMaxIdleConns: fc.Storage.Memcached.MaxIdleConns,
		RedisAddr:             firstNonEmpty(os.Getenv("REDIS_ADDR"), fc.Storage.Redis.Addr, "localhost:6379"),
		RedisPassword:         firstNonEmpty(os.Getenv("REDIS_PASSWORD"), fc.Storage.Redis.Password),
		RedisDB:               fc.Storage.Redis.DB,
		SQLitePath:            firstNonEmpty(os.Getenv("SQLITE_PATH"), fc.Storage.SQLite.Path, "data/dashboard.db"),

		RateLimitRPS:   fc.Reliability.RateLimitRPS,
		RateLimitBurst: fc.Reliability.RateLimitBurst,

		HealthWindow:       parseDurationOrZero(fc.Health.Window, time.Minute),
		OverloadDeniedPct:  intOrDefault(fc.Health.OverloadDeniedPct, 50),
		DegradedFailurePct: intOrDefault(fc.Health.DegradedFailurePct, 50),

		ShutdownTimeout: parseDuration(fc.Shutdown.Timeout, 30*time.Second),

		AllowedOrigins: fc.CORS.AllowedOrigins,
	}
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 5
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 10
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
		}
		cfg.RedisDB = db
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAPIKey returns WEATHER_API_KEY from the environment, falling back to the secrets file.
func loadAPIKey(secretsPath string) (string, error) {
	if key := os.Getenv("WEATHER_API_KEY"); key != "" {
		return key, nil
	}
	data, err := os.ReadFile(secretsPath)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	if err == nil {
		var sec secretsFile
		if err := yaml.Unmarshal(data, &sec); err != nil {
			return "", fmt.Errorf("parse secrets file: %w", err)
		}
		if sec.WeatherAPIKey != "" {
			return sec.WeatherAPIKey, nil
		}
	}
	return "", fmt.Errorf("WEATHER_API_KEY required (set env or config/secrets.yaml weather_api_key)")
}

// validate runs the struct tag rules, then the checks that span fields.
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.StorageBackend {
	case cache.BackendFile:
		if strings.TrimSpace(c.FilePath) == "" {
			return fmt.Errorf("storage.file_path is required for the file backend")
		}
	case cache.BackendSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("storage.sqlite.path is required for the sqlite backend")
		}
	}
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("dashboard.display_timezone: %w", err)
	}
	c.location = loc
	return nil
}

// Location returns the zone used to display clock times and dates.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// CacheOptions maps the storage section onto the slot backend options.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Backend:               c.StorageBackend,
		FilePath:              c.FilePath,
		MemcachedAddrs:        c.MemcachedAddrs,
		MemcachedTimeout:      c.MemcachedTimeout,
		MemcachedMaxIdleConns: c.MemcachedMaxIdleConns,
		RedisAddr:             c.RedisAddr,
		RedisPassword:         c.RedisPassword,
		RedisDB:               c.RedisDB,
		SQLitePath:            c.SQLitePath,
	}
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero or negative durations are returned as-is so validation can reject them.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}
