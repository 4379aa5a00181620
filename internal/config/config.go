package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env       string          `yaml:"env"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Retry     RetryConfig     `yaml:"retry"`
	Notify    NotifyConfig    `yaml:"notify"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DiscoveryConfig struct {
	AgeMin        int           `yaml:"age_min"`
	AgeMax        int           `yaml:"age_max"`
	MaxDistanceKM int           `yaml:"max_distance_km"`
	ResetWindow   time.Duration `yaml:"reset_window"`
}

type RetryConfig struct {
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

type NotifyConfig struct {
	TelegramToken string        `yaml:"telegram_token"`
	DedupTTL      time.Duration `yaml:"dedup_ttl"`
}

type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
	Grace    time.Duration `yaml:"grace"`
}

func Default() Config {
	return Config{
		Env: "dev",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		Log: LogConfig{Level: "debug", Encoding: "json"},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			DB:   0,
		},
		Discovery: DiscoveryConfig{
			AgeMin:        18,
			AgeMax:        90,
			MaxDistanceKM: 150,
			ResetWindow:   12 * time.Hour,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Backoff:  100 * time.Millisecond,
		},
		Notify: NotifyConfig{
			TelegramToken: "",
			DedupTTL:      720 * time.Hour,
		},
		Reconcile: ReconcileConfig{
			Interval: 10 * time.Minute,
			Grace:    5 * time.Minute,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if err := overrideDuration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_ENCODING"); v != "" {
		cfg.Log.Encoding = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if err := overrideInt("REDIS_DB", &cfg.Redis.DB); err != nil {
		return err
	}

	if err := overrideInt("DISCOVERY_AGE_MIN", &cfg.Discovery.AgeMin); err != nil {
		return err
	}
	if err := overrideInt("DISCOVERY_AGE_MAX", &cfg.Discovery.AgeMax); err != nil {
		return err
	}
	if err := overrideInt("DISCOVERY_MAX_DISTANCE_KM", &cfg.Discovery.MaxDistanceKM); err != nil {
		return err
	}
	if err := overrideDuration("DISCOVERY_RESET_WINDOW", &cfg.Discovery.ResetWindow); err != nil {
		return err
	}

	if err := overrideInt("RETRY_ATTEMPTS", &cfg.Retry.Attempts); err != nil {
		return err
	}
	if err := overrideDuration("RETRY_BACKOFF", &cfg.Retry.Backoff); err != nil {
		return err
	}

	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if err := overrideDuration("NOTIFY_DEDUP_TTL", &cfg.Notify.DedupTTL); err != nil {
		return err
	}

	if err := overrideDuration("RECONCILE_INTERVAL", &cfg.Reconcile.Interval); err != nil {
		return err
	}
	if err := overrideDuration("RECONCILE_GRACE", &cfg.Reconcile.Grace); err != nil {
		return err
	}

	return nil
}

func overrideDuration(key string, target *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("parse %s duration: %w", key, err)
	}
	*target = d
	return nil
}

func overrideInt(key string, target *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s int: %w", key, err)
	}
	*target = n
	return nil
}
