package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Tailscale  TailscaleConfig  `yaml:"tailscale"`
	ExerciseDB ExerciseDBConfig `yaml:"exercisedb"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Events     EventsConfig     `yaml:"events"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// ExerciseDBConfig configures the external exercise catalog used by lookup.
type ExerciseDBConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	Limit        int           `yaml:"limit"`
	APIKeyHeader string        `yaml:"api_key_header"`
	APIKey       string        `yaml:"api_key"`
	Host         string        `yaml:"host"`
	CacheSizeMB  int           `yaml:"cache_size_mb"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// EventsConfig configures outbox delivery. Delivery is off without brokers.
type EventsConfig struct {
	Kafka        KafkaConfig   `yaml:"kafka"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether outbox events should be shipped to Kafka.
func (e EventsConfig) Enabled() bool { return len(e.Kafka.Brokers) > 0 }

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, applies defaults and then environment
// variable overrides. Env vars use the prefix FITLOG_ and underscore-separated paths:
//
//	FITLOG_SERVER_HOST, FITLOG_SERVER_PORT,
//	FITLOG_DB_HOST, FITLOG_DB_PORT, FITLOG_DB_NAME,
//	FITLOG_DB_USER, FITLOG_DB_PASSWORD, FITLOG_DB_SSLMODE,
//	FITLOG_AUTH_API_KEY,
//	FITLOG_TAILSCALE_ENABLED, FITLOG_TAILSCALE_HOSTNAME,
//	FITLOG_EXERCISEDB_BASE_URL, FITLOG_EXERCISEDB_API_KEY,
//	FITLOG_KAFKA_BROKERS (comma separated), FITLOG_KAFKA_TOPIC
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "fitlog"
	}
	if cfg.ExerciseDB.BaseURL == "" {
		cfg.ExerciseDB.BaseURL = "https://exercisedb.dev/api"
	}
	if cfg.ExerciseDB.Timeout == 0 {
		cfg.ExerciseDB.Timeout = 8 * time.Second
	}
	if cfg.ExerciseDB.Limit == 0 {
		cfg.ExerciseDB.Limit = 10
	}
	if cfg.ExerciseDB.CacheSizeMB == 0 {
		cfg.ExerciseDB.CacheSizeMB = 8
	}
	if cfg.ExerciseDB.CacheTTL == 0 {
		cfg.ExerciseDB.CacheTTL = time.Hour
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Events.Kafka.Topic == "" {
		cfg.Events.Kafka.Topic = "fitlog.workouts"
	}
	if cfg.Events.PollInterval == 0 {
		cfg.Events.PollInterval = 2 * time.Second
	}
	if cfg.Events.BatchSize == 0 {
		cfg.Events.BatchSize = 100
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FITLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FITLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FITLOG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FITLOG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FITLOG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FITLOG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FITLOG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FITLOG_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("FITLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("FITLOG_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("FITLOG_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("FITLOG_EXERCISEDB_BASE_URL"); v != "" {
		cfg.ExerciseDB.BaseURL = v
	}
	if v := os.Getenv("FITLOG_EXERCISEDB_API_KEY"); v != "" {
		cfg.ExerciseDB.APIKey = v
	}
	if v := os.Getenv("FITLOG_KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		cfg.Events.Kafka.Brokers = brokers
	}
	if v := os.Getenv("FITLOG_KAFKA_TOPIC"); v != "" {
		cfg.Events.Kafka.Topic = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.StateDir == "" {
		return fmt.Errorf("tailscale.state_dir is required when tailscale is enabled")
	}
	if c.ExerciseDB.Limit < 1 || c.ExerciseDB.Limit > 50 {
		return fmt.Errorf("exercisedb.limit must be between 1 and 50")
	}
	if (c.ExerciseDB.APIKey == "") != (c.ExerciseDB.APIKeyHeader == "") {
		return fmt.Errorf("exercisedb.api_key and exercisedb.api_key_header must be set together")
	}
	if c.Events.BatchSize < 1 {
		return fmt.Errorf("events.batch_size must be positive")
	}
	return nil
}
