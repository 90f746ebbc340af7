// Package config loads the process-wide surveillance configuration from a
// YAML file plus environment-variable overrides for secrets, the same split
// cmd/server/main.go uses (os.Getenv for credentials, yaml.Unmarshal for
// everything else) — generalized into a reloadable value instead of main's
// inline one-shot read.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full surveillance-core configuration tree.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`

	Queue    QueueConfig    `yaml:"queue"`
	AI       AIConfig       `yaml:"ai"`
	Costing  CostingConfig  `yaml:"costing"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Bus      BusConfig      `yaml:"bus"`
	Storage  StorageConfig  `yaml:"storage"`
	Flags    FlagsConfig    `yaml:"flags"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Name     string `yaml:"name"`
	Password string `yaml:"-"` // always from DB_PASSWORD, never from file
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// QueueConfig sizes the bounded event queue and worker pool — spec.md §5.
type QueueConfig struct {
	Capacity    int `yaml:"capacity"`
	WorkerCount int `yaml:"worker_count"`
}

// AIConfig is the provider chain order and per-mode SLA budgets —
// spec.md §4.4's "Chain dispatch" section.
type AIConfig struct {
	ProviderOrder       []string      `yaml:"provider_order"`
	SingleFrameBudget   time.Duration `yaml:"single_frame_budget"`
	MultiFrameBudget    time.Duration `yaml:"multi_frame_budget"`
	VideoNativeBudget   time.Duration `yaml:"video_native_budget"`
}

// CostingConfig backs costing.Limits — hot-reloadable since Manager.Current
// is consulted fresh on every AI dispatch.
type CostingConfig struct {
	DailyLimitUSD   float64   `yaml:"daily_limit_usd"`
	MonthlyLimitUSD float64   `yaml:"monthly_limit_usd"`
	AlertFractions  []float64 `yaml:"alert_fractions"`
}

// BridgeConfig overrides the default sensor reset durations, per spec.md §4.7.
type BridgeConfig struct {
	BridgeName        string `yaml:"bridge_name"`
	Port              int    `yaml:"port"`
	PerCarrierSensors bool   `yaml:"per_carrier_sensors"`
}

// BusConfig selects and configures the message-bus transport.
type BusConfig struct {
	Transport string `yaml:"transport"` // "nats", "mqtt", or "" (disabled)
	Root      string `yaml:"root"`
	URL       string `yaml:"url"`
	QoS       byte   `yaml:"qos"`
}

// StorageConfig selects local-disk or MinIO object storage.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // "local" or "minio"
	LocalPath string `yaml:"local_path"`
	Minio     struct {
		Endpoint  string `yaml:"endpoint"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"minio"`
}

// FlagsConfig gates the privacy-sensitive fan-out recognition stages.
type FlagsConfig struct {
	FaceRecognitionEnabled    bool `yaml:"face_recognition_enabled"`
	VehicleRecognitionEnabled bool `yaml:"vehicle_recognition_enabled"`
}

// Load reads path, unmarshals it, then overlays environment-variable
// secrets — mirroring cmd/server/main.go's os.Getenv("DB_PASSWORD") etc.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Database.Password = os.Getenv("DB_PASSWORD")
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("BUS_URL"); v != "" {
		cfg.Bus.URL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = 1000
	}
	if cfg.Queue.WorkerCount == 0 {
		cfg.Queue.WorkerCount = 8
	}
	if len(cfg.AI.ProviderOrder) == 0 {
		cfg.AI.ProviderOrder = []string{"openai", "grok", "claude", "gemini"}
	}
	if cfg.AI.SingleFrameBudget == 0 {
		cfg.AI.SingleFrameBudget = 5 * time.Second
	}
	if cfg.AI.MultiFrameBudget == 0 {
		cfg.AI.MultiFrameBudget = 10 * time.Second
	}
	if cfg.AI.VideoNativeBudget == 0 {
		cfg.AI.VideoNativeBudget = 30 * time.Second
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "data"
	}
	if cfg.Bus.Root == "" {
		cfg.Bus.Root = "argus"
	}
}
