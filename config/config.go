// Package config loads settings shared by the trainer and the prediction
// service: built-in defaults, then an optional YAML file, then environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	DefaultDataPath   = "data/heart.csv"
	DefaultBundlePath = "model/heart_model.json"
)

// Config holds the settings of both binaries.
type Config struct {
	Environment string `yaml:"environment" envconfig:"ENVIRONMENT"`
	// DataPath is the training dataset, read by the trainer only.
	DataPath string `yaml:"data_path" envconfig:"DATA_PATH"`
	// ModelPath is the bundle the service loads.
	ModelPath string `yaml:"model_path" envconfig:"MODEL_PATH"`
	// OutPath is where the trainer writes the bundle. Empty means ModelPath.
	OutPath     string `yaml:"out_path" envconfig:"OUT_PATH"`
	WatchBundle bool   `yaml:"watch_bundle" envconfig:"WATCH_BUNDLE"`

	Http struct {
		Port           int           `yaml:"port" envconfig:"PORT"`
		Timeout        time.Duration `yaml:"timeout" envconfig:"HTTP_TIMEOUT"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES"`
		AllowedOrigins []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	} `yaml:"http"`
	Log   LogConfig `yaml:"log"`
	Cache struct {
		Size int `yaml:"size" envconfig:"CACHE_SIZE"`
	} `yaml:"cache"`
	Training TrainingConfig `yaml:"training"`
}

// LogConfig configures the level and the optional rotated log file.
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	File       string `yaml:"file" envconfig:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"LOG_MAX_AGE_DAYS"`
}

// TrainingConfig holds the trainer settings.
type TrainingConfig struct {
	TestRatio float64 `yaml:"test_ratio" envconfig:"TEST_RATIO"`
	Seed      int64   `yaml:"seed" envconfig:"SEED"`
	MaxIter   int     `yaml:"max_iter" envconfig:"MAX_ITER"`
	C         float64 `yaml:"c" envconfig:"REGULARIZATION_C"`
	Encoding  string  `yaml:"encoding" envconfig:"DATA_ENCODING"`
	// DBPath is the SQLite training log. Empty disables it.
	DBPath string `yaml:"db_path" envconfig:"TRAINING_DB_PATH"`
}

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{
		Environment: "development",
		DataPath:    DefaultDataPath,
		ModelPath:   DefaultBundlePath,
		WatchBundle: true,
	}
	cfg.Http.Port = 8000
	cfg.Http.Timeout = 30 * time.Second
	cfg.Http.MaxBodyBytes = 1 << 20
	cfg.Http.AllowedOrigins = []string{"*"}
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 100
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	cfg.Cache.Size = 1024
	cfg.Training = TrainingConfig{
		TestRatio: 0.2,
		Seed:      42,
		MaxIter:   1000,
		C:         1.0,
		Encoding:  "utf-8",
		DBPath:    "model/training.db",
	}
	return cfg
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the binaries cannot run with.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model_path is required")
	}
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.Http.Port)
	}
	if c.Http.Timeout <= 0 {
		return fmt.Errorf("invalid http timeout %s", c.Http.Timeout)
	}
	if c.Cache.Size < 0 {
		return fmt.Errorf("invalid cache size %d", c.Cache.Size)
	}
	if c.Training.TestRatio <= 0 || c.Training.TestRatio >= 1 {
		return fmt.Errorf("test_ratio must be in (0,1), got %v", c.Training.TestRatio)
	}
	return nil
}

// BundleOutput is the path the trainer writes to.
func (c *Config) BundleOutput() string {
	if c.OutPath != "" {
		return c.OutPath
	}
	return c.ModelPath
}
