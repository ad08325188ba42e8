// Package config loads the application configuration and the trained weight
// map artifact.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the application configuration. Zero-valued fields are filled
// from the default tags, then the whole struct is validated.
type Config struct {
	LogLevel string `yaml:"log_level" default:"info" validate:"oneof=trace debug info warn error"`

	Data    DataConfig    `yaml:"data"`
	Sim     SimConfig     `yaml:"sim"`
	Train   TrainConfig   `yaml:"train"`
	Monitor MonitorConfig `yaml:"monitor"`
	Weights WeightsConfig `yaml:"weights"`
	Output  OutputConfig  `yaml:"output"`
}

// DataConfig selects the bar sources and cache backend. PostgresDSN and
// RedisAddr are optional: empty means CSV-only input and the in-memory cache.
type DataConfig struct {
	CSVDir      string        `yaml:"csv_dir" default:"data/bars"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	RedisAddr   string        `yaml:"redis_addr"`
	CacheTTL    time.Duration `yaml:"cache_ttl" default:"5m"`

	// Guard parameters for the wrapped bar source.
	RateLimit float64 `yaml:"rate_limit" default:"20" validate:"gt=0"`
	RateBurst int     `yaml:"rate_burst" default:"5" validate:"gt=0"`
}

// SimConfig mirrors the simulator parameters.
type SimConfig struct {
	MinConfidence  float64 `yaml:"min_confidence" default:"60" validate:"gte=0,lte=100"`
	LongStopPct    float64 `yaml:"long_stop_pct" default:"0.02" validate:"gt=0,lt=1"`
	LongTargetPct  float64 `yaml:"long_target_pct" default:"0.04" validate:"gt=0,lt=1"`
	ShortStopPct   float64 `yaml:"short_stop_pct" default:"0.05" validate:"gt=0,lt=1"`
	ShortTargetPct float64 `yaml:"short_target_pct" default:"0.05" validate:"gt=0,lt=1"`
	Capital        float64 `yaml:"capital" default:"10000" validate:"gt=0"`
	Workers        int     `yaml:"workers" default:"4" validate:"gt=0"`

	// ATRLevels replaces the fixed exit percentages with volatility-scaled
	// distances at a 1:2 risk/reward.
	ATRLevels bool `yaml:"atr_levels"`
}

// TrainConfig controls the weight trainer.
type TrainConfig struct {
	MinSamples int `yaml:"min_samples" default:"10" validate:"gt=0"`
}

// MonitorConfig configures the read-only HTTP monitor server.
type MonitorConfig struct {
	Addr         string        `yaml:"addr" default:":8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

// WeightsConfig points at the trained weight map artifact.
type WeightsConfig struct {
	Path string `yaml:"path" default:"config/weights.yaml"`
}

// OutputConfig sets where run artifacts land.
type OutputConfig struct {
	Dir string `yaml:"dir" default:"out/backtest"`
}

// Default returns the configuration with every field at its default.
func Default() (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("validate defaults: %w", err)
	}
	return cfg, nil
}

// Load reads a YAML configuration file, applies defaults to unset fields,
// and validates the result. A missing file yields the pure defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default()
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}
