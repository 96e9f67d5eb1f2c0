package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sammcj/autobatch/logging"
	"github.com/sammcj/autobatch/utils"
)

const envPrefix = "AUTOBATCH"

type Config struct {
	LogLevel          string  `json:"log_level" mapstructure:"log_level"`
	LogFilePath       string  `json:"log_file_path" mapstructure:"log_file_path"`
	ImageSize         int     `json:"image_size" mapstructure:"image_size"`
	Fraction          float64 `json:"fraction" mapstructure:"fraction"`
	FallbackBatchSize int     `json:"fallback_batch_size" mapstructure:"fallback_batch_size"`
	Candidates        []int   `json:"candidates" mapstructure:"candidates"`
	ProbeRuns         int     `json:"probe_runs" mapstructure:"probe_runs"`
	Device            string  `json:"device" mapstructure:"device"`                   // auto, cpu, cuda:N or sim
	Network           string  `json:"network" mapstructure:"network"`                 // preset name or YAML file
	SimTotalGiB       float64 `json:"sim_total_gib" mapstructure:"sim_total_gib"`     // capacity of the simulated device when no GPU is found
	MixedPrecision    bool    `json:"mixed_precision" mapstructure:"mixed_precision"` // probe under amp, as training does
	MetricsFile       string  `json:"metrics_file" mapstructure:"metrics_file"`       // optional node_exporter textfile
}

var defaultConfig = Config{
	LogLevel:          "info",
	LogFilePath:       utils.GetLogPath(),
	ImageSize:         640,
	Fraction:          0.9,
	FallbackBatchSize: 16,
	Candidates:        []int{1, 2, 4, 8, 16},
	ProbeRuns:         3,
	Device:            "auto",
	Network:           "yolov5s",
	SimTotalGiB:       16,
	MixedPrecision:    true,
	MetricsFile:       "",
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"log-level":     "log_level",
	"log-file":      "log_file_path",
	"imgsz":         "image_size",
	"fraction":      "fraction",
	"batch-size":    "fallback_batch_size",
	"candidates":    "candidates",
	"runs":          "probe_runs",
	"device":        "device",
	"network":       "network",
	"sim-total-gib": "sim_total_gib",
	"amp":           "mixed_precision",
	"metrics-file":  "metrics_file",
}

// DefaultConfig returns a copy of the built-in defaults.
func DefaultConfig() Config {
	cfg := defaultConfig
	cfg.Candidates = append([]int(nil), defaultConfig.Candidates...)
	return cfg
}

// LoadConfig reads the JSON config at path (the default location when
// empty), creating it with defaults if it does not exist. Environment
// variables prefixed AUTOBATCH_ and any changed flags in flags override it.
func LoadConfig(path string, flags *pflag.FlagSet) (Config, error) {
	if path == "" {
		path = utils.GetConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logging.DebugLogger.Debug().Msgf("Config file %s does not exist, creating with default values", path)
		if err := SaveConfig(path, DefaultConfig()); err != nil {
			return Config{}, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LogFilePath = utils.ExpandHome(cfg.LogFilePath)
	cfg.MetricsFile = utils.ExpandHome(cfg.MetricsFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file_path", d.LogFilePath)
	v.SetDefault("image_size", d.ImageSize)
	v.SetDefault("fraction", d.Fraction)
	v.SetDefault("fallback_batch_size", d.FallbackBatchSize)
	v.SetDefault("candidates", d.Candidates)
	v.SetDefault("probe_runs", d.ProbeRuns)
	v.SetDefault("device", d.Device)
	v.SetDefault("network", d.Network)
	v.SetDefault("sim_total_gib", d.SimTotalGiB)
	v.SetDefault("mixed_precision", d.MixedPrecision)
	v.SetDefault("metrics_file", d.MetricsFile)
}

// SaveConfig writes cfg as indented JSON, creating the directory if needed.
func SaveConfig(path string, cfg Config) error {
	logging.DebugLogger.Debug().Msgf("Saving config to: %s", path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config to file: %w", err)
	}
	return nil
}

// Validate checks every value is in range.
func (c Config) Validate() error {
	if c.ImageSize <= 0 {
		return fmt.Errorf("image_size must be > 0 (got %d)", c.ImageSize)
	}
	if !(c.Fraction > 0 && c.Fraction <= 1) {
		return fmt.Errorf("fraction must be in (0, 1] (got %v)", c.Fraction)
	}
	if c.FallbackBatchSize <= 0 {
		return fmt.Errorf("fallback_batch_size must be > 0 (got %d)", c.FallbackBatchSize)
	}
	if len(c.Candidates) == 0 {
		return fmt.Errorf("candidates must not be empty")
	}
	for i, b := range c.Candidates {
		if b <= 0 || (i > 0 && b <= c.Candidates[i-1]) {
			return fmt.Errorf("candidates must be positive and strictly increasing (got %v)", c.Candidates)
		}
	}
	if c.ProbeRuns <= 0 {
		return fmt.Errorf("probe_runs must be > 0 (got %d)", c.ProbeRuns)
	}
	if c.SimTotalGiB < 0 {
		return fmt.Errorf("sim_total_gib must not be negative (got %v)", c.SimTotalGiB)
	}
	if c.Network == "" {
		return fmt.Errorf("network must be set")
	}
	return nil
}
