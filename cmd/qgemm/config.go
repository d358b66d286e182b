package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the qgemm configuration file (~/.config/qgemm/config.yaml).
// All fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	BlkLen  *int64 `yaml:"blklen"`
	Compute string `yaml:"compute"`
	Threads *int64 `yaml:"threads"`

	Warmup *int64 `yaml:"warmup"`
	Runs   *int64 `yaml:"runs"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "qgemm", "config.yaml")
}

// applyConfig applies config file defaults to shared command variables when
// the corresponding CLI flag was not explicitly set.
func applyConfig(c *cli.Command, cfg Config) {
	if cfg.BlkLen != nil && !c.IsSet("blklen") {
		blkLen = *cfg.BlkLen
	}
	if cfg.Compute != "" && !c.IsSet("compute") {
		compute = cfg.Compute
	}
	if cfg.Threads != nil && !c.IsSet("threads") {
		threads = *cfg.Threads
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func applyBenchConfig(c *cli.Command, cfg Config, warmup, runs *int64) {
	applyConfig(c, cfg)
	if cfg.Warmup != nil && !c.IsSet("warmup") {
		*warmup = *cfg.Warmup
	}
	if cfg.Runs != nil && !c.IsSet("runs") {
		*runs = *cfg.Runs
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}
