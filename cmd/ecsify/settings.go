package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/cyra/ecsify/internal/config"
	"github.com/cyra/ecsify/internal/logging"
)

// loadConfig reads the config file (or the built-in defaults) and layers
// explicitly set flags and ECSIFY_* variables on top.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := v.GetString("config"); path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}

	if v.IsSet("in") {
		cfg.Input.Dir = v.GetString("in")
	}
	if v.IsSet("include") {
		cfg.Input.Include = v.GetString("include")
	}
	if v.IsSet("encoding") {
		cfg.Input.Encoding = v.GetString("encoding")
	}
	if v.IsSet("out") {
		cfg.Output.Path = v.GetString("out")
	}
	if v.IsSet("max-size") {
		cfg.Output.MaxSize = v.GetInt64("max-size")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("strict-timestamps") {
		cfg.StrictTimestamps = v.GetBool("strict-timestamps")
	}
	if v.IsSet("metrics-file") {
		cfg.MetricsFile = v.GetString("metrics-file")
	}
	if v.IsSet("log-level") {
		cfg.Logging.Level = v.GetString("log-level")
	}
	if v.IsSet("log-json") {
		cfg.Logging.JSON = v.GetBool("log-json")
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func referenceTime(v *viper.Viper) (time.Time, error) {
	s := v.GetString("reference-time")
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("reference-time: %w", err)
	}
	return t, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.New(logging.Config{Level: cfg.Logging.Level, JSON: cfg.Logging.JSON})
}
