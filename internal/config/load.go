package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults applied when a field is left empty.
const (
	DefaultLogLevel = "info"
	DefaultOutput   = "-"
	DefaultEncoding = "utf-8"
	DefaultWorkers  = 1
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads, parses, and validates configuration from the provided path.
// Files ending in .toml are read as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes and validates configuration bytes in the given format.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Validate applies defaults and checks the configuration.
func Validate(c *Config) error {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Output.Path == "" {
		c.Output.Path = DefaultOutput
	}
	if c.Input.Encoding == "" {
		c.Input.Encoding = DefaultEncoding
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}

	if err := validate.Struct(c); err != nil {
		return err
	}

	for i, d := range c.Detectors {
		if _, err := regexp.Compile(d.Pattern); err != nil {
			return fmt.Errorf("detector %q (index %d): pattern: %w", d.Name, i, err)
		}
	}

	if c.Input.Include != "" {
		if _, err := filepath.Match(c.Input.Include, ""); err != nil {
			return fmt.Errorf("input.include %q: %w", c.Input.Include, err)
		}
	}

	return nil
}

// Default returns a validated configuration with the built-in detectors.
func Default() *Config {
	cfg := &Config{Detectors: DefaultDetectors()}
	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("config: default detectors invalid: %v", err))
	}
	return cfg
}

// DefaultDetectors classifies combined/common access logs and BSD syslog.
func DefaultDetectors() []DetectorSpec {
	return []DetectorSpec{
		{
			Name:    "apache_combined",
			Pattern: `^\S+ \S+ \S+ \[[^\]]+\] "[A-Z]+ \S+ [^"]*" \d{3} `,
			Type:    "apache_access",
		},
		{
			Name:    "bsd_syslog",
			Pattern: `^[A-Z][a-z]{2}\s+\d{1,2} \d{2}:\d{2}:\d{2} \S+ [\w\-/]+(\[\d+\])?: `,
			Type:    "syslog",
		},
		{
			Name:    "caddy_access",
			Pattern: `^\{.*"logger":"http\.log\.access`,
			Type:    "caddy_json",
		},
		{
			Name:    "traefik_access",
			Pattern: `^\{.*"RequestMethod":`,
			Type:    "traefik_json",
		},
	}
}
