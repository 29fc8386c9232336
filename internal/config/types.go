package config

// Config is the root configuration structure loaded from YAML or TOML.
type Config struct {
	Logging   LoggingConfig  `yaml:"logging" toml:"logging"`
	Detectors []DetectorSpec `yaml:"detectors" toml:"detectors" validate:"required,min=1,dive"`
	Input     InputConfig    `yaml:"input" toml:"input"`
	Output    OutputConfig   `yaml:"output" toml:"output"`

	Workers          int    `yaml:"workers" toml:"workers" validate:"gte=0,lte=256"` // files normalized concurrently
	StrictTimestamps bool   `yaml:"strict_timestamps" toml:"strict_timestamps"`      // abort the run on a bad timestamp instead of skipping the line
	MetricsFile      string `yaml:"metrics_file,omitempty" toml:"metrics_file"`      // prometheus textfile written after each run
}

// LoggingConfig controls log verbosity and format.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" validate:"omitempty,oneof=debug info warn error"`
	JSON  bool   `yaml:"json" toml:"json"`
}

// DetectorSpec is one file-classification rule. Order in the list is priority.
type DetectorSpec struct {
	Name    string `yaml:"name" toml:"name" validate:"required"`
	Pattern string `yaml:"pattern" toml:"pattern" validate:"required"` // RE2 syntax, unanchored search
	Type    string `yaml:"type" toml:"type" validate:"required"`       // e.g. "apache_access", "syslog"
}

// InputConfig describes where raw log files are read from.
type InputConfig struct {
	Dir      string `yaml:"dir" toml:"dir"`
	Include  string `yaml:"include,omitempty" toml:"include"` // glob on the base name, e.g. "*.log*"
	Encoding string `yaml:"encoding" toml:"encoding"`         // "utf-8" or any WHATWG label such as "latin1"
}

// OutputConfig describes where NDJSON records are written.
type OutputConfig struct {
	Path    string `yaml:"path" toml:"path"`                                        // "-" for stdout; .gz/.zst compress
	MaxSize int64  `yaml:"max_size,omitempty" toml:"max_size" validate:"gte=0"` // rotate plain files at this many bytes
}
