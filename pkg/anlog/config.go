package anlog

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/intentor/anlog/pkg/backends"
	"github.com/intentor/anlog/pkg/features"
	"github.com/intentor/anlog/pkg/formatters"
	"github.com/intentor/anlog/pkg/types"
)

// Config describes a logger and its sinks. A file sink is built when
// File.Path is set, a rotating sink when Rolling.Dir is set and a NATS
// sink when NATS.URL is set. Level fields hold level names ("info",
// "WRN", "e"); an empty level inherits.
type Config struct {
	MinimumLevel  string              `yaml:"minimum_level" mapstructure:"minimum_level"`
	DateFormat    string              `yaml:"date_format" mapstructure:"date_format"`
	Console       ConsoleConfig       `yaml:"console" mapstructure:"console"`
	File          FileConfig          `yaml:"file" mapstructure:"file"`
	Rolling       RollingConfig       `yaml:"rolling" mapstructure:"rolling"`
	NATS          NATSConfig          `yaml:"nats" mapstructure:"nats"`
	Introspection IntrospectionConfig `yaml:"introspection" mapstructure:"introspection"`
}

// ConsoleConfig configures the stdout sink.
type ConsoleConfig struct {
	Enabled      bool   `yaml:"enabled" mapstructure:"enabled"`
	Theme        string `yaml:"theme" mapstructure:"theme"` // auto, color or none
	Async        bool   `yaml:"async" mapstructure:"async"`
	MinimumLevel string `yaml:"minimum_level" mapstructure:"minimum_level"`
}

// FileConfig configures the single file sink.
type FileConfig struct {
	Path         string `yaml:"path" mapstructure:"path"`
	Format       string `yaml:"format" mapstructure:"format"` // compact or themed
	Async        bool   `yaml:"async" mapstructure:"async"`
	MinimumLevel string `yaml:"minimum_level" mapstructure:"minimum_level"`
}

// RollingConfig configures the rotating file sink.
type RollingConfig struct {
	Dir           string        `yaml:"dir" mapstructure:"dir"`
	Period        string        `yaml:"period" mapstructure:"period"` // day or hour
	MaxSize       int64         `yaml:"max_size" mapstructure:"max_size"`
	Retention     int           `yaml:"retention" mapstructure:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	SweepSchedule string        `yaml:"sweep_schedule" mapstructure:"sweep_schedule"`
	Extension     string        `yaml:"extension" mapstructure:"extension"`
	TimeZone      string        `yaml:"time_zone" mapstructure:"time_zone"` // IANA name, empty for local
	Format        string        `yaml:"format" mapstructure:"format"`
	Async         bool          `yaml:"async" mapstructure:"async"`
	MinimumLevel  string        `yaml:"minimum_level" mapstructure:"minimum_level"`
}

// Location loads TimeZone. An empty name yields nil.
func (r RollingConfig) Location() (*time.Location, error) {
	if r.TimeZone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(r.TimeZone)
	if err != nil {
		return nil, errors.Wrap(err, "rolling.time_zone")
	}
	return loc, nil
}

// NATSConfig configures the NATS sink.
type NATSConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	Subject      string `yaml:"subject" mapstructure:"subject"`
	Format       string `yaml:"format" mapstructure:"format"`
	Async        bool   `yaml:"async" mapstructure:"async"`
	MinimumLevel string `yaml:"minimum_level" mapstructure:"minimum_level"`
}

// IntrospectionConfig configures how structs are flattened.
type IntrospectionConfig struct {
	// OptIn describes only types implementing introspect.Contract
	OptIn bool `yaml:"opt_in" mapstructure:"opt_in"`
}

// DefaultConfig returns a Config writing debug and up to the console.
func DefaultConfig() *Config {
	return &Config{
		Console: ConsoleConfig{
			Enabled: true,
			Theme:   backends.ThemeAuto,
		},
		Rolling: RollingConfig{
			Period:        features.Day.Name(),
			Extension:     features.DefaultExtension,
			SweepInterval: features.DefaultSweepInterval,
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - the config path is chosen by the operator
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks level and format names, the rotation period, sizes and
// retention.
func (c *Config) Validate() error {
	for field, value := range map[string]string{
		"minimum_level":         c.MinimumLevel,
		"console.minimum_level": c.Console.MinimumLevel,
		"file.minimum_level":    c.File.MinimumLevel,
		"rolling.minimum_level": c.Rolling.MinimumLevel,
		"nats.minimum_level":    c.NATS.MinimumLevel,
	} {
		if _, err := parseOptionalLevel(value); err != nil {
			return errors.Wrap(err, field)
		}
	}

	for field, name := range map[string]string{
		"file.format":    c.File.Format,
		"rolling.format": c.Rolling.Format,
		"nats.format":    c.NATS.Format,
	} {
		if name != "" && !knownFormat(name) {
			return errors.Errorf("%s: unknown format %q, want one of %v", field, name, formatters.DefaultFactory.ListFormatters())
		}
	}

	if c.Rolling.Dir != "" {
		if _, err := features.ParsePeriod(c.Rolling.Period); err != nil {
			return errors.Wrap(err, "rolling.period")
		}
		if c.Rolling.MaxSize < 0 {
			return errors.Errorf("rolling.max_size must not be negative, got %d", c.Rolling.MaxSize)
		}
		if c.Rolling.Retention < 0 {
			return errors.Errorf("rolling.retention must not be negative, got %d", c.Rolling.Retention)
		}
		if _, err := c.Rolling.Location(); err != nil {
			return err
		}
	}
	return nil
}

func knownFormat(name string) bool {
	for _, known := range formatters.DefaultFactory.ListFormatters() {
		if name == known {
			return true
		}
	}
	return false
}

// parseOptionalLevel returns nil for an empty name.
func parseOptionalLevel(name string) (*types.Level, error) {
	if name == "" {
		return nil, nil
	}
	l, err := types.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
