package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/intentor/anlog/pkg/anlog"
)

// EnvPrefix prefixes the environment variables overriding configuration
// keys: ANLOG_MINIMUM_LEVEL, ANLOG_ROLLING_DIR, ...
const EnvPrefix = "ANLOG"

// app carries the state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *anlog.Config
}

// flagBindings maps root persistent flags to configuration keys.
var flagBindings = map[string]string{
	"minimum-level":  "minimum_level",
	"date-format":    "date_format",
	"console":        "console.enabled",
	"theme":          "console.theme",
	"file":           "file.path",
	"rolling-dir":    "rolling.dir",
	"period":         "rolling.period",
	"max-size":       "rolling.max_size",
	"retention":      "rolling.retention",
	"ext":            "rolling.extension",
	"nats-url":       "nats.url",
	"nats-subject":   "nats.subject",
	"sweep-schedule": "rolling.sweep_schedule",
	"time-zone":      "rolling.time_zone",
}

// newRootCommand builds the command tree around a fresh viper instance.
func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	defaults := anlog.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "anlog",
		Short: "anlog - structured logging pipeline tool",
		Long: `anlog emits sample events through a configured logging pipeline and
inspects rotated log directories.

Configuration is read from a YAML file (--config), ANLOG_* environment
variables and flags, in increasing order of precedence:
  - ANLOG_MINIMUM_LEVEL=warn
  - ANLOG_ROLLING_DIR=/var/log/app
  - ANLOG_ROLLING_RETENTION=7`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	flags.String("minimum-level", defaults.MinimumLevel, "minimum level of every sink without its own")
	flags.String("date-format", defaults.DateFormat, "Go time layout of rendered timestamps")
	flags.Bool("console", defaults.Console.Enabled, "write events to stdout")
	flags.String("theme", defaults.Console.Theme, "console theme: auto, color or none")
	flags.String("file", defaults.File.Path, "append events to this file")
	flags.String("rolling-dir", defaults.Rolling.Dir, "directory of rotated log files")
	flags.String("period", defaults.Rolling.Period, "rotation period: day or hour")
	flags.Int64("max-size", defaults.Rolling.MaxSize, "rotate within a period at this file size in bytes (0 disables)")
	flags.Int("retention", defaults.Rolling.Retention, "periods rotated files are kept (0 keeps them forever)")
	flags.String("ext", defaults.Rolling.Extension, "extension of rotated files")
	flags.String("sweep-schedule", defaults.Rolling.SweepSchedule, "cron schedule of expiry sweeps")
	flags.String("time-zone", defaults.Rolling.TimeZone, "IANA zone rotated files are stamped in (default local)")
	flags.String("nats-url", defaults.NATS.URL, "publish events to this NATS server")
	flags.String("nats-subject", defaults.NATS.Subject, "NATS subject of published events")

	for flag, key := range flagBindings {
		if err := a.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(
		newEmitCommand(a),
		newSweepCommand(a),
		newNamesCommand(a),
		newVersionCommand(),
	)
	return rootCmd
}

// load merges defaults, the config file, the environment and flags into
// a validated Config.
func (a *app) load() error {
	setDefaults(a.v, anlog.DefaultConfig())

	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", a.cfgFile)
		}
	}

	cfg := anlog.DefaultConfig()
	if err := a.v.Unmarshal(cfg); err != nil {
		return errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// setDefaults registers every configuration key, so that environment
// variables are seen when the config is decoded.
func setDefaults(v *viper.Viper, cfg *anlog.Config) {
	v.SetDefault("minimum_level", cfg.MinimumLevel)
	v.SetDefault("date_format", cfg.DateFormat)

	v.SetDefault("console.enabled", cfg.Console.Enabled)
	v.SetDefault("console.theme", cfg.Console.Theme)
	v.SetDefault("console.async", cfg.Console.Async)
	v.SetDefault("console.minimum_level", cfg.Console.MinimumLevel)

	v.SetDefault("file.path", cfg.File.Path)
	v.SetDefault("file.format", cfg.File.Format)
	v.SetDefault("file.async", cfg.File.Async)
	v.SetDefault("file.minimum_level", cfg.File.MinimumLevel)

	v.SetDefault("rolling.dir", cfg.Rolling.Dir)
	v.SetDefault("rolling.period", cfg.Rolling.Period)
	v.SetDefault("rolling.max_size", cfg.Rolling.MaxSize)
	v.SetDefault("rolling.retention", cfg.Rolling.Retention)
	v.SetDefault("rolling.sweep_interval", cfg.Rolling.SweepInterval)
	v.SetDefault("rolling.sweep_schedule", cfg.Rolling.SweepSchedule)
	v.SetDefault("rolling.extension", cfg.Rolling.Extension)
	v.SetDefault("rolling.time_zone", cfg.Rolling.TimeZone)
	v.SetDefault("rolling.format", cfg.Rolling.Format)
	v.SetDefault("rolling.async", cfg.Rolling.Async)
	v.SetDefault("rolling.minimum_level", cfg.Rolling.MinimumLevel)

	v.SetDefault("nats.url", cfg.NATS.URL)
	v.SetDefault("nats.subject", cfg.NATS.Subject)
	v.SetDefault("nats.format", cfg.NATS.Format)
	v.SetDefault("nats.async", cfg.NATS.Async)
	v.SetDefault("nats.minimum_level", cfg.NATS.MinimumLevel)

	v.SetDefault("introspection.opt_in", cfg.Introspection.OptIn)
}

// Execute runs the root command.
func Execute() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
