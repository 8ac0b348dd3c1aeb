package cli

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jtsunne/ncmon/internal/client"
	"github.com/jtsunne/ncmon/internal/engine"
	"github.com/jtsunne/ncmon/internal/errors"
	"github.com/jtsunne/ncmon/internal/sink"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. NCMON_INTERVAL=30s.
	EnvPrefix = "NCMON"

	// SettingsFileName is read from the config directory when --settings
	// is not given.
	SettingsFileName = "ncmon.yaml"
)

// Settings is the merged result of flags, NCMON_* variables and the
// settings file, in that order of precedence.
type Settings struct {
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"`
	Server    string        `mapstructure:"server" yaml:"server"`
	Select    bool          `mapstructure:"select" yaml:"select"`
	Headless  bool          `mapstructure:"headless" yaml:"headless"`
	Format    string        `mapstructure:"format" yaml:"format"`
	Listen    string        `mapstructure:"listen" yaml:"listen"`
	FeedToken string        `mapstructure:"feed-token" yaml:"feed-token"`
	Insecure  bool          `mapstructure:"insecure" yaml:"insecure"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user-agent" yaml:"user-agent"`
	Theme     string        `mapstructure:"theme" yaml:"theme"`
	LogFile   string        `mapstructure:"log-file" yaml:"log-file"`
	LogLevel  string        `mapstructure:"log-level" yaml:"log-level"`

	// SettingsFile is the file that was read, if any.
	SettingsFile string `mapstructure:"-" yaml:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dir", ".")
	v.SetDefault("interval", engine.DefaultInterval)
	v.SetDefault("format", sink.FormatText)
	v.SetDefault("timeout", client.DefaultRequestTimeout)
	v.SetDefault("user-agent", "ncmon/"+version)
	v.SetDefault("theme", "dark")
	v.SetDefault("log-level", "info")

	// Keys without a useful default are still registered so that
	// Unmarshal sees their NCMON_* overrides.
	for _, k := range []string{"server", "listen", "feed-token", "log-file"} {
		v.SetDefault(k, "")
	}
	for _, k := range []string{"select", "headless", "insecure"} {
		v.SetDefault(k, false)
	}
}

// loadSettings layers flags over NCMON_* variables over the settings file
// over defaults. explicit names the settings file; when empty, ncmon.yaml
// in the config directory is read if it exists. cmd may be nil.
func loadSettings(cmd *cobra.Command, explicit string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return Settings{}, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read command line flags", "")
		}
	}

	path := explicit
	if path == "" {
		candidate := filepath.Join(v.GetString("dir"), SettingsFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return Settings{}, errors.WrapWithCode(err, errors.ErrConfig,
					"Settings file not found: "+path,
					"Check the path passed to --settings")
			}
			return Settings{}, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read settings file "+path,
				"Check the file is valid YAML")
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid settings",
			"Check value types, e.g. interval: 60s")
	}
	s.SettingsFile = path

	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	if err := engine.ValidateInterval(s.Interval); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid interval "+s.Interval.String(),
			"Use a value between 10s and 1h")
	}
	if s.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			"Invalid timeout "+s.Timeout.String(),
			"Use a positive duration, e.g. 15s")
	}
	switch s.Format {
	case sink.FormatText, sink.FormatJSON:
	default:
		return errors.New(errors.ErrConfig,
			"Unknown output format "+s.Format,
			"Use --format text or --format json")
	}
	return nil
}
