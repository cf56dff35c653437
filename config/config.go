package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ChristianF88/logstat/ingestor"
	"github.com/ChristianF88/logstat/logparser"
)

// DefaultPath is read when no config file is given on the command line
var DefaultPath = filepath.Join(".", "logstat.toml")

const (
	DefaultReportSize   = 1000
	DefaultLogDir       = "./log/"
	DefaultReportDir    = "./reports/"
	DefaultMaxErrorPerc = 20.0
	DefaultLogLevel     = "info"
)

var logLevels = []string{"debug", "info", "warn", "error"}

type MainConfig struct {
	ReportSize     int     `toml:"report_size"`
	LogDir         string  `toml:"log_dir"`
	ReportDir      string  `toml:"report_dir"`
	MonitorLogFile string  `toml:"monitor_log_file"`
	MaxErrorPerc   float64 `toml:"max_error_perc"`
	LogFormat      string  `toml:"log_format"`
	LogPrefix      string  `toml:"log_prefix"`
	ReportTemplate string  `toml:"report_template"`
	PlotPath       string  `toml:"plot_path"`
	MaxLines       int     `toml:"max_lines"`
	LogLevel       string  `toml:"log_level"`
}

type Config struct {
	Main MainConfig `toml:"main"`

	// Path the configuration was read from, empty for pure defaults
	Source string `toml:"-"`
}

// Default returns the configuration used when no file overrides anything
func Default() *Config {
	return &Config{
		Main: MainConfig{
			ReportSize:   DefaultReportSize,
			LogDir:       DefaultLogDir,
			ReportDir:    DefaultReportDir,
			MaxErrorPerc: DefaultMaxErrorPerc,
			LogFormat:    logparser.DefaultFormat,
			LogPrefix:    ingestor.DefaultPrefix,
			LogLevel:     DefaultLogLevel,
		},
	}
}

// LoadConfig reads configPath over the defaults. An empty configPath means
// DefaultPath, which may be absent; an explicitly named file must exist.
// The result is normalized and validated.
func LoadConfig(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultPath
	}

	config := Default()

	configData, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := config.decode(configPath, configData); err != nil {
			return nil, err
		}
		config.Source = configPath
	case !explicit && errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return nil, &Error{Path: configPath, Reason: "failed to read config file", Err: err}
	}

	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) decode(path string, data []byte) error {
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return &Error{Path: path, Reason: "failed to parse config file", Err: err}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return &Error{Path: path, Key: keys[0], Reason: fmt.Sprintf("unknown keys: %s", strings.Join(keys, ", "))}
	}
	return nil
}

// Normalize makes directory paths end in a separator
func (c *Config) Normalize() {
	c.Main.LogDir = withTrailingSeparator(c.Main.LogDir)
	c.Main.ReportDir = withTrailingSeparator(c.Main.ReportDir)
	c.Main.LogLevel = strings.ToLower(strings.TrimSpace(c.Main.LogLevel))
}

func withTrailingSeparator(dir string) string {
	if dir == "" || strings.HasSuffix(dir, "/") || strings.HasSuffix(dir, string(os.PathSeparator)) {
		return dir
	}
	return dir + string(os.PathSeparator)
}

// Validate checks value ranges. The log format itself is checked when it is compiled.
func (c *Config) Validate() error {
	m := c.Main

	if m.ReportSize <= 0 {
		return c.invalid("report_size", fmt.Sprintf("must be greater than 0, got %d", m.ReportSize))
	}
	if m.MaxErrorPerc < 0 || m.MaxErrorPerc > 100 {
		return c.invalid("max_error_perc", fmt.Sprintf("must be between 0 and 100, got %g", m.MaxErrorPerc))
	}
	if m.MaxLines < 0 {
		return c.invalid("max_lines", fmt.Sprintf("must not be negative, got %d", m.MaxLines))
	}
	if strings.TrimSpace(m.LogFormat) == "" {
		return c.invalid("log_format", "must not be empty")
	}
	if m.LogDir == "" {
		return c.invalid("log_dir", "must not be empty")
	}
	if m.ReportDir == "" {
		return c.invalid("report_dir", "must not be empty")
	}

	levelOK := false
	for _, l := range logLevels {
		if m.LogLevel == l {
			levelOK = true
			break
		}
	}
	if !levelOK {
		return c.invalid("log_level", fmt.Sprintf("must be one of %s, got %q", strings.Join(logLevels, ", "), m.LogLevel))
	}

	return nil
}

func (c *Config) invalid(key, reason string) error {
	return &Error{Path: c.Source, Key: "main." + key, Reason: reason}
}
