package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	"github.com/KaramelBytes/unstructiq-cli/internal/files"
	"github.com/KaramelBytes/unstructiq-cli/internal/logging"
)

// EnvPrefix namespaces environment overrides, e.g. UNSTRUCTIQ_BASE_URL.
const EnvPrefix = "UNSTRUCTIQ"

// Global configuration structure.
type Global struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	LogLevel       string `mapstructure:"log_level" yaml:"log_level"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
	OutputDir      string `mapstructure:"output_dir" yaml:"output_dir"`

	// Processing view
	StageDelayMs int    `mapstructure:"stage_delay_ms" yaml:"stage_delay_ms"`
	ListenAddr   string `mapstructure:"listen_addr" yaml:"listen_addr"`
	ChartWidth   int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight  int    `mapstructure:"chart_height" yaml:"chart_height"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"base_url",
	"http_timeout_sec",
	"log_level",
	"max_upload_bytes",
	"output_dir",
	"stage_delay_ms",
	"listen_addr",
	"chart_width",
	"chart_height",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", api.DefaultBaseURL)
	// Processing can run for minutes; no client timeout unless configured.
	v.SetDefault("http_timeout_sec", 0)
	v.SetDefault("log_level", logging.DefaultLevel)
	v.SetDefault("max_upload_bytes", files.MaxAdvertisedSize)
	v.SetDefault("output_dir", ".")
	v.SetDefault("stage_delay_ms", 800)
	v.SetDefault("listen_addr", "127.0.0.1:5173")
	v.SetDefault("chart_width", 800)
	v.SetDefault("chart_height", 400)
}

// Default returns the built-in configuration, ignoring files and env.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Dir returns ~/.unstructiq.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".unstructiq"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.unstructiq/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including a local .env) > config file > defaults.
// Command-line flags are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	// optional .env in the working directory; real env vars win
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values no command could use.
func (c *Global) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if c.HTTPTimeoutSec < 0 {
		return fmt.Errorf("http_timeout_sec must be >= 0")
	}
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("max_upload_bytes must be >= 0")
	}
	if c.StageDelayMs < 0 {
		return fmt.Errorf("stage_delay_ms must be >= 0")
	}
	return nil
}

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	switch key {
	case "base_url":
		val = strings.TrimRight(strings.TrimSpace(val), "/")
		if val == "" {
			return fmt.Errorf("invalid base_url: empty")
		}
		c.BaseURL = val
	case "http_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for http_timeout_sec: %v", val)
		}
		c.HTTPTimeoutSec = i
	case "log_level":
		switch strings.ToLower(val) {
		case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "max_upload_bytes":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for max_upload_bytes: %v", val)
		}
		c.MaxUploadBytes = i
	case "output_dir":
		c.OutputDir = val
	case "stage_delay_ms":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for stage_delay_ms: %v", val)
		}
		c.StageDelayMs = i
	case "listen_addr":
		c.ListenAddr = val
	case "chart_width", "chart_height":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		if key == "chart_width" {
			c.ChartWidth = i
		} else {
			c.ChartHeight = i
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get returns the string form of one key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "base_url":
		return c.BaseURL, nil
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec), nil
	case "log_level":
		return c.LogLevel, nil
	case "max_upload_bytes":
		return strconv.FormatInt(c.MaxUploadBytes, 10), nil
	case "output_dir":
		return c.OutputDir, nil
	case "stage_delay_ms":
		return strconv.Itoa(c.StageDelayMs), nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "chart_width":
		return strconv.Itoa(c.ChartWidth), nil
	case "chart_height":
		return strconv.Itoa(c.ChartHeight), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}
