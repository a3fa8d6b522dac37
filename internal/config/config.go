// Package config holds the service configuration: a TOML file merged over
// defaults, with environment variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// LogLevel specifies the logging verbosity.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat specifies the log output format.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// ServerConfig holds HTTP host settings.
type ServerConfig struct {
	// ListenAddr is the host:port the HTTP server binds to.
	ListenAddr string `toml:"listen_addr"`

	// RootPath is an optional path prefix under which the service is
	// mounted, used when building absolute update URLs.
	RootPath string `toml:"root_path"`
}

// InterviewsConfig holds interview definition settings.
type InterviewsConfig struct {
	// ConfigFile is the interviews YAML file, loaded once at startup.
	ConfigFile string `toml:"config_file"`

	// StateTTL is how long issued state tokens stay valid.
	StateTTL time.Duration `toml:"state_ttl"`

	// CheckEmailDomain toggles public-suffix validation of email field
	// domains.
	CheckEmailDomain bool `toml:"check_email_domain"`
}

// EncryptionConfig holds the state token key settings.
type EncryptionConfig struct {
	// KeyFile is a file containing a base64 32-byte key.
	KeyFile string `toml:"key_file"`
}

// HooksConfig holds hook dispatch settings.
type HooksConfig struct {
	// Timeout bounds each hook invocation. Zero means only the request
	// deadline applies.
	Timeout time.Duration `toml:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  LogLevel  `toml:"level"`
	Format LogFormat `toml:"format"`
	File   string    `toml:"file"`
}

// Config is the main configuration struct for the interview service.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Interviews InterviewsConfig `toml:"interviews"`
	Encryption EncryptionConfig `toml:"encryption"`
	Hooks      HooksConfig      `toml:"hooks"`
	Logging    LoggingConfig    `toml:"logging"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8000",
			RootPath:   "",
		},
		Interviews: InterviewsConfig{
			ConfigFile:       "interviews.yml",
			StateTTL:         1800 * time.Second,
			CheckEmailDomain: true,
		},
		Encryption: EncryptionConfig{
			KeyFile: "",
		},
		Hooks: HooksConfig{
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatJSON,
			File:   "",
		},
	}
}

// Load loads configuration from file, merging with defaults and then
// applying environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil // Use defaults if no config file
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides deployment settings from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("PARLEY_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("PARLEY_ROOT_PATH"); v != "" {
		c.Server.RootPath = v
	}
	if v := os.Getenv("PARLEY_CONFIG_FILE"); v != "" {
		c.Interviews.ConfigFile = v
	}
	if v := os.Getenv("PARLEY_ENCRYPTION_KEY_FILE"); v != "" {
		c.Encryption.KeyFile = v
	}
	if v := os.Getenv("PARLEY_STATE_TTL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Interviews.StateTTL = time.Duration(secs) * time.Second
		}
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.Interviews.ConfigFile == "" {
		return fmt.Errorf("config_file is required")
	}
	if c.Encryption.KeyFile == "" {
		return fmt.Errorf("key_file is required")
	}
	if c.Interviews.StateTTL <= 0 {
		return fmt.Errorf("state_ttl must be positive")
	}
	return nil
}

// InterviewsFile returns the absolute interviews file path.
func (c *Config) InterviewsFile(baseDir string) string {
	if filepath.IsAbs(c.Interviews.ConfigFile) {
		return c.Interviews.ConfigFile
	}
	return filepath.Join(baseDir, c.Interviews.ConfigFile)
}

// KeyFile returns the absolute encryption key file path.
func (c *Config) KeyFile(baseDir string) string {
	if filepath.IsAbs(c.Encryption.KeyFile) {
		return c.Encryption.KeyFile
	}
	return filepath.Join(baseDir, c.Encryption.KeyFile)
}

// LogFile returns the absolute log file path, or "" when logging only to
// stderr.
func (c *Config) LogFile(baseDir string) string {
	if c.Logging.File == "" || filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(baseDir, c.Logging.File)
}
