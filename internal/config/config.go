// Package config provides Viper-based configuration management for dojoctl
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete dojoctl configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// ServerConfig contains DojoDesk API settings
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig contains credential storage settings
type SessionConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Colors bool `mapstructure:"colors"`
}

// Load reads configuration from file and environment variables.
// Priority: flags (bound by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".dojoctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/dojoctl")
	}

	// Environment variables: DOJOCTL_SERVER_URL etc.
	v.SetEnvPrefix("DOJOCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "http://localhost:8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("session.credentials_file", defaultCredentialsFile())
	v.SetDefault("logging.level", "info")
	v.SetDefault("output.colors", true)
}

// defaultCredentialsFile returns ~/.dojoctl/credentials.json, falling
// back to a relative path when the home directory is unknown.
func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dojoctl-credentials.json"
	}
	return filepath.Join(home, ".dojoctl", "credentials.json")
}

func validate(cfg *Config) error {
	if err := validateServerURL(cfg.Server.URL); err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if cfg.Session.CredentialsFile == "" {
		return errors.New("session.credentials_file cannot be empty")
	}
	return nil
}

// validateServerURL validates that the server URL is properly formatted
func validateServerURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("server URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must include a host")
	}

	return nil
}

// PlaintextWarning returns a warning string when the server URL uses
// plain HTTP, or "" otherwise.
func (c *Config) PlaintextWarning() string {
	if strings.HasPrefix(strings.ToLower(c.Server.URL), "http://") {
		return "WARNING: Using HTTP instead of HTTPS. Credentials will be transmitted in plaintext!"
	}
	return ""
}
