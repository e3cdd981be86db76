// Package config provides configuration management for the fulfillment
// client. It handles loading and parsing YAML configuration files, applies
// environment-variable overrides for secrets, and fails fast with a
// configuration error when a required field is absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/orderforge/spapi-fulfill/internal/errors"
)

// Config represents the application's configuration, loaded from a YAML file.
// Required fields are validated at load time; optional fields fall back to
// documented defaults.
type Config struct {
	// Endpoint is the fulfillment API host, without scheme
	// (e.g. "sellingpartnerapi-na.amazon.com").
	Endpoint string `yaml:"endpoint"`

	// Region is the AWS region used in the SigV4 credential scope.
	Region string `yaml:"region"`

	// AccessKeyID and SecretAccessKey sign outbound requests.
	AccessKeyID     string `yaml:"access-key-id"`
	SecretAccessKey string `yaml:"secret-access-key"`

	// SessionToken is set when temporary credentials are in use (optional).
	SessionToken string `yaml:"session-token,omitempty"`

	// UserAgent identifies this client on outbound requests (optional).
	UserAgent string `yaml:"user-agent,omitempty"`

	// OAuth holds the refresh-token grant credentials.
	OAuth OAuthConfig `yaml:"oauth"`

	// Logging configures log level and optional rotating file output.
	Logging LoggingConfig `yaml:"logging,omitempty"`

	// Store configures the local order-record database.
	Store StoreConfig `yaml:"store,omitempty"`
}

// OAuthConfig holds the credentials for the refresh-token grant.
type OAuthConfig struct {
	// ClientID and ClientSecret identify the OAuth client application.
	ClientID     string `yaml:"client-id"`
	ClientSecret string `yaml:"client-secret"`

	// RefreshToken is the long-lived credential exchanged for access tokens.
	RefreshToken string `yaml:"refresh-token"`

	// TokenEndpoint overrides the default token endpoint (optional).
	TokenEndpoint string `yaml:"token-endpoint,omitempty"`
}

// LoggingConfig configures the shared logger.
type LoggingConfig struct {
	// Level is the logrus level name ("debug", "info", ...). Empty means info.
	Level string `yaml:"level,omitempty"`

	// File enables rotating file output when set; empty logs to stderr only.
	File string `yaml:"file,omitempty"`

	// MaxSizeMB is the rotation threshold for the log file. <= 0 means 20.
	MaxSizeMB int `yaml:"max-size-mb,omitempty"`

	// MaxBackups is the number of rotated files to keep. <= 0 means 3.
	MaxBackups int `yaml:"max-backups,omitempty"`
}

// StoreConfig configures the local order-record store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables the store.
	Path string `yaml:"path,omitempty"`
}

// applyEnvOverrides applies environment-variable overrides so secrets can
// stay out of the YAML file.
func (c *Config) applyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"SPAPI_ENDPOINT", &c.Endpoint},
		{"SPAPI_REGION", &c.Region},
		{"SPAPI_ACCESS_KEY_ID", &c.AccessKeyID},
		{"SPAPI_SECRET_ACCESS_KEY", &c.SecretAccessKey},
		{"SPAPI_SESSION_TOKEN", &c.SessionToken},
		{"SPAPI_OAUTH_CLIENT_ID", &c.OAuth.ClientID},
		{"SPAPI_OAUTH_CLIENT_SECRET", &c.OAuth.ClientSecret},
		{"SPAPI_OAUTH_REFRESH_TOKEN", &c.OAuth.RefreshToken},
		{"SPAPI_OAUTH_TOKEN_ENDPOINT", &c.OAuth.TokenEndpoint},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// LoadConfig reads and parses the YAML configuration at path, applies
// environment overrides, and validates required fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyEnvOverrides()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every required field is present, failing with a
// configuration error naming the first missing one.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"endpoint", c.Endpoint},
		{"region", c.Region},
		{"access-key-id", c.AccessKeyID},
		{"secret-access-key", c.SecretAccessKey},
		{"oauth.client-id", c.OAuth.ClientID},
		{"oauth.client-secret", c.OAuth.ClientSecret},
		{"oauth.refresh-token", c.OAuth.RefreshToken},
	}
	for _, field := range required {
		if field.value == "" {
			return apperrors.NewConfiguration(fmt.Sprintf("missing required configuration: %s", field.name))
		}
	}
	return nil
}
