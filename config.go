package pushkit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/pushkit/internal/securestore"
)

// Environment selects the backend the SDK talks to.
type Environment string

const (
	EnvironmentRelease          Environment = "release"
	EnvironmentReleaseCandidate Environment = "releaseCandidate"
	EnvironmentDeveloper        Environment = "developer"
	EnvironmentCustom           Environment = "custom"
)

// StorageType represents the different storage backends supported for
// persisted token state.
type StorageType string

const (
	StorageTypeKeyring StorageType = "keyring"
	StorageTypeFile    StorageType = "file"
	StorageTypeMemory  StorageType = "memory"
)

// Default configuration values
const (
	DefaultConfigEnvironment      = EnvironmentRelease
	DefaultConfigMaxRetryAttempts = 3
	DefaultConfigRequestTimeout   = 30 * time.Second
	DefaultConfigSessionTimeout   = 30 * time.Minute
	DefaultConfigStorage          = StorageTypeKeyring

	keyringService = "pushkit"
)

// Base URLs per environment.
const (
	baseURLRelease          = "https://api.pushkit.dev"
	baseURLReleaseCandidate = "https://api-rc.pushkit.dev"
	baseURLDeveloper        = "https://api-dev.pushkit.dev"
)

// DeviceMetadata describes the installation the host application runs in.
// The host supplies it already normalized; the SDK never touches platform APIs.
type DeviceMetadata struct {
	Platform    string `json:"platform" validate:"required"`
	AppVersion  string `json:"app_version"`
	BundleID    string `json:"bundle_id"`
	Timezone    string `json:"timezone"`
	Locale      string `json:"locale"`
	OSVersion   string `json:"os_version,omitempty"`
	DeviceModel string `json:"device_model,omitempty"`
}

// StorageConfig describes where persisted token state lives.
type StorageConfig struct {
	Type StorageType `json:"type" validate:"required,oneof=keyring file memory"`

	// Dir is the state directory for file storage.
	Dir string `json:"dir,omitempty"`
}

// NewSecureStore creates a secure store backend from the storage configuration.
func (s *StorageConfig) NewSecureStore() (securestore.Store, error) {
	switch s.Type {
	case StorageTypeKeyring:
		return securestore.NewKeyringStore(keyringService)
	case StorageTypeFile:
		return securestore.NewFileStore(s.Dir)
	case StorageTypeMemory:
		return securestore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Type)
	}
}

// Config holds the SDK's configuration. It is immutable after New: replacing
// any of it requires creating a new Client.
type Config struct {
	// APIKey authenticates every request as a bearer credential.
	APIKey string `json:"api_key" validate:"required"`

	// Environment selects the backend; custom requires BaseURL.
	Environment Environment `json:"environment" validate:"oneof=release releaseCandidate developer custom"`

	// CustomBaseURL is the endpoint root for the custom environment.
	CustomBaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// MaxRetryAttempts bounds retries per logical network call
	// (total attempts = 1 + MaxRetryAttempts).
	MaxRetryAttempts int `json:"max_retry_attempts" validate:"gte=0"`

	// RequestTimeout bounds each transport attempt. Exceeding it is a
	// transport-level failure subject to the retry policy.
	RequestTimeout time.Duration `json:"request_timeout"`

	// SessionTimeout is informational and not enforced by this core.
	SessionTimeout time.Duration `json:"session_timeout"`

	// DebugLogging enables request/response logging at debug level.
	DebugLogging bool `json:"debug_logging"`

	Storage StorageConfig  `json:"storage"`
	Device  DeviceMetadata `json:"device"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.Environment == "" {
		c.Environment = DefaultConfigEnvironment
	}
	if c.MaxRetryAttempts == 0 {
		c.MaxRetryAttempts = DefaultConfigMaxRetryAttempts
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultConfigRequestTimeout
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = DefaultConfigSessionTimeout
	}
	if c.Storage.Type == "" {
		c.Storage.Type = DefaultConfigStorage
	}
	if c.Device.Platform == "" {
		c.Device.Platform = "ios"
	}

	// Dynamic defaults based on storage type
	if c.Storage.Type == StorageTypeFile && c.Storage.Dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("storage.dir required (auto-detect failed: %w)", err)
		}
		c.Storage.Dir = filepath.Join(configDir, "pushkit")
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
// All failures wrap ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	if c.Environment == EnvironmentCustom && c.CustomBaseURL == "" {
		return fmt.Errorf("%w: custom environment requires base_url", ErrInvalidConfiguration)
	}

	if c.Storage.Type == StorageTypeFile && c.Storage.Dir == "" {
		return fmt.Errorf("%w: file storage requires storage.dir", ErrInvalidConfiguration)
	}

	return nil
}

// IsConfigured reports whether the configuration is complete enough to make
// network calls. A Client is never constructed from an unconfigured Config.
func (c *Config) IsConfigured() bool {
	return c.Validate() == nil
}

// BaseURL resolves the endpoint root for the configured environment.
func (c *Config) BaseURL() (string, error) {
	switch c.Environment {
	case EnvironmentRelease:
		return baseURLRelease, nil
	case EnvironmentReleaseCandidate:
		return baseURLReleaseCandidate, nil
	case EnvironmentDeveloper:
		return baseURLDeveloper, nil
	case EnvironmentCustom:
		if c.CustomBaseURL == "" {
			return "", errors.New("custom environment requires base_url")
		}
		return c.CustomBaseURL, nil
	default:
		return "", fmt.Errorf("unknown environment: %s", c.Environment)
	}
}
