package pushkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, EnvironmentRelease, cfg.Environment)
	assert.Equal(t, 3, cfg.MaxRetryAttempts)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, StorageTypeKeyring, cfg.Storage.Type)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Default()
		require.NoError(t, err)
		cfg.APIKey = "pk-test"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "empty api key", mutate: func(c *Config) { c.APIKey = "" }, wantErr: true},
		{name: "unknown environment", mutate: func(c *Config) { c.Environment = "staging" }, wantErr: true},
		{name: "custom without base url", mutate: func(c *Config) { c.Environment = EnvironmentCustom }, wantErr: true},
		{
			name: "custom with base url",
			mutate: func(c *Config) {
				c.Environment = EnvironmentCustom
				c.CustomBaseURL = "https://push.example.com"
			},
			wantErr: false,
		},
		{name: "malformed base url", mutate: func(c *Config) {
			c.Environment = EnvironmentCustom
			c.CustomBaseURL = "not a url"
		}, wantErr: true},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetryAttempts = -1 }, wantErr: true},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "vault" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfiguration)
				assert.False(t, cfg.IsConfigured())
			} else {
				require.NoError(t, err)
				assert.True(t, cfg.IsConfigured())
			}
		})
	}
}

func TestConfigBaseURL(t *testing.T) {
	tests := []struct {
		environment Environment
		custom      string
		want        string
	}{
		{environment: EnvironmentRelease, want: "https://api.pushkit.dev"},
		{environment: EnvironmentReleaseCandidate, want: "https://api-rc.pushkit.dev"},
		{environment: EnvironmentDeveloper, want: "https://api-dev.pushkit.dev"},
		{environment: EnvironmentCustom, custom: "https://push.example.com", want: "https://push.example.com"},
	}

	for _, tt := range tests {
		t.Run(string(tt.environment), func(t *testing.T) {
			cfg := &Config{Environment: tt.environment, CustomBaseURL: tt.custom}

			url, err := cfg.BaseURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, url)
		})
	}

	_, err := (&Config{Environment: EnvironmentCustom}).BaseURL()
	require.Error(t, err)
}
