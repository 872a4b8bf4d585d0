package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("BACKEND_MODE", "")
	t.Setenv("SESSION_STORE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMock, cfg.Backend.Mode)
	assert.Equal(t, SessionStoreMemory, cfg.Session.Store)
	assert.Equal(t, "busticket_session", cfg.Session.CookieName)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
	assert.False(t, cfg.Security.SecureCookies)
	assert.Equal(t, "Africa/Kigali", cfg.Server.Timezone)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_MODE", "REMOTE")
	t.Setenv("API_BASE_URL", "https://api.busticket.rw/")
	t.Setenv("API_TIMEOUT_SECONDS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://busticket.rw, https://www.busticket.rw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendRemote, cfg.Backend.Mode)
	assert.Equal(t, "https://api.busticket.rw", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"https://busticket.rw", "https://www.busticket.rw"}, cfg.CORS.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{Environment: "development"},
			Backend: BackendConfig{Mode: BackendMock},
			Session: SessionConfig{Store: SessionStoreMemory, CookieName: "busticket_session"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"Production mock without secret", func(c *Config) { c.Server.Environment = "production" }, "JWT_SECRET"},
		{"Remote without scheme", func(c *Config) {
			c.Backend.Mode = BackendRemote
			c.Backend.BaseURL = "api.busticket.rw"
		}, "API_BASE_URL"},
		{"Unknown backend", func(c *Config) { c.Backend.Mode = "grpc" }, "BACKEND_MODE"},
		{"SQL store without database", func(c *Config) { c.Session.Store = SessionStoreSQLite }, "DATABASE_URL"},
		{"Unknown store", func(c *Config) { c.Session.Store = "redis" }, "SESSION_STORE"},
		{"Empty cookie name", func(c *Config) { c.Session.CookieName = "" }, "SESSION_COOKIE_NAME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
