package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Host: "localhost", Name: "clinic"},
		JWT:      JWTConfig{Secret: "s"},
		Events:   EventsConfig{Broker: "redis"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWT.Secret = "" }, wantErr: "jwt.secret"},
		{name: "missing database", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: "database.host"},
		{name: "rabbitmq broker", mutate: func(c *Config) { c.Events.Broker = "rabbitmq" }},
		{name: "unknown broker", mutate: func(c *Config) { c.Events.Broker = "kafka" }, wantErr: "events.broker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CLINIC_JWT_SECRET", "from-env")
	t.Setenv("CLINIC_DATABASE_HOST", "db")
	t.Setenv("CLINIC_DATABASE_NAME", "clinic")
	t.Setenv("CLINIC_OUTBOX_BATCH_SIZE", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 7, cfg.Outbox.BatchSize)
	assert.Equal(t, 5432, cfg.Database.Port, "defaults survive")
	assert.Equal(t, "redis", cfg.Events.Broker)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
}

func TestToRouterConfig(t *testing.T) {
	c := validConfig()
	c.Server.Mode = "test"
	c.Server.AllowedOrigins = []string{"https://portal.example.com"}
	c.RateLimit = RateLimitConfig{Enabled: true, RequestsPerSecond: 3, Burst: 6, ClientTTL: time.Minute}

	rc := c.ToRouterConfig()
	assert.Equal(t, "test", rc.Mode)
	assert.True(t, rc.RateLimitEnabled)
	assert.Equal(t, []string{"https://portal.example.com"}, rc.CORSConfig.AllowOrigins)
	assert.Equal(t, rate.Limit(3), rc.RateLimit.Rate)
	assert.Equal(t, 6, rc.RateLimit.Burst)
	assert.Equal(t, time.Minute, rc.RateLimit.TTL)
}

func TestToWorkerConfig(t *testing.T) {
	c := OutboxConfig{BatchSize: 10, PollInterval: time.Second, RetryAttempts: 2, RetryDelay: time.Millisecond}
	wc := c.ToWorkerConfig()
	assert.Equal(t, 10, wc.BatchSize)
	assert.Equal(t, 2, wc.RetryAttempts)
}
