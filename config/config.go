package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/router"
	"github.com/jwalitptl/clinic-api/internal/telemetry"
	"github.com/jwalitptl/clinic-api/pkg/messaging/rabbitmq"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/videoroom"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode" split_words:"true"`
	MaxOpenConns int    `mapstructure:"max_open_conns" split_words:"true"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" split_words:"true"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" split_words:"true"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" split_words:"true"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes" split_words:"true"`
	// AllowedOrigins enables CORS for browser clients; empty disables it.
	AllowedOrigins []string `mapstructure:"allowed_origins" split_words:"true"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" split_words:"true"`
	Burst             int           `mapstructure:"burst"`
	ClientTTL         time.Duration `mapstructure:"client_ttl" split_words:"true"`
}

type OutboxConfig struct {
	BatchSize     int           `mapstructure:"batch_size" split_words:"true"`
	PollInterval  time.Duration `mapstructure:"poll_interval" split_words:"true"`
	RetryAttempts int           `mapstructure:"retry_attempts" split_words:"true"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" split_words:"true"`
	Retention     time.Duration `mapstructure:"retention"`
	// MetricsAddr serves the worker's health and metrics endpoints.
	MetricsAddr string `mapstructure:"metrics_addr" split_words:"true"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries" split_words:"true"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff" split_words:"true"`
	PoolSize     int           `mapstructure:"pool_size" split_words:"true"`
	MinIdleConns int           `mapstructure:"min_idle_conns" split_words:"true"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type EventsConfig struct {
	// Broker selects the outbox sink: "redis" or "rabbitmq".
	Broker string `mapstructure:"broker"`
}

type VideoConfig struct {
	BaseURL      string        `mapstructure:"base_url" split_words:"true"`
	APIKey       string        `mapstructure:"api_key" split_words:"true"`
	APISecret    string        `mapstructure:"api_secret" split_words:"true"`
	JoinBaseURL  string        `mapstructure:"join_base_url" split_words:"true"`
	Timeout      time.Duration `mapstructure:"timeout"`
	TokenTTL     time.Duration `mapstructure:"token_ttl" split_words:"true"`
	BreakerTrips uint32        `mapstructure:"breaker_trips" split_words:"true"`
}

type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name" split_words:"true"`
	SampleRatio float64 `mapstructure:"sample_ratio" split_words:"true"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" split_words:"true"`
	Outbox    OutboxConfig    `mapstructure:"outbox"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq" split_words:"true"`
	Events    EventsConfig    `mapstructure:"events"`
	Video     VideoConfig     `mapstructure:"video"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// envPrefix scopes environment overrides, e.g. CLINIC_DATABASE_HOST.
const envPrefix = "CLINIC"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("jwt.issuer", "clinic-api")
	v.SetDefault("jwt.ttl", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.client_ttl", 10*time.Minute)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.retry_attempts", 3)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.metrics_addr", ":8081")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "clinic.events")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("rabbitmq.exchange", "clinic.events")
	v.SetDefault("events.broker", "redis")
	v.SetDefault("video.timeout", 10*time.Second)
	v.SetDefault("video.token_ttl", 2*time.Hour)
	v.SetDefault("video.breaker_trips", 5)
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "clinic-api")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// LoadConfig reads config.yml from the usual locations, then applies
// CLINIC_* environment overrides. A missing file is not an error.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")           // current directory
	v.AddConfigPath("./config")    // config subdirectory
	v.AddConfigPath("/app")        // container root directory
	v.AddConfigPath("/app/config") // container config directory
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := envconfig.Process(envPrefix, &config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required")
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("database.host and database.name are required")
	}
	switch c.Events.Broker {
	case "redis", "rabbitmq":
	default:
		return fmt.Errorf("events.broker must be redis or rabbitmq, got %q", c.Events.Broker)
	}
	return nil
}

func (c *OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:     c.BatchSize,
		PollInterval:  c.PollInterval,
		RetryAttempts: c.RetryAttempts,
		RetryDelay:    c.RetryDelay,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		Channel:      c.Channel,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *RabbitMQConfig) ToBrokerConfig() rabbitmq.Config {
	return rabbitmq.Config{
		URL:      c.URL,
		Exchange: c.Exchange,
	}
}

func (c *VideoConfig) ToClientConfig() videoroom.Config {
	return videoroom.Config{
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		APISecret:    c.APISecret,
		JoinBaseURL:  c.JoinBaseURL,
		Timeout:      c.Timeout,
		TokenTTL:     c.TokenTTL,
		BreakerTrips: c.BreakerTrips,
	}
}

func (c *TelemetryConfig) ToProviderConfig(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Enabled,
		ServiceName:    c.ServiceName,
		ServiceVersion: version,
		Endpoint:       c.Endpoint,
		SampleRatio:    c.SampleRatio,
	}
}

// ToRouterConfig overlays server and rate limit settings on the router
// defaults.
func (c *Config) ToRouterConfig() router.RouterConfig {
	rc := router.DefaultRouterConfig()
	if c.Server.Mode != "" {
		rc.Mode = c.Server.Mode
	}
	if c.Telemetry.ServiceName != "" {
		rc.ServiceName = c.Telemetry.ServiceName
	}
	rc.CORSConfig.AllowOrigins = c.Server.AllowedOrigins
	rc.RateLimitEnabled = c.RateLimit.Enabled
	if c.RateLimit.RequestsPerSecond > 0 {
		rc.RateLimit.Rate = rate.Limit(c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst > 0 {
		rc.RateLimit.Burst = c.RateLimit.Burst
	}
	if c.RateLimit.ClientTTL > 0 {
		rc.RateLimit.TTL = c.RateLimit.ClientTTL
	}
	return rc
}
