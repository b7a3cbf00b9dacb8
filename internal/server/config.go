// Package server provides configuration helpers that define runtime defaults,
// validation, and environment overrides for the GoChat service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Tyrowin/gochat/internal/chat"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `yaml:"burst"`
	RefillInterval time.Duration `yaml:"refill_interval"`
}

// NATSConfig enables the cross-instance relay when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// RedisConfig enables the presence directory when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Config holds the server configuration settings.
type Config struct {
	// Port is the TCP chat listen address.
	Port string `yaml:"port"`
	// HTTPPort serves health, metrics and the WebSocket gateway. Empty disables it.
	HTTPPort        string          `yaml:"http_port"`
	AllowedOrigins  []string        `yaml:"allowed_origins"`
	MaxMessageSize  int             `yaml:"max_message_size"`
	Framing         string          `yaml:"framing"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	LogLevel        string          `yaml:"log_level"`
	NodeID          string          `yaml:"node_id"`
	NATS            NATSConfig      `yaml:"nats"`
	Redis           RedisConfig     `yaml:"redis"`
}

const (
	defaultPort           = ":5000"
	defaultHTTPPort       = ":8080"
	defaultMaxMessageSize = 1024
	defaultNATSSubject    = "gochat.broadcast"
)

func defaultConfig() Config {
	return Config{
		Port:     defaultPort,
		HTTPPort: defaultHTTPPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: defaultMaxMessageSize,
		Framing:        string(chat.FramingChunk),
		RateLimit: RateLimitConfig{
			Burst:          20,
			RefillInterval: time.Second,
		},
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		LogLevel:        "info",
		NATS: NATSConfig{
			Subject: defaultNATSSubject,
		},
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := NewConfig()
	cfg.ApplyEnv()
	return cfg
}

// LoadConfigFile reads a YAML file over the defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Port = port
	}

	if port, ok := os.LookupEnv("HTTP_PORT"); ok {
		c.HTTPPort = parseHTTPPort(port)
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		c.MaxMessageSize = parseIntValue(maxSize, c.MaxMessageSize)
	}

	if framing := os.Getenv("MESSAGE_FRAMING"); framing != "" {
		c.Framing = framing
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		c.RateLimit.Burst = parseNonNegativeInt(burst, c.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		c.RateLimit.RefillInterval = parseSeconds(interval, c.RateLimit.RefillInterval)
	}

	if idle := os.Getenv("IDLE_TIMEOUT"); idle != "" {
		c.IdleTimeout = parseSeconds(idle, c.IdleTimeout)
	}

	if write := os.Getenv("WRITE_TIMEOUT"); write != "" {
		c.WriteTimeout = parseSeconds(write, c.WriteTimeout)
	}

	if shutdown := os.Getenv("SHUTDOWN_TIMEOUT"); shutdown != "" {
		c.ShutdownTimeout = parseSeconds(shutdown, c.ShutdownTimeout)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}

	if node := os.Getenv("NODE_ID"); node != "" {
		c.NodeID = node
	}

	if url := os.Getenv("NATS_URL"); url != "" {
		c.NATS.URL = url
	}
	if subject := os.Getenv("NATS_SUBJECT"); subject != "" {
		c.NATS.Subject = subject
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		c.Redis.DB = parseNonNegativeInt(db, c.Redis.DB)
	}
}

// Sanitized returns a copy with invalid or missing values replaced by defaults.
func (c Config) Sanitized() Config {
	def := defaultConfig()

	c.Port = normalizeAddr(c.Port)
	if c.Port == "" {
		c.Port = def.Port
	}
	c.HTTPPort = normalizeAddr(c.HTTPPort)

	switch {
	case c.MaxMessageSize <= 0:
		c.MaxMessageSize = def.MaxMessageSize
	case c.MaxMessageSize < chat.MinBufferSize:
		c.MaxMessageSize = chat.MinBufferSize
	}

	if c.RateLimit.Burst < 0 {
		c.RateLimit.Burst = 0
	}
	if c.RateLimit.RefillInterval <= 0 {
		c.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}

	if c.IdleTimeout < 0 {
		c.IdleTimeout = 0
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}

	if c.NATS.Subject == "" {
		c.NATS.Subject = def.NATS.Subject
	}
	if c.NodeID == "" {
		c.NodeID = defaultNodeID()
	}

	c.AllowedOrigins = append([]string(nil), c.AllowedOrigins...)
	return c
}

// ChatOptions converts the configuration into handler options.
func (c Config) ChatOptions() (chat.Options, error) {
	framing, err := chat.ParseFraming(c.Framing)
	if err != nil {
		return chat.Options{}, errors.Wrap(err, "invalid framing")
	}
	return chat.Options{
		BufferSize: c.MaxMessageSize,
		Framing:    framing,
		RateLimit: chat.RateLimit{
			Burst:          c.RateLimit.Burst,
			RefillInterval: c.RateLimit.RefillInterval,
		},
		IdleTimeout:  c.IdleTimeout,
		WriteTimeout: c.WriteTimeout,
	}, nil
}

func defaultNodeID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()
}

// normalizeAddr turns a bare port number into a listen address on all interfaces.
func normalizeAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if _, err := strconv.Atoi(addr); err == nil {
		return ":" + addr
	}
	return addr
}

func parseHTTPPort(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "off", "none", "disabled":
		return ""
	}
	return value
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseNonNegativeInt(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed >= 0 {
		return parsed
	}
	return defaultValue
}

// parseSeconds accepts whole seconds ("30") or a Go duration ("1m30s").
func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	return defaultValue
}
