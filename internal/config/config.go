package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
)

// Run modes of the server binary. ModeBoth also runs an agent in-process against the
// local control plane.
const (
	ModeServer = "server"
	ModeBoth   = "both"
)

type ServerConfig struct {
	Mode                 string
	ServerAddr           string
	DatabasePath         string
	AdminCredentialsPath string
	AdminUsername        string
	AdminPasswordHash    string
	HeartbeatInterval    time.Duration
	SweepInterval        time.Duration
	FlushInterval        time.Duration
	CommandTTL           time.Duration
	SessionTTL           time.Duration
	KeepAliveInterval    time.Duration
	RedisHost            string
	RedisPort            int
	RedisPassword        string
	RedisDB              int
}

// RedisEnabled reports whether notifications fan out through redis instead of in-process.
func (c *ServerConfig) RedisEnabled() bool {
	return c.RedisHost != ""
}

type AgentConfig struct {
	ServerURL         string
	APIKey            string
	AgentAddr         string
	HeartbeatInterval time.Duration
	RequestTimeout    time.Duration
	CommandBatch      int
	LiveEnabled       bool
	// Delivery retry: attempt × DeliveryBaseDelay between attempts
	DeliveryMaxAttempts int
	DeliveryBaseDelay   time.Duration
	// Connect retry configuration
	ConnectMaxRetries        int
	ConnectInitialBackoff    time.Duration
	ConnectMaxBackoff        time.Duration
	ConnectBackoffMultiplier float64
}

// fileConfig mirrors the keys accepted in the agent's JSON config file.
type fileConfig struct {
	ServerURL         *string `json:"serverUrl"`
	APIKey            *string `json:"apiKey"`
	HeartbeatInterval *int    `json:"heartbeatInterval"`
}

// LoadDotEnv loads a .env file into the process environment when one exists. Variables
// already set win over the file.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("%w: load %s: %v", apperror.ErrConfig, p, err)
		}
	}
	return nil
}

// LoadServerConfig reads server config from environment or returns defaults
func LoadServerConfig() (*ServerConfig, error) {
	p := &parser{}
	cfg := &ServerConfig{
		Mode:                 envOrDefault("NEXUS_MODE", ModeServer),
		ServerAddr:           envOrDefault("SERVER_ADDR", ":8000"),
		DatabasePath:         envOrDefault("DATABASE_PATH", "./data/nexus.db"),
		AdminCredentialsPath: envOrDefault("ADMIN_CREDENTIALS_PATH", "./db/admin.json"),
		AdminUsername:        os.Getenv("ADMIN_USERNAME"),
		AdminPasswordHash:    os.Getenv("ADMIN_PASSWORD_HASH"),
		HeartbeatInterval:    p.duration("HEARTBEAT_INTERVAL", 10*time.Second),
		SweepInterval:        p.duration("SWEEP_INTERVAL", 5*time.Second),
		FlushInterval:        p.duration("FLUSH_INTERVAL", 5*time.Second),
		CommandTTL:           p.duration("COMMAND_TTL", 5*time.Minute),
		SessionTTL:           p.duration("SESSION_TTL", time.Hour),
		KeepAliveInterval:    p.duration("KEEPALIVE_INTERVAL", 5*time.Second),
		RedisHost:            os.Getenv("REDIS_HOST"),
		RedisPort:            p.int("REDIS_PORT", 6379),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              p.int("REDIS_DB", 0),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServerConfig) validate() error {
	durations := map[string]time.Duration{
		"HEARTBEAT_INTERVAL": c.HeartbeatInterval,
		"SWEEP_INTERVAL":     c.SweepInterval,
		"FLUSH_INTERVAL":     c.FlushInterval,
		"COMMAND_TTL":        c.CommandTTL,
		"SESSION_TTL":        c.SessionTTL,
		"KEEPALIVE_INTERVAL": c.KeepAliveInterval,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", apperror.ErrConfig, key)
		}
	}
	if c.ServerAddr == "" || c.DatabasePath == "" {
		return fmt.Errorf("%w: SERVER_ADDR and DATABASE_PATH are required", apperror.ErrConfig)
	}
	if c.Mode != ModeServer && c.Mode != ModeBoth {
		return fmt.Errorf("%w: NEXUS_MODE must be %s or %s, got %q", apperror.ErrConfig, ModeServer, ModeBoth, c.Mode)
	}
	return nil
}

// LoadAgentConfig reads agent config from environment, then overlays the JSON file named
// by NEXUS_CONFIG_FILE (default config.json) when it exists.
func LoadAgentConfig() (*AgentConfig, error) {
	p := &parser{}
	cfg := &AgentConfig{
		ServerURL:                envOrDefault("NEXUS_SERVER_URL", "http://localhost:8000"),
		APIKey:                   os.Getenv("NEXUS_API_KEY"),
		AgentAddr:                envOrDefault("AGENT_ADDR", ":8081"),
		HeartbeatInterval:        p.duration("HEARTBEAT_INTERVAL", 10*time.Second),
		RequestTimeout:           p.duration("REQUEST_TIMEOUT", 5*time.Second),
		CommandBatch:             p.int("COMMAND_BATCH", 10),
		LiveEnabled:              p.bool("LIVE_ENABLED", true),
		DeliveryMaxAttempts:      p.int("DELIVERY_MAX_ATTEMPTS", 3),
		DeliveryBaseDelay:        p.duration("DELIVERY_BASE_DELAY", 1500*time.Millisecond),
		ConnectMaxRetries:        p.int("CONNECT_MAX_RETRIES", 5),
		ConnectInitialBackoff:    p.duration("CONNECT_INITIAL_BACKOFF", time.Second),
		ConnectMaxBackoff:        p.duration("CONNECT_MAX_BACKOFF", 30*time.Second),
		ConnectBackoffMultiplier: p.float("CONNECT_BACKOFF_MULTIPLIER", 2.0),
	}
	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.overlayFile(envOrDefault("NEXUS_CONFIG_FILE", "config.json")); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AgentConfig) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", apperror.ErrConfig, path, err)
	}
	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("%w: parse %s: %v", apperror.ErrConfig, path, err)
	}
	if fc.ServerURL != nil {
		c.ServerURL = *fc.ServerURL
	}
	if fc.APIKey != nil {
		c.APIKey = *fc.APIKey
	}
	if fc.HeartbeatInterval != nil {
		c.HeartbeatInterval = time.Duration(*fc.HeartbeatInterval) * time.Second
	}
	return nil
}

func (c *AgentConfig) validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid server url %q", apperror.ErrConfig, c.ServerURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: server url scheme must be http or https", apperror.ErrConfig)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: NEXUS_API_KEY is required", apperror.ErrConfig)
	}
	if c.HeartbeatInterval <= 0 || c.RequestTimeout <= 0 || c.DeliveryBaseDelay <= 0 {
		return fmt.Errorf("%w: intervals must be positive", apperror.ErrConfig)
	}
	if c.DeliveryMaxAttempts < 1 {
		return fmt.Errorf("%w: DELIVERY_MAX_ATTEMPTS must be at least 1", apperror.ErrConfig)
	}
	if c.CommandBatch < 1 {
		return fmt.Errorf("%w: COMMAND_BATCH must be at least 1", apperror.ErrConfig)
	}
	return nil
}

// parser records the first malformed variable instead of silently using the default.
type parser struct {
	err error
}

func (p *parser) fail(key, v string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: invalid value %q for %s", apperror.ErrConfig, v, key)
	}
}

// duration accepts Go duration strings ("1500ms") or bare integers as seconds.
func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return d
}

func (p *parser) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return i
}

func (p *parser) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v)
		return def
	}
	return b
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
