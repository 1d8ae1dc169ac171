package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the AI Checker server.
type Config struct {
	Server  ServerConfig
	FinChat FinChatConfig
	Redis   RedisConfig
	Jobs    JobsConfig
	CORS    CORSConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

// FinChatConfig describes the remote analysis gateway.
type FinChatConfig struct {
	BaseURL      string
	APIToken     string
	Protocol     string // "v1" or "v2"
	COTSlug      string
	SessionID    string // pre-existing COT session id, required for v2
	ParamName    string // "text" or "paragraph", used by v2 payloads
	Purpose      string
	PatternsPath string

	HTTPTimeout  time.Duration
	PollInterval time.Duration
	MaxAttempts  int
	PollTimeout  time.Duration
}

// Configured reports whether the gateway can be reached at all. The
// server starts without a base URL; the analysis endpoints check this
// and reject submissions until it is set.
func (c FinChatConfig) Configured() bool {
	return c.BaseURL != ""
}

type RedisConfig struct {
	URL string
}

type JobsConfig struct {
	// MaxConcurrent bounds the number of analysis workers running at once.
	// Zero means unbounded, matching the historical one-worker-per-job model.
	MaxConcurrent int
	StatusTTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

var validProtocols = map[string]bool{
	"v1": true,
	"v2": true,
}

var validParamNames = map[string]bool{
	"text":      true,
	"paragraph": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("AICHECKER_PORT", 8080),
			Env:  envString("AICHECKER_ENV", "development"),
		},
		FinChat: FinChatConfig{
			BaseURL:      strings.TrimRight(os.Getenv("FINCHAT_BASE_URL"), "/"),
			APIToken:     os.Getenv("FINCHAT_API_TOKEN"),
			Protocol:     envString("FINCHAT_PROTOCOL", "v1"),
			COTSlug:      envString("FINCHAT_COT_SLUG", "ai-detector-v2"),
			SessionID:    os.Getenv("FINCHAT_SESSION_ID"),
			ParamName:    envString("FINCHAT_PARAM_NAME", "text"),
			Purpose:      envString("FINCHAT_PURPOSE", "AI detection for content analysis"),
			PatternsPath: os.Getenv("FINCHAT_PATTERNS_PATH"),
			HTTPTimeout:  envDurationSecs("FINCHAT_HTTP_TIMEOUT_SECS", 30*time.Second),
			PollInterval: envDurationSecs("FINCHAT_POLL_INTERVAL_SECS", 5*time.Second),
			MaxAttempts:  envInt("FINCHAT_MAX_ATTEMPTS", 200),
			PollTimeout:  envDurationSecs("FINCHAT_POLL_TIMEOUT_SECS", 1200*time.Second),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Jobs: JobsConfig{
			MaxConcurrent: envInt("AICHECKER_MAX_CONCURRENT_JOBS", 0),
			StatusTTL:     envDuration("AICHECKER_JOB_STATUS_TTL", 30*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("AICHECKER_CORS_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	// An empty base URL is allowed: the server starts and the analysis
	// endpoints answer with a configuration error until it is set.
	if c.FinChat.BaseURL != "" && !strings.HasPrefix(c.FinChat.BaseURL, "http://") && !strings.HasPrefix(c.FinChat.BaseURL, "https://") {
		return fmt.Errorf("FINCHAT_BASE_URL must start with http:// or https://, got %q", c.FinChat.BaseURL)
	}

	if !validProtocols[c.FinChat.Protocol] {
		return fmt.Errorf("FINCHAT_PROTOCOL must be v1 or v2; got %q", c.FinChat.Protocol)
	}
	if c.FinChat.Protocol == "v2" && c.FinChat.SessionID == "" {
		return fmt.Errorf("FINCHAT_SESSION_ID is required when FINCHAT_PROTOCOL is v2")
	}

	if !validParamNames[c.FinChat.ParamName] {
		return fmt.Errorf("FINCHAT_PARAM_NAME must be text or paragraph; got %q", c.FinChat.ParamName)
	}

	if c.FinChat.PollInterval <= 0 {
		return fmt.Errorf("FINCHAT_POLL_INTERVAL_SECS must be positive")
	}
	if c.FinChat.MaxAttempts <= 0 {
		return fmt.Errorf("FINCHAT_MAX_ATTEMPTS must be positive")
	}
	if c.FinChat.PollTimeout <= 0 {
		return fmt.Errorf("FINCHAT_POLL_TIMEOUT_SECS must be positive")
	}

	if c.Jobs.MaxConcurrent < 0 {
		return fmt.Errorf("AICHECKER_MAX_CONCURRENT_JOBS must not be negative")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
