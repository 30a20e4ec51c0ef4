package chorus

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultBaseURL           = "https://api.chorus.ai"
	defaultWSEndpoint        = "wss://api.chorus.ai/v1/chat/stream"
	defaultRequestTimeout    = 30 * time.Second
	defaultKeepaliveInterval = 30 * time.Second
)

// ClientConfig configures a Client. Zero values are filled by
// NewClientConfig; Validate rejects configurations the client cannot run
// with.
type ClientConfig struct {
	// APIKey authenticates directly, or against the token endpoint when
	// UseTokenAuth is set.
	APIKey string `json:"api_key,omitempty"`
	// BaseURL is the HTTP API root.
	BaseURL string `json:"base_url"`
	// WSEndpoint is the chat streaming endpoint.
	WSEndpoint string `json:"ws_endpoint"`
	// TokenEndpoint issues short-lived access tokens. Required when
	// UseTokenAuth is true.
	TokenEndpoint string `json:"token_endpoint,omitempty"`
	// UseTokenAuth exchanges the API key for bearer tokens instead of
	// sending the key on every call.
	UseTokenAuth bool `json:"use_token_auth"`
	// Headers are sent with every HTTP request.
	Headers map[string]string `json:"headers,omitempty"`
	// Timeout is the default per-attempt HTTP timeout.
	Timeout time.Duration `json:"timeout"`
	// KeepaliveInterval is the WebSocket ping cadence.
	KeepaliveInterval time.Duration `json:"keepalive_interval"`
	// Retry is the default retry policy. Nil selects DefaultRetryPolicy.
	Retry *RetryPolicy `json:"-"`
	// LogLevel is one of "trace", "debug", "info", "warn", "error".
	LogLevel string `json:"log_level"`
	// DebugWebSocket logs every frame sent and received.
	DebugWebSocket bool `json:"debug_websocket"`
}

// NewClientConfig returns a configuration populated from defaults and the
// CHORUS_* environment (a .env file is honored when present).
func NewClientConfig() *ClientConfig {
	c := &ClientConfig{
		BaseURL:           defaultBaseURL,
		WSEndpoint:        defaultWSEndpoint,
		Timeout:           defaultRequestTimeout,
		KeepaliveInterval: defaultKeepaliveInterval,
		LogLevel:          "info",
		Headers:           make(map[string]string),
	}
	c.loadFromEnv()
	return c
}

func (c *ClientConfig) loadFromEnv() {
	_ = godotenv.Load()

	if key := os.Getenv("CHORUS_API_KEY"); key != "" {
		c.APIKey = key
	}
	if base := os.Getenv("CHORUS_BASE_URL"); base != "" {
		c.BaseURL = base
	}
	if ws := os.Getenv("CHORUS_WS_ENDPOINT"); ws != "" {
		c.WSEndpoint = ws
	}
	if tok := os.Getenv("CHORUS_TOKEN_ENDPOINT"); tok != "" {
		c.TokenEndpoint = tok
		c.UseTokenAuth = true
	}
	if v := os.Getenv("CHORUS_USE_TOKEN_AUTH"); v != "" {
		c.UseTokenAuth = v == "true"
	}
	if v := os.Getenv("CHORUS_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Timeout = time.Duration(secs) * time.Second
		}
	}
	if level := os.Getenv("CHORUS_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	c.DebugWebSocket = os.Getenv("CHORUS_DEBUG_WEBSOCKET") == "true"
}

// Validate reports the first problem that would keep a client from running.
func (c *ClientConfig) Validate() error {
	if c.APIKey == "" {
		return NewConfigError("API key not set (CHORUS_API_KEY)")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return NewConfigError(fmt.Sprintf("invalid base URL: %s", c.BaseURL))
	}
	if !strings.HasPrefix(c.WSEndpoint, "ws://") && !strings.HasPrefix(c.WSEndpoint, "wss://") {
		return NewConfigError(fmt.Sprintf("invalid WebSocket endpoint: %s", c.WSEndpoint))
	}
	if c.UseTokenAuth && c.TokenEndpoint == "" {
		return NewConfigError("token auth enabled but no token endpoint set")
	}
	if c.Timeout <= 0 {
		return NewConfigError("timeout must be positive")
	}
	if c.KeepaliveInterval <= 0 {
		return NewConfigError("keepalive interval must be positive")
	}
	if c.Retry != nil {
		if c.Retry.MaxAttempts < 1 {
			return NewConfigError("retry policy needs at least one attempt")
		}
		if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
			return NewConfigError("retry jitter must be within [0,1]")
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return NewConfigError(fmt.Sprintf("invalid log level: %s", c.LogLevel))
	}
	return nil
}

// PrintConfig dumps the effective configuration for troubleshooting.
func (c *ClientConfig) PrintConfig() {
	fmt.Println("Chorus SDK Configuration")
	fmt.Println("==================================================")
	if c.APIKey != "" {
		n := len(c.APIKey)
		if n > 8 {
			n = 8
		}
		fmt.Printf("API Key: %s...\n", c.APIKey[:n])
	} else {
		fmt.Println("API Key: NOT SET")
	}
	fmt.Printf("Base URL: %s\n", c.BaseURL)
	fmt.Printf("WebSocket Endpoint: %s\n", c.WSEndpoint)
	if c.TokenEndpoint != "" {
		fmt.Printf("Token Endpoint: %s\n", c.TokenEndpoint)
	}
	fmt.Printf("Use Token Auth: %t\n", c.UseTokenAuth)
	fmt.Printf("Timeout: %s\n", c.Timeout)
	fmt.Printf("Keepalive Interval: %s\n", c.KeepaliveInterval)
	fmt.Printf("Log Level: %s\n", c.LogLevel)
	fmt.Printf("Debug WebSocket: %t\n", c.DebugWebSocket)
}
