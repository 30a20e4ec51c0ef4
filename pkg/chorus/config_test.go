package chorus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *ClientConfig {
	return &ClientConfig{
		APIKey:            "sk_test",
		BaseURL:           defaultBaseURL,
		WSEndpoint:        defaultWSEndpoint,
		Timeout:           defaultRequestTimeout,
		KeepaliveInterval: defaultKeepaliveInterval,
		LogLevel:          "info",
	}
}

func TestNewClientConfig_Defaults(t *testing.T) {
	t.Setenv("CHORUS_API_KEY", "")
	t.Setenv("CHORUS_BASE_URL", "")
	t.Setenv("CHORUS_WS_ENDPOINT", "")
	t.Setenv("CHORUS_TOKEN_ENDPOINT", "")
	t.Setenv("CHORUS_USE_TOKEN_AUTH", "")
	t.Setenv("CHORUS_TIMEOUT_SECONDS", "")
	t.Setenv("CHORUS_LOG_LEVEL", "")
	t.Setenv("CHORUS_DEBUG_WEBSOCKET", "")

	c := NewClientConfig()
	assert.Equal(t, defaultBaseURL, c.BaseURL)
	assert.Equal(t, defaultWSEndpoint, c.WSEndpoint)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, 30*time.Second, c.KeepaliveInterval)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.UseTokenAuth)
}

func TestNewClientConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("CHORUS_API_KEY", "sk_env")
	t.Setenv("CHORUS_BASE_URL", "https://staging.chorus.ai")
	t.Setenv("CHORUS_WS_ENDPOINT", "wss://staging.chorus.ai/v1/chat/stream")
	t.Setenv("CHORUS_TOKEN_ENDPOINT", "https://staging.chorus.ai/v1/token")
	t.Setenv("CHORUS_TIMEOUT_SECONDS", "5")
	t.Setenv("CHORUS_LOG_LEVEL", "debug")
	t.Setenv("CHORUS_DEBUG_WEBSOCKET", "true")

	c := NewClientConfig()
	assert.Equal(t, "sk_env", c.APIKey)
	assert.Equal(t, "https://staging.chorus.ai", c.BaseURL)
	assert.Equal(t, "wss://staging.chorus.ai/v1/chat/stream", c.WSEndpoint)
	assert.Equal(t, "https://staging.chorus.ai/v1/token", c.TokenEndpoint)
	// Naming a token endpoint opts the config into token auth.
	assert.True(t, c.UseTokenAuth)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.DebugWebSocket)
}

func TestNewClientConfig_TokenAuthCanBeDisabledExplicitly(t *testing.T) {
	t.Setenv("CHORUS_API_KEY", "sk_env")
	t.Setenv("CHORUS_TOKEN_ENDPOINT", "https://staging.chorus.ai/v1/token")
	t.Setenv("CHORUS_USE_TOKEN_AUTH", "false")

	c := NewClientConfig()
	assert.False(t, c.UseTokenAuth)
}

func TestNewClientConfig_IgnoresBadTimeout(t *testing.T) {
	t.Setenv("CHORUS_API_KEY", "sk_env")
	t.Setenv("CHORUS_TIMEOUT_SECONDS", "not-a-number")

	c := NewClientConfig()
	assert.Equal(t, defaultRequestTimeout, c.Timeout)
}

func TestClientConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validTestConfig().Validate())
	})

	tests := []struct {
		name   string
		mutate func(c *ClientConfig)
		want   string
	}{
		{"missing api key", func(c *ClientConfig) { c.APIKey = "" }, "API key"},
		{"bad base url", func(c *ClientConfig) { c.BaseURL = "ftp://api.chorus.ai" }, "base URL"},
		{"bad ws endpoint", func(c *ClientConfig) { c.WSEndpoint = "https://api.chorus.ai" }, "WebSocket endpoint"},
		{"token auth without endpoint", func(c *ClientConfig) { c.UseTokenAuth = true }, "token endpoint"},
		{"zero timeout", func(c *ClientConfig) { c.Timeout = 0 }, "timeout"},
		{"zero keepalive", func(c *ClientConfig) { c.KeepaliveInterval = 0 }, "keepalive"},
		{"bad log level", func(c *ClientConfig) { c.LogLevel = "loud" }, "log level"},
		{"zero retry attempts", func(c *ClientConfig) {
			p := DefaultRetryPolicy()
			p.MaxAttempts = 0
			c.Retry = p
		}, "at least one attempt"},
		{"jitter out of range", func(c *ClientConfig) {
			p := DefaultRetryPolicy()
			p.Jitter = 1.5
			c.Retry = p
		}, "jitter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validTestConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, IsErrorCode(err, ErrCodeConfigInvalid))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewClient_RejectsInvalidConfig(t *testing.T) {
	cfg := validTestConfig()
	cfg.APIKey = ""
	_, err := NewClient(cfg)
	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrCodeConfigInvalid))
}

func TestNewClient_ValidConfig(t *testing.T) {
	client, err := NewClient(validTestConfig())
	require.NoError(t, err)
	assert.Equal(t, "sk_test", client.Config().APIKey)
}
