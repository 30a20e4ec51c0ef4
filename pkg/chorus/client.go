package chorus

import (
	"context"
)

// Version is the SDK release, reported in the User-Agent of every request.
const Version = "1.2.0"

// Client is the entry point for the Chorus API: request/response calls run
// through its HTTP executor, live sessions through NewChatSession. A Client
// is safe for concurrent use.
type Client struct {
	config   *ClientConfig
	provider CredentialProvider
	api      *APIClient
	logger   *Logger
}

// NewClient validates the configuration and wires the credential provider
// and HTTP executor. There is no builder; set fields on ClientConfig and
// pass it here.
func NewClient(config *ClientConfig) (*Client, error) {
	if config == nil {
		config = NewClientConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := NewLogger(&LogConfig{Level: config.LogLevel, Pretty: true})

	var provider CredentialProvider
	if config.UseTokenAuth {
		provider = NewRefreshingProvider(config.TokenEndpoint, config.APIKey, config.Headers)
	} else {
		provider = NewStaticProvider(APIKeyAuth(config.APIKey))
	}

	policy := config.Retry
	if policy == nil {
		policy = DefaultRetryPolicy()
	}

	api := NewAPIClient(config.BaseURL, provider, policy,
		WithDefaultHeaders(config.Headers),
		WithDefaultTimeout(config.Timeout),
		WithLogger(logger.WithComponent("http")),
	)

	return &Client{
		config:   config,
		provider: provider,
		api:      api,
		logger:   logger,
	}, nil
}

// NewChatSession creates a typed channel over a fresh connection manager.
// The session is not connected yet; call Connect on it.
func (c *Client) NewChatSession() *ChatSession {
	ws := NewWebSocketClient(c.config.WSEndpoint, c.provider, c.config.KeepaliveInterval, c.config.DebugWebSocket)
	return NewChatSession(ws)
}

// Do exposes the raw HTTP executor for endpoints the SDK has no typed
// wrapper for.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) ([]byte, error) {
	return c.api.Do(ctx, method, path, body, opts...)
}

// Config returns the client's configuration.
func (c *Client) Config() *ClientConfig {
	return c.config
}
