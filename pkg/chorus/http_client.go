package chorus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const userAgent = "chorus-sdk-go/" + Version

// APIClient executes request/response HTTP calls against the Chorus API.
// It holds no per-call mutable state and is safe for concurrent use; each
// call gets its own RetryState.
type APIClient struct {
	baseURL    string
	provider   CredentialProvider
	policy     *RetryPolicy
	headers    map[string]string
	timeout    time.Duration
	httpClient *http.Client
	logger     *Logger
}

func NewAPIClient(baseURL string, provider CredentialProvider, policy *RetryPolicy, opts ...APIClientOption) *APIClient {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	c := &APIClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		provider: provider,
		policy:   policy,
		timeout:  defaultRequestTimeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 2,
			},
		},
		logger: GetGlobalLogger().WithComponent("http"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIClientOption configures an APIClient at construction.
type APIClientOption func(*APIClient)

// WithDefaultHeaders sets headers attached to every request.
func WithDefaultHeaders(headers map[string]string) APIClientOption {
	return func(c *APIClient) { c.headers = headers }
}

// WithDefaultTimeout sets the default per-attempt timeout.
func WithDefaultTimeout(timeout time.Duration) APIClientOption {
	return func(c *APIClient) { c.timeout = timeout }
}

// WithLogger overrides the client's logger.
func WithLogger(logger *Logger) APIClientOption {
	return func(c *APIClient) { c.logger = logger }
}

// requestOptions are the per-call overrides, merged over client defaults
// with the per-call value winning on conflicts.
type requestOptions struct {
	headers     map[string]string
	query       map[string]string
	timeout     time.Duration
	policy      *RetryPolicy
	rawBody     []byte
	contentType string
	accept      string
}

// RequestOption customizes a single call.
type RequestOption func(*requestOptions)

// WithHeader adds a header to the request. Caller values win over client
// defaults on key collision.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithQuery adds a query parameter to the request URL.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = make(map[string]string)
		}
		o.query[key] = value
	}
}

// WithTimeout overrides the per-attempt timeout for this call.
func WithTimeout(timeout time.Duration) RequestOption {
	return func(o *requestOptions) { o.timeout = timeout }
}

// WithRetryPolicy overrides the retry policy for this call.
func WithRetryPolicy(policy *RetryPolicy) RequestOption {
	return func(o *requestOptions) { o.policy = policy }
}

// WithRawBody sends the bytes as-is instead of JSON-encoding the body
// argument. Used for multipart and other binary upload paths.
func WithRawBody(body []byte, contentType string) RequestOption {
	return func(o *requestOptions) {
		o.rawBody = body
		o.contentType = contentType
	}
}

// WithAccept overrides the Accept header, e.g. for raw audio downloads.
func WithAccept(accept string) RequestOption {
	return func(o *requestOptions) { o.accept = accept }
}

// Do executes the request with retry and returns the response body bytes.
// Every attempt is a fresh round trip; between attempts it sleeps per the
// policy, honoring a retryable response's Retry-After for that sleep.
func (c *APIClient) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) ([]byte, error) {
	options := &requestOptions{timeout: c.timeout, policy: c.policy}
	for _, opt := range opts {
		opt(options)
	}
	if options.policy == nil {
		options.policy = DefaultRetryPolicy()
	}

	encoded, err := c.encodeBody(body, options)
	if err != nil {
		return nil, err
	}

	state := NewRetryState()
	for {
		respBody, cerr := c.attempt(ctx, method, path, encoded, options)
		if cerr == nil {
			return respBody, nil
		}

		state.Record(cerr)
		if !options.policy.ShouldRetry(state) {
			return nil, cerr
		}

		delay := options.policy.Delay(state.Attempts)
		if cerr.RetryAfter > 0 {
			delay = capRetryAfter(cerr.RetryAfter)
		}
		// MaxElapsed is a hard ceiling; a Retry-After that would sleep
		// past it means the budget is spent, so surface now.
		if max := options.policy.MaxElapsed; max > 0 && time.Since(state.Start)+delay >= max {
			return nil, cerr
		}
		c.logger.WithFields(map[string]interface{}{
			"attempt": state.Attempts,
			"delay":   delay.String(),
			"code":    cerr.Code,
		}).Debug("retrying request")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, NewCancelledError(ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *APIClient) encodeBody(body any, options *requestOptions) ([]byte, *Error) {
	if options.rawBody != nil {
		return options.rawBody, nil
	}
	if body == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, NewEncodeError(err)
	}
	return encoded, nil
}

// attempt runs exactly one round trip.
func (c *APIClient) attempt(ctx context.Context, method, path string, body []byte, options *requestOptions) ([]byte, *Error) {
	attemptCtx := ctx
	if options.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, options.timeout)
		defer cancel()
	}

	req, cerr := c.buildRequest(attemptCtx, method, path, body, options)
	if cerr != nil {
		return nil, cerr
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The outer context being live means the per-attempt deadline hit.
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return nil, WrapError(err, ErrCodeTimeout).markRetryable(options.policy.RetryConnectionErrors)
		}
		return nil, classifyTransport(options.policy, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(options.policy, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	cerr = classifyStatus(options.policy, resp.StatusCode, respBody, resp.Header.Get("Retry-After"))
	if cerr.Retryable && cerr.RetryAfter == 0 {
		if d, ok := ParseRetryAfter(resp.Header.Get("Retry-After")); ok {
			cerr.RetryAfter = d
		}
	}
	return nil, cerr
}

func (c *APIClient) buildRequest(ctx context.Context, method, path string, body []byte, options *requestOptions) (*http.Request, *Error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, NewConfigError(fmt.Sprintf("invalid request URL: %v", err))
	}
	if len(options.query) > 0 {
		q := u.Query()
		for k, v := range options.query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, NewConfigError(err.Error())
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if options.accept != "" {
		req.Header.Set("Accept", options.accept)
	}
	if body != nil {
		contentType := options.contentType
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	cred, err := c.provider.Credential(ctx)
	if err != nil {
		return nil, WrapError(err, ErrCodeAuthFailed)
	}
	name, value := cred.Header()
	req.Header.Set(name, value)

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range options.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// stream opens a streaming response body. Retry does not apply: a stream
// once begun cannot be transparently replayed.
func (c *APIClient) stream(ctx context.Context, method, path string, body any, opts ...RequestOption) (io.ReadCloser, *Error) {
	options := &requestOptions{policy: c.policy}
	for _, opt := range opts {
		opt(options)
	}

	encoded, cerr := c.encodeBody(body, options)
	if cerr != nil {
		return nil, cerr
	}

	req, cerr := c.buildRequest(ctx, method, path, encoded, options)
	if cerr != nil {
		return nil, cerr
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(options.policy, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, classifyStatus(options.policy, resp.StatusCode, respBody, resp.Header.Get("Retry-After"))
	}
	return resp.Body, nil
}

func (e *Error) markRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// getJSON runs a GET and decodes the response into T.
func getJSON[T any](ctx context.Context, c *APIClient, path string, opts ...RequestOption) (T, error) {
	return doJSON[T](ctx, c, http.MethodGet, path, nil, opts...)
}

// postJSON runs a POST with a JSON body and decodes the response into T.
func postJSON[T any](ctx context.Context, c *APIClient, path string, body any, opts ...RequestOption) (T, error) {
	return doJSON[T](ctx, c, http.MethodPost, path, body, opts...)
}

// putJSON runs a PUT with a JSON body and decodes the response into T.
func putJSON[T any](ctx context.Context, c *APIClient, path string, body any, opts ...RequestOption) (T, error) {
	return doJSON[T](ctx, c, http.MethodPut, path, body, opts...)
}

func doJSON[T any](ctx context.Context, c *APIClient, method, path string, body any, opts ...RequestOption) (T, error) {
	var result T
	respBody, err := c.Do(ctx, method, path, body, opts...)
	if err != nil {
		return result, err
	}
	if len(respBody) == 0 {
		return result, nil
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return result, invalidResponseError(err).AddDetail("body_length", len(respBody))
	}
	return result, nil
}
