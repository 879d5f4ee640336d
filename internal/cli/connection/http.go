package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/cropeye-monitor/internal/infra/buildinfo"
	"github.com/yndnr/cropeye-monitor/internal/server/httpserver/handler"
)

// DefaultTimeout bounds a single request. Simulated connects take up to 3s.
const DefaultTimeout = 10 * time.Second

// Service paths.
const (
	PathHealth       = "/health"
	PathReady        = "/ready"
	PathMetrics      = "/metrics"
	PathFarmingQuery = "/api/farming-query"
	PathConnect      = "/api/connect"
)

// APIError is a non-2xx reply from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// StatusCode extracts the HTTP status from err, or 0 when err is not an
// *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTLSConfig sets the TLS configuration for https servers.
func WithTLSConfig(cfg *tls.Config) ClientOption {
	return func(c *HTTPClient) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = cfg
		c.client.Transport = transport
	}
}

// NewHTTPClient creates a new HTTP client. A zero timeout selects
// DefaultTimeout.
func NewHTTPClient(server string, timeout time.Duration, opts ...ClientOption) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Health calls GET /health.
func (c *HTTPClient) Health(ctx context.Context) (*handler.HealthResponse, error) {
	resp, err := c.Get(ctx, PathHealth)
	if err != nil {
		return nil, err
	}
	var out handler.HealthResponse
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready calls GET /ready. A draining server answers 503 with a status body;
// that is reported as a response, not an error.
func (c *HTTPClient) Ready(ctx context.Context) (*handler.StatusResponse, error) {
	resp, err := c.Get(ctx, PathReady)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		defer resp.Body.Close()
		var out handler.StatusResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err == nil && out.Status != "" {
			return &out, nil
		}
		return nil, &APIError{StatusCode: resp.StatusCode}
	}
	var out handler.StatusResponse
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FarmingQuery calls POST /api/farming-query. An empty queryType sends an
// empty object so the server applies its default.
func (c *HTTPClient) FarmingQuery(ctx context.Context, queryType string) (*handler.FarmingQueryResponse, error) {
	body := map[string]string{}
	if queryType != "" {
		body["type"] = queryType
	}
	resp, err := c.Post(ctx, PathFarmingQuery, body)
	if err != nil {
		return nil, err
	}
	var out handler.FarmingQueryResponse
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Connect calls GET /api/connect and blocks for the simulated connection.
func (c *HTTPClient) Connect(ctx context.Context) (*handler.StatusResponse, error) {
	resp, err := c.Get(ctx, PathConnect)
	if err != nil {
		return nil, err
	}
	var out handler.StatusResponse
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Metrics scrapes path (PathMetrics when empty) and returns the raw text.
func (c *HTTPClient) Metrics(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = PathMetrics
	}
	resp, err := c.Get(ctx, path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", decodeError(resp)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read metrics: %w", err)
	}
	return string(raw), nil
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	return c.do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func (c *HTTPClient) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "cropeye-probe/"+buildinfo.Version)
}

// ParseResponse parses a JSON response body into target and closes it.
// Replies with status >= 400 return an *APIError.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}

	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body handler.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	}
	if apiErr.Code == "" {
		apiErr.Code = resp.Header.Get("X-Error-Code")
	}
	return apiErr
}
