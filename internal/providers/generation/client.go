// Package generation wraps the externally-hosted synthesis provider behind a
// small HTTP client. All error classification for provider calls happens
// here, once, so callers never re-derive retryability from raw error text.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"adforge/internal/domain"
)

// Options controls how the provider client is configured.
type Options struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// Client talks to the external generation service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

// NewClient constructs a provider client with sane defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIToken),
		logger:     opts.Logger.With().Str("component", "generation").Logger(),
	}
}

// CreateRequest describes one generation call.
type CreateRequest struct {
	Kind      domain.JobKind    `json:"kind"`
	Input     map[string]any    `json:"input"`
	InputRefs []string          `json:"input_refs,omitempty"`
	Extras    map[string]string `json:"extras,omitempty"`
}

// Prediction is the provider's view of a job. Status values and the
// output/error shape are preserved verbatim from the service.
type Prediction struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Output OutputRefs `json:"output,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// OutputRefs decodes the provider's `output` field, which may be a single
// URL string, an array of URL strings, or absent.
type OutputRefs []string

func (o *OutputRefs) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*o = nil
		return nil
	}
	if trimmed[0] == '"' {
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*o = OutputRefs{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return err
	}
	*o = OutputRefs(many)
	return nil
}

type providerError struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// CreateJob submits a new generation request and returns the provider's
// initial prediction record.
func (c *Client) CreateJob(ctx context.Context, req CreateRequest) (*Prediction, error) {
	if c.token == "" {
		return nil, domain.NewAuthentication("provider: API token is missing")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, domain.NewInternal("provider: encode request").WithCause(err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
}

// GetJob reads the current prediction state for id.
func (c *Client) GetJob(ctx context.Context, id string) (*Prediction, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidation("provider: job id is required")
	}
	return c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
}

// CancelJob asks the provider to stop a running prediction. Cancellation is
// best-effort; a missing job is surfaced as NOT_FOUND.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.NewValidation("provider: job id is required")
	}
	_, err := c.do(ctx, http.MethodPost, c.baseURL+"/predictions/"+id+"/cancel", nil)
	return err
}

// Download fetches raw bytes from an output URL, returning the payload and
// its content type.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", domain.NewValidation("provider: invalid output url").WithCause(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", domain.NewPredictionFailed("provider: download failed", true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", classifyStatus(resp.StatusCode, fmt.Sprintf("download %s: http %d", rawURL, resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", domain.NewPredictionFailed("provider: read download body", true).WithCause(err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader) (*Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, domain.NewInternal("provider: build request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network-level failures are transient by default.
		return nil, domain.NewPredictionFailed("provider: request failed", true).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var pe providerError
		msg := fmt.Sprintf("provider: http %d", resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&pe); err == nil {
			if detail := firstNonEmpty(pe.Detail, pe.Error); detail != "" {
				msg = fmt.Sprintf("provider: %s (http %d)", detail, resp.StatusCode)
			}
		}
		return nil, classifyStatus(resp.StatusCode, msg)
	}

	var pred Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, domain.NewPredictionFailed("provider: decode response", true).WithCause(err)
	}
	if pred.ID == "" {
		return nil, domain.NewPredictionFailed("provider: response missing job id", false)
	}
	return &pred, nil
}

// classifyStatus is the single place where an HTTP status from the provider
// becomes a typed error with a retryability decision.
func classifyStatus(status int, msg string) error {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.NewRateLimit(msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.NewAuthentication(msg)
	case status == http.StatusNotFound:
		return domain.NewNotFound(msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return domain.NewValidation(msg)
	case status >= 500:
		return domain.NewPredictionFailed(msg, true)
	default:
		return domain.NewPredictionFailed(msg, false)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
