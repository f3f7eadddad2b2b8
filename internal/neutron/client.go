package neutron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/failsafe-go/failsafe-go"

	"neutron-agent/internal/clients"
	"neutron-agent/internal/core/domain"
	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/logging"
)

const (
	DefaultBaseURL        = "https://api-neutron.vanarchain.com"
	DefaultExternalUserID = "neutron-memory-bot"

	defaultQueryLimit     = 10
	defaultQueryThreshold = 0.5
)

// APIError is returned for unexpected Neutron status codes.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("neutron returned status: %d", e.StatusCode)
	}
	return fmt.Sprintf("neutron returned status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Neutron agent-context and seed APIs.
// Every request is scoped by the appId and externalUserId query parameters.
type Client struct {
	BaseURL        string
	APIKey         string
	AppID          string
	ExternalUserID string
	HTTPClient     *http.Client

	readExecutor  failsafe.Executor[*http.Response]
	writeExecutor failsafe.Executor[*http.Response]
	shouldRetry   func(*http.Response, error) bool
}

type Config struct {
	BaseURL        string
	APIKey         string
	AppID          string
	ExternalUserID string
	HTTPClient     *http.Client
	Logger         logging.Logger
}

var _ ports.MemoryStore = (*Client)(nil)

// NewClient builds a client that retries reads and guards writes with a circuit breaker.
// Writes are never retried since a seed upload is not idempotent.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ExternalUserID == "" {
		cfg.ExternalUserID = DefaultExternalUserID
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = clients.NewHTTPClient(0)
	}

	readCfg := clients.ReadExecutorConfig()
	readCfg.BreakerName = "neutron-read"
	readCfg.Logger = cfg.Logger

	writeCfg := clients.WriteExecutorConfig()
	writeCfg.BreakerName = "neutron-write"
	writeCfg.Logger = cfg.Logger

	return &Client{
		BaseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:         cfg.APIKey,
		AppID:          cfg.AppID,
		ExternalUserID: cfg.ExternalUserID,
		HTTPClient:     cfg.HTTPClient,
		readExecutor:   clients.NewHTTPExecutor(readCfg),
		writeExecutor:  clients.NewHTTPExecutor(writeCfg),
		shouldRetry:    readCfg.ShouldRetry,
	}
}

func (c *Client) endpoint(path string, extra url.Values) string {
	q := url.Values{}
	q.Set("appId", c.AppID)
	q.Set("externalUserId", c.ExternalUserID)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return c.BaseURL + path + "?" + q.Encode()
}

// do sends a read through the retrying executor and a write through the breaker only.
func (c *Client) do(ctx context.Context, read bool, build func() (*http.Request, error)) (*http.Response, error) {
	executor, shouldRetry := c.writeExecutor, func(*http.Response, error) bool { return false }
	if read {
		executor, shouldRetry = c.readExecutor, c.shouldRetry
	}
	return clients.ExecuteHTTP(ctx, executor, shouldRetry, func() (*http.Response, error) {
		req, err := build()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		return c.HTTPClient.Do(req)
	})
}

// CreateAgentContext stores a structured memory and returns the created record as-is.
func (c *Client) CreateAgentContext(ctx context.Context, memory domain.AgentContext) (json.RawMessage, error) {
	payload, err := json.Marshal(memory)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, false, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/agent-contexts", nil), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create agent context: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("create agent context: invalid JSON response")
	}
	return json.RawMessage(body), nil
}

// AgentContextList is the body of GET /agent-contexts.
type AgentContextList struct {
	Items []json.RawMessage `json:"items"`
	Total int               `json:"total"`
}

// ListAgentContexts returns the stored memories for agentID.
func (c *Client) ListAgentContexts(ctx context.Context, agentID string) (*AgentContextList, error) {
	extra := url.Values{}
	if agentID != "" {
		extra.Set("agentId", agentID)
	}

	resp, err := c.do(ctx, true, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/agent-contexts", extra), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("list agent contexts: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	var list AgentContextList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode agent contexts: %w", err)
	}
	if list.Items == nil {
		list.Items = []json.RawMessage{}
	}
	return &list, nil
}

type seedResponse struct {
	JobIDs []string `json:"jobIds"`
}

// CreateSeed uploads text for semantic indexing. Only 201 Created counts as success.
func (c *Client) CreateSeed(ctx context.Context, text, title string) ([]string, error) {
	body, contentType, err := seedForm(text, title)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, false, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/seeds", nil), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("create seed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var data seedResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode seed response: %w", err)
	}
	return data.JobIDs, nil
}

// seedForm encodes each field as a one-element JSON array.
func seedForm(text, title string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct {
		name  string
		value string
	}{
		{"text", text},
		{"textTypes", "text"},
		{"textSources", "mcp"},
		{"textTitles", title},
	}
	for _, f := range fields {
		encoded, err := json.Marshal([]string{f.value})
		if err != nil {
			return nil, "", err
		}
		if err := w.WriteField(f.name, string(encoded)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

type SeedQuery struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

type seedQueryResponse struct {
	Results []domain.SeedResult `json:"results"`
}

// QuerySeeds runs a semantic search. Zero limit or threshold fall back to 10 and 0.5.
func (c *Client) QuerySeeds(ctx context.Context, q SeedQuery) ([]domain.SeedResult, error) {
	if q.Limit <= 0 {
		q.Limit = defaultQueryLimit
	}
	if q.Threshold <= 0 {
		q.Threshold = defaultQueryThreshold
	}
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, true, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/seeds/query", nil), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query seeds: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}
	var data seedQueryResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode seed results: %w", err)
	}
	if data.Results == nil {
		data.Results = []domain.SeedResult{}
	}
	return data.Results, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
