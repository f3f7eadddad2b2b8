package moltbook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/failsafe-go/failsafe-go"

	"neutron-agent/internal/clients"
	"neutron-agent/internal/core/domain"
	"neutron-agent/internal/core/ports"
)

const DefaultBaseURL = "https://www.moltbook.com/api/v1"

// APIError is returned for non-2xx responses and for bodies with success=false.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("moltbook returned status: %d", e.StatusCode)
	}
	return fmt.Sprintf("moltbook returned status %d: %s", e.StatusCode, e.Message)
}

// Client is the Moltbook platform adapter.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	readExecutor failsafe.Executor[*http.Response]
	shouldRetry  func(*http.Response, error) bool
}

type Option func(*Client)

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	readCfg := clients.ReadExecutorConfig()
	c := &Client{
		BaseURL:      baseURL,
		APIKey:       apiKey,
		HTTPClient:   clients.NewHTTPClient(0),
		readExecutor: clients.NewHTTPExecutor(readCfg),
		shouldRetry:  readCfg.ShouldRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.HTTPClient = httpClient
		}
	}
}

// WithReadExecutorConfig replaces the retry behaviour used for GET requests.
func WithReadExecutorConfig(cfg clients.HTTPExecutorConfig) Option {
	return func(c *Client) {
		c.readExecutor = clients.NewHTTPExecutor(cfg)
		c.shouldRetry = cfg.ShouldRetry
	}
}

// Ensure Client implements Platform interface
var _ ports.Platform = (*Client)(nil)

func (c *Client) Name() string {
	return "moltbook"
}

func (c *Client) postURL(postID string, suffix string) string {
	return fmt.Sprintf("%s/posts/%s%s", c.BaseURL, url.PathEscape(postID), suffix)
}

// GetPost fetches a post with its comments in platform order.
func (c *Client) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	resp, err := clients.ExecuteHTTP(ctx, c.readExecutor, c.shouldRetry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.postURL(postID, ""), nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)
		return c.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch post %s: %w", postID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read post %s: %w", postID, err)
	}

	var data PostResponse
	decodeErr := json.Unmarshal(body, &data)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data.Error)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode post %s: %w", postID, decodeErr)
	}
	if !data.Success {
		msg := errorMessage(data.Error)
		if msg == "" {
			msg = "failed to fetch post"
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return toDomainPost(postID, &data), nil
}

// CreateComment posts content as a new top-level comment. It is never retried.
func (c *Client) CreateComment(ctx context.Context, postID string, content string) error {
	reqBody, err := json.Marshal(CreateCommentRequest{Content: content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.postURL(postID, "/comments"), bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post comment on %s: %w", postID, err)
	}
	defer resp.Body.Close()

	var res CreateCommentResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("decode comment response: %w", err)
	}
	if !res.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(res.Error)}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}

func toDomainPost(postID string, data *PostResponse) *domain.Post {
	post := &domain.Post{ID: postID, Content: data.Content}
	if data.Post != nil {
		if data.Post.ID != "" {
			post.ID = data.Post.ID
		}
		if post.Content == "" {
			post.Content = data.Post.Content
		}
		post.Title = data.Post.Title
		post.Author = data.Post.Author.Name
	}

	post.Comments = make([]domain.Comment, 0, len(data.Comments))
	for _, c := range data.Comments {
		authorID := c.Author.ID
		if authorID == "" {
			authorID = c.AuthorID
		}
		post.Comments = append(post.Comments, domain.Comment{
			ID:      c.ID,
			PostID:  post.ID,
			Author:  domain.Author{ID: authorID, Name: c.Author.Name},
			Content: c.Content,
		})
	}
	return post
}
