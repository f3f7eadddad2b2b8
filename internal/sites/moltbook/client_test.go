package moltbook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neutron-agent/internal/clients"
)

// newTestClient disables retries so each test sees exactly one request per call.
func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, "sk-test", WithReadExecutorConfig(clients.WriteExecutorConfig()))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", "key")
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.NotNil(t, c.HTTPClient)
	assert.NotNil(t, c.readExecutor)
	assert.Equal(t, "moltbook", c.Name())
}

func TestGetPostMapsCommentsAndAuthors(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{
			"success": true,
			"post": {"id": "p1", "title": "Memory", "content": "nested body", "author": {"name": "bot"}},
			"comments": [
				{"id": "c1", "content": "How does memory work?", "author": {"id": "u1", "name": "Ana"}},
				{"id": "c2", "content": "legacy", "author_id": "u2", "author": "Bo"}
			]
		}`))
	}))
	defer srv.Close()

	post, err := newTestClient(srv.URL).GetPost(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "/posts/p1", gotPath)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "nested body", post.Content)
	assert.Equal(t, "Memory", post.Title)
	require.Len(t, post.Comments, 2)
	assert.Equal(t, "u1", post.Comments[0].Author.ID)
	assert.Equal(t, "Ana", post.Comments[0].Author.Name)
	assert.Equal(t, "p1", post.Comments[0].PostID)
	assert.Equal(t, "u2", post.Comments[1].Author.ID)
	assert.Equal(t, "Bo", post.Comments[1].Author.Name)
}

func TestGetPostPrefersTopLevelContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": true, "content": "top", "post": {"content": "nested"}}`))
	}))
	defer srv.Close()

	post, err := newTestClient(srv.URL).GetPost(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "top", post.Content)
	assert.Empty(t, post.Comments)
}

func TestGetPostUnsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPost(context.Background(), "p1")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "failed to fetch post", apiErr.Message)
}

func TestGetPostNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success": false, "error": "Post not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPost(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Post not found", apiErr.Message)
}

func TestCreateCommentSuccess(t *testing.T) {
	var gotMethod, gotPath, gotType string
	var gotBody CreateCommentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).CreateComment(context.Background(), "p1", "hello Ana")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/posts/p1/comments", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "hello Ana", gotBody.Content)
}

func TestCreateCommentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"success": false, "error": {"message": "slow down"}}`))
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).CreateComment(context.Background(), "p1", "hi")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "slow down", apiErr.Message)
}

func TestCreateCommentIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").CreateComment(context.Background(), "p1", "hi")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestApiAuthorUnmarshal(t *testing.T) {
	var a ApiAuthor
	require.NoError(t, json.Unmarshal([]byte(`"Ana"`), &a))
	assert.Equal(t, ApiAuthor{Name: "Ana"}, a)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"u1","name":"Bo"}`), &a))
	assert.Equal(t, ApiAuthor{ID: "u1", Name: "Bo"}, a)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", errorMessage(nil))
	assert.Equal(t, "", errorMessage(json.RawMessage("null")))
	assert.Equal(t, "bad", errorMessage(json.RawMessage(`"bad"`)))
	assert.Equal(t, "worse", errorMessage(json.RawMessage(`{"message":"worse"}`)))
	assert.Equal(t, "42", errorMessage(json.RawMessage(`42`)))
}
