package moltbook

import (
	"encoding/json"
	"strings"
)

// ApiAuthor accepts both {"id": "...", "name": "..."} and a bare name string.
type ApiAuthor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (a *ApiAuthor) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = ApiAuthor{Name: name}
		return nil
	}
	type plain ApiAuthor
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = ApiAuthor(p)
	return nil
}

type ApiComment struct {
	ID       string    `json:"id"`
	Content  string    `json:"content"`
	AuthorID string    `json:"author_id"`
	Author   ApiAuthor `json:"author"`
}

type ApiPost struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Author  ApiAuthor `json:"author"`
}

// PostResponse is the body of GET /posts/{id}. Content may sit at the top level or under post.
type PostResponse struct {
	Success  bool            `json:"success"`
	Error    json.RawMessage `json:"error"`
	Post     *ApiPost        `json:"post"`
	Content  string          `json:"content"`
	Comments []ApiComment    `json:"comments"`
}

type CreateCommentRequest struct {
	Content string `json:"content"`
}

type CreateCommentResponse struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error"`
}

// errorMessage flattens an error field that may be a string or an object.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return strings.TrimSpace(string(raw))
}
