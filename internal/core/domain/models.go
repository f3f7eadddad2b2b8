package domain

import (
	"encoding/json"
	"time"
)

// Author identifies who wrote a comment.
type Author struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comment represents a comment on a post. ID is unique per platform and doubles as the dedup key.
type Comment struct {
	ID      string `json:"id"`
	PostID  string `json:"post_id"`
	Author  Author `json:"author"`
	Content string `json:"content"`
}

// Post represents a watched post with its comments in platform order.
type Post struct {
	ID       string    `json:"id"`
	Title    string    `json:"title,omitempty"`
	Content  string    `json:"content"`
	Author   string    `json:"author,omitempty"`
	Comments []Comment `json:"comments"`
}

// ThreadUpTo returns the comments up to and including the one with commentID.
// When the comment is not present the full list is returned.
func (p *Post) ThreadUpTo(commentID string) []Comment {
	for i, c := range p.Comments {
		if c.ID == commentID {
			return p.Comments[:i+1]
		}
	}
	return p.Comments
}

// ReplyRecord is the short record of one interaction handed to the memory store.
type ReplyRecord struct {
	Author    string
	Original  string
	Reply     string
	Timestamp time.Time
}

// ThreadSnapshot is a flattened post + comments + bot reply, stored once as a seed.
type ThreadSnapshot struct {
	PostContent  string
	CommentLines []string
	Reply        string
	ReplyAuthor  string
	Timestamp    time.Time
}

// AgentContext is a structured memory written to the agent-contexts store.
type AgentContext struct {
	AgentID    string          `json:"agentId"`
	MemoryType string          `json:"memoryType"`
	Data       json.RawMessage `json:"data"`
}

// SeedResult is one semantic search hit.
type SeedResult struct {
	SeedID     string  `json:"seedId"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}

// IntakeState is the terminal state a comment reached in the pipeline.
type IntakeState string

const (
	StateSkippedOwn     IntakeState = "skipped_own"
	StateSkippedHandled IntakeState = "skipped_handled"
	StateSkippedSpam    IntakeState = "skipped_spam"
	StateFailed         IntakeState = "failed"
	StateDone           IntakeState = "done"
	StateError          IntakeState = "error"
)

// RecordStatus distinguishes a stored memory from one dropped because of an error.
type RecordStatus string

const (
	RecordStored  RecordStatus = "recorded"
	RecordSkipped RecordStatus = "skipped"
)

// RecordResult is the outcome of a best-effort memory write.
type RecordResult struct {
	Status RecordStatus `json:"status"`
	JobIDs []string     `json:"jobIds,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// Recorded reports whether the memory store accepted the record.
func (r RecordResult) Recorded() bool {
	return r.Status == RecordStored
}

// CommentOutcome describes what happened to one comment.
type CommentOutcome struct {
	CommentID    string        `json:"commentId"`
	PostID       string        `json:"postId"`
	Author       string        `json:"author"`
	State        IntakeState   `json:"state"`
	Reply        string        `json:"reply,omitempty"`
	Interaction  *RecordResult `json:"interaction,omitempty"`
	Snapshot     *RecordResult `json:"snapshot,omitempty"`
	PersistError string        `json:"persistError,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// NewReply is the short summary reported for each comment that got a reply.
type NewReply struct {
	Author string `json:"author"`
	Reply  string `json:"reply"`
}

// BatchResult is the result of checking one post.
type BatchResult struct {
	PostID   string           `json:"postId"`
	Replies  []NewReply       `json:"replies"`
	Outcomes []CommentOutcome `json:"outcomes"`
	Error    string           `json:"error,omitempty"`
}
