package ports

import (
	"context"
	"encoding/json"

	"neutron-agent/internal/core/domain"
)

// Platform is the social platform the agent watches and replies on.
type Platform interface {
	GetPost(ctx context.Context, postID string) (*domain.Post, error)
	CreateComment(ctx context.Context, postID string, content string) error
}

// MemoryStore receives interaction memories and thread seeds.
type MemoryStore interface {
	CreateAgentContext(ctx context.Context, memory domain.AgentContext) (json.RawMessage, error)
	CreateSeed(ctx context.Context, text, title string) ([]string, error)
}

// Ledger is the durable set of comment ids already acted upon.
type Ledger interface {
	// Load populates the set from durable storage; missing or corrupt data yields an empty set.
	Load(ctx context.Context) error
	Has(commentID string) bool
	// MarkHandled adds the id and persists. The id stays in memory even when persisting fails.
	MarkHandled(ctx context.Context, commentID string) error
	// Persist writes the full current set back to durable storage.
	Persist(ctx context.Context) error
	Len() int
}

// Notifier sends operator-facing messages.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}
