package storage

import (
	"context"

	"neutron-agent/internal/core/ports"
)

// MemoryLedger keeps handled ids in process memory only.
type MemoryLedger struct {
	set idSet
}

func NewMemoryLedger(ids ...string) *MemoryLedger {
	l := &MemoryLedger{}
	l.set.reset(ids)
	return l
}

var _ ports.Ledger = (*MemoryLedger)(nil)

func (l *MemoryLedger) Load(ctx context.Context) error { return nil }

func (l *MemoryLedger) Has(commentID string) bool { return l.set.has(commentID) }

func (l *MemoryLedger) MarkHandled(ctx context.Context, commentID string) error {
	l.set.add(commentID)
	return nil
}

func (l *MemoryLedger) Persist(ctx context.Context) error { return nil }

func (l *MemoryLedger) Len() int { return l.set.len() }

// IDs returns handled ids in the order they were marked.
func (l *MemoryLedger) IDs() []string { return l.set.snapshot() }
