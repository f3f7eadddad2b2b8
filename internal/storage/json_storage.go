package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/logging"
)

// JSONLedger stores handled comment ids as a JSON array of strings, rewritten in full on every change.
type JSONLedger struct {
	FilePath string
	set      idSet
	writeMu  sync.Mutex
	logger   logging.Logger
}

func NewJSONLedger(filePath string, logger logging.Logger) (*JSONLedger, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &JSONLedger{FilePath: filePath, logger: logger}, nil
}

var _ ports.Ledger = (*JSONLedger)(nil)

// Load never fails on a missing or unreadable file; the ledger starts empty instead.
func (l *JSONLedger) Load(ctx context.Context) error {
	raw, err := os.ReadFile(l.FilePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.WithError(err).WithField("path", l.FilePath).Warn("Failed to read ledger; starting empty")
		}
		l.set.reset(nil)
		return nil
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		l.logger.WithError(err).WithField("path", l.FilePath).Warn("Corrupt ledger file; starting empty")
		l.set.reset(nil)
		return nil
	}

	l.set.reset(ids)
	l.logger.WithField("count", l.set.len()).Info("Loaded replied comments")
	return nil
}

func (l *JSONLedger) Has(commentID string) bool { return l.set.has(commentID) }

func (l *JSONLedger) MarkHandled(ctx context.Context, commentID string) error {
	if !l.set.add(commentID) {
		return nil
	}
	return l.Persist(ctx)
}

// Persist replaces the file atomically: a temp file in the same directory is renamed over it.
func (l *JSONLedger) Persist(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	data, err := json.MarshalIndent(l.set.snapshot(), "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.FilePath), filepath.Base(l.FilePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, l.FilePath); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func (l *JSONLedger) Len() int { return l.set.len() }
