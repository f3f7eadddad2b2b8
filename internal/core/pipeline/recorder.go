package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"neutron-agent/internal/core/domain"
	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/logging"
	"neutron-agent/internal/monitoring"
)

const (
	KindInteraction = "interaction"
	KindSnapshot    = "snapshot"
	KindNote        = "note"

	// MemoryTypeEpisodic is the agent-context type for reply interactions.
	MemoryTypeEpisodic = "episodic"

	excerptLength = 50
)

var errNoMemoryStore = errors.New("memory store not configured")

// Recorder writes interaction memories and thread snapshots. Every write is
// best-effort: failures are logged and returned as a skipped RecordResult.
type Recorder struct {
	store     ports.MemoryStore
	agentName string
	timeout   time.Duration
	logger    logging.Logger
	metrics   *monitoring.PipelineMetrics

	// Now stamps snapshots; replaced in tests.
	Now func() time.Time
}

// NewRecorder returns a Recorder. A nil store turns every record into a skip.
func NewRecorder(store ports.MemoryStore, agentName string, timeout time.Duration, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Recorder {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Recorder{
		store:     store,
		agentName: agentName,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
		Now:       time.Now,
	}
}

// RecordInteraction stores a short episodic memory of one reply.
func (r *Recorder) RecordInteraction(ctx context.Context, author, original, reply string) domain.RecordResult {
	text := InteractionText(domain.ReplyRecord{Author: author, Original: original, Reply: reply})
	data, err := json.Marshal(map[string]string{"interaction": text})
	if err != nil {
		return r.finish(KindInteraction, nil, err)
	}
	if r.store == nil {
		return r.finish(KindInteraction, nil, errNoMemoryStore)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err = r.store.CreateAgentContext(ctx, domain.AgentContext{
		AgentID:    r.agentName,
		MemoryType: MemoryTypeEpisodic,
		Data:       data,
	})
	return r.finish(KindInteraction, nil, err)
}

// RecordThreadSnapshot stores the thread as a seed and returns its job ids.
func (r *Recorder) RecordThreadSnapshot(ctx context.Context, postContent string, commentLines []string, reply, author string) domain.RecordResult {
	snap := domain.ThreadSnapshot{
		PostContent:  postContent,
		CommentLines: commentLines,
		Reply:        reply,
		ReplyAuthor:  author,
		Timestamp:    r.Now().UTC(),
	}
	if r.store == nil {
		return r.finish(KindSnapshot, nil, errNoMemoryStore)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	jobIDs, err := r.store.CreateSeed(ctx, SnapshotText(snap, r.agentName), SnapshotTitle(snap))
	return r.finish(KindSnapshot, jobIDs, err)
}

// SaveNote stores arbitrary text as a seed, used for operator-created memories.
func (r *Recorder) SaveNote(ctx context.Context, text, title string) domain.RecordResult {
	if r.store == nil {
		return r.finish(KindNote, nil, errNoMemoryStore)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	jobIDs, err := r.store.CreateSeed(ctx, text, title)
	return r.finish(KindNote, jobIDs, err)
}

func (r *Recorder) finish(kind string, jobIDs []string, err error) domain.RecordResult {
	if err != nil {
		r.metrics.ObserveMemoryRecord(kind, string(domain.RecordSkipped))
		r.logger.WithError(err).WithField("kind", kind).Warn("Memory record skipped")
		return domain.RecordResult{Status: domain.RecordSkipped, Error: err.Error()}
	}
	r.metrics.ObserveMemoryRecord(kind, string(domain.RecordStored))
	r.logger.WithFields(logging.Fields{"kind": kind, "job_ids": jobIDs}).Debug("Memory recorded")
	return domain.RecordResult{Status: domain.RecordStored, JobIDs: jobIDs}
}

// InteractionText renders "Replied to {author}: {comment}... -> {reply}...".
func InteractionText(rec domain.ReplyRecord) string {
	return fmt.Sprintf("Replied to %s: %s... -> %s...",
		rec.Author, Excerpt(rec.Original, excerptLength), Excerpt(rec.Reply, excerptLength))
}

// SnapshotText renders the seed document for a thread.
func SnapshotText(s domain.ThreadSnapshot, agentName string) string {
	lines := []string{
		"Thread snapshot - " + s.Timestamp.Format(time.RFC3339),
		"",
		"Post: " + s.PostContent,
		"",
		"Comments:",
	}
	lines = append(lines, s.CommentLines...)
	lines = append(lines, agentName+": "+s.Reply)
	return strings.Join(lines, "\n")
}

func SnapshotTitle(s domain.ThreadSnapshot) string {
	return fmt.Sprintf("Thread with %s - %s", s.ReplyAuthor, s.Timestamp.Format("2006-01-02"))
}

// CommentLines renders comments as "name: text".
func CommentLines(comments []domain.Comment) []string {
	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		name := c.Author.Name
		if name == "" {
			name = "Unknown"
		}
		lines = append(lines, name+": "+c.Content)
	}
	return lines
}

// Excerpt returns the first n runes of s.
func Excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
