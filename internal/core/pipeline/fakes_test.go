package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"neutron-agent/internal/core/domain"
	"neutron-agent/internal/core/rules"
	"neutron-agent/internal/storage"
)

const botID = "bot-1"

// eventLog records dispatches and waits in the order they happen.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakePlatform struct {
	log      *eventLog
	posts    map[string]*domain.Post
	getErr   error
	postErr  error
	mu       sync.Mutex
	comments []string
}

func (f *fakePlatform) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	post, ok := f.posts[postID]
	if !ok {
		return nil, errors.New("post not found")
	}
	return post, nil
}

func (f *fakePlatform) CreateComment(ctx context.Context, postID, content string) error {
	f.mu.Lock()
	f.comments = append(f.comments, postID+"|"+content)
	f.mu.Unlock()
	if f.log != nil {
		f.log.add("dispatch:" + content)
	}
	return f.postErr
}

func (f *fakePlatform) dispatched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.comments...)
}

type fakeStore struct {
	mu        sync.Mutex
	contexts  []domain.AgentContext
	seeds     []string
	titles    []string
	ctxErr    error
	seedErr   error
	seedJobID string
}

func (s *fakeStore) CreateAgentContext(ctx context.Context, m domain.AgentContext) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctxErr != nil {
		return nil, s.ctxErr
	}
	s.contexts = append(s.contexts, m)
	return json.RawMessage(`{"id":"ctx"}`), nil
}

func (s *fakeStore) CreateSeed(ctx context.Context, text, title string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seedErr != nil {
		return nil, s.seedErr
	}
	s.seeds = append(s.seeds, text)
	s.titles = append(s.titles, title)
	jobID := s.seedJobID
	if jobID == "" {
		jobID = "job-1"
	}
	return []string{jobID}, nil
}

func (s *fakeStore) records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts) + len(s.seeds)
}

// failingLedger keeps ids in memory but never persists.
type failingLedger struct {
	*storage.MemoryLedger
}

func (l failingLedger) MarkHandled(ctx context.Context, id string) error {
	_ = l.MemoryLedger.MarkHandled(ctx, id)
	return errors.New("disk full")
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (n *fakeNotifier) Notify(ctx context.Context, title, body string) error {
	n.mu.Lock()
	n.titles = append(n.titles, title)
	n.mu.Unlock()
	return n.err
}

type harness struct {
	pipeline *Pipeline
	platform *fakePlatform
	store    *fakeStore
	ledger   *storage.MemoryLedger
	notifier *fakeNotifier
	log      *eventLog
	waits    []time.Duration
	hook     *logtest.Hook
}

func newHarness(t *testing.T, posts ...*domain.Post) *harness {
	t.Helper()
	ruleset, err := rules.Default()
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	h := &harness{
		log:      &eventLog{},
		store:    &fakeStore{},
		ledger:   storage.NewMemoryLedger(),
		notifier: &fakeNotifier{},
		hook:     hook,
	}
	h.platform = &fakePlatform{log: h.log, posts: map[string]*domain.Post{}}
	for _, p := range posts {
		h.platform.posts[p.ID] = p
	}

	recorder := NewRecorder(h.store, "NeutronMemoryBot", time.Second, logger, nil)
	recorder.Now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	h.pipeline = New(Deps{
		Platform:   h.platform,
		Ledger:     h.ledger,
		Rules:      ruleset,
		Dispatcher: NewDispatcher(h.platform, time.Second, logger, nil),
		Recorder:   recorder,
		Notifier:   h.notifier,
		Logger:     logger,
	}, botID, DefaultReplyDelay)
	h.pipeline.Sleep = func(ctx context.Context, d time.Duration) error {
		h.waits = append(h.waits, d)
		h.log.add("wait")
		return ctx.Err()
	}
	return h
}

func comment(id, authorID, name, content string) domain.Comment {
	return domain.Comment{ID: id, PostID: "p1", Author: domain.Author{ID: authorID, Name: name}, Content: content}
}
