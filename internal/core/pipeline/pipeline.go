package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"neutron-agent/internal/core/domain"
	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/core/rules"
	"neutron-agent/internal/logging"
	"neutron-agent/internal/monitoring"
)

// DefaultReplyDelay spaces dispatches within one batch.
const DefaultReplyDelay = 3 * time.Second

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Platform   ports.Platform
	Ledger     ports.Ledger
	Rules      *rules.Ruleset
	Dispatcher *Dispatcher
	Recorder   *Recorder
	// Notifier is optional.
	Notifier ports.Notifier
	Logger   logging.Logger
	Metrics  *monitoring.PipelineMetrics
}

// Pipeline runs the per-comment intake state machine for both webhook
// deliveries and poll batches.
type Pipeline struct {
	deps    Deps
	agentID string
	delay   time.Duration

	// Sleep waits between dispatches; replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// New builds a pipeline. agentID identifies the bot's own comments.
func New(deps Deps, agentID string, delay time.Duration) *Pipeline {
	if delay < 0 {
		delay = 0
	}
	return &Pipeline{
		deps:     deps,
		agentID:  agentID,
		delay:    delay,
		Sleep:    sleepContext,
		inFlight: make(map[string]struct{}),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pacer inserts the reply delay before every dispatch except the first.
type pacer struct {
	p          *Pipeline
	dispatched bool
}

func (pc *pacer) beforeDispatch(ctx context.Context) error {
	if !pc.dispatched {
		pc.dispatched = true
		return ctx.Err()
	}
	return pc.p.Sleep(ctx, pc.p.delay)
}

// threadSource yields the post content and comment lines for a snapshot.
type threadSource func(ctx context.Context) (postContent string, lines []string, err error)

// HandleComment processes a single webhook comment. The post is fetched only
// after a successful dispatch, to build the thread snapshot.
func (p *Pipeline) HandleComment(ctx context.Context, comment domain.Comment) domain.CommentOutcome {
	thread := func(ctx context.Context) (string, []string, error) {
		post, err := p.deps.Platform.GetPost(ctx, comment.PostID)
		if err != nil {
			return "", nil, fmt.Errorf("fetch post for snapshot: %w", err)
		}
		return post.Content, CommentLines(post.ThreadUpTo(comment.ID)), nil
	}
	return p.process(ctx, &pacer{p: p}, comment, thread)
}

// CheckPost fetches one post and runs every comment through the pipeline in list order.
func (p *Pipeline) CheckPost(ctx context.Context, postID string) (domain.BatchResult, error) {
	return p.checkPost(ctx, &pacer{p: p}, postID)
}

// CheckAll checks each post in turn. The reply delay spans the whole pass.
// A failed fetch is reported on that post's result and does not stop the pass.
func (p *Pipeline) CheckAll(ctx context.Context, postIDs []string) []domain.BatchResult {
	pc := &pacer{p: p}
	results := make([]domain.BatchResult, 0, len(postIDs))
	for _, postID := range postIDs {
		if ctx.Err() != nil {
			results = append(results, domain.BatchResult{PostID: postID, Replies: []domain.NewReply{}, Error: ctx.Err().Error()})
			continue
		}
		res, err := p.checkPost(ctx, pc, postID)
		if err != nil {
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results
}

func (p *Pipeline) checkPost(ctx context.Context, pc *pacer, postID string) (domain.BatchResult, error) {
	logger := p.deps.Logger.WithField("post_id", postID)
	result := domain.BatchResult{PostID: postID, Replies: []domain.NewReply{}, Outcomes: []domain.CommentOutcome{}}

	post, err := p.deps.Platform.GetPost(ctx, postID)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch post")
		return result, err
	}

	for i, comment := range post.Comments {
		if comment.PostID == "" {
			comment.PostID = postID
		}
		if err := ctx.Err(); err != nil {
			logger.WithError(err).Warn("Batch cancelled")
			return result, err
		}

		thread := post.Comments[:i+1]
		outcome := p.process(ctx, pc, comment, func(context.Context) (string, []string, error) {
			return post.Content, CommentLines(thread), nil
		})
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.State == domain.StateDone {
			result.Replies = append(result.Replies, domain.NewReply{
				Author: outcome.Author,
				Reply:  Excerpt(outcome.Reply, excerptLength),
			})
		}
	}

	logger.WithFields(logging.Fields{
		"comments": len(post.Comments),
		"replies":  len(result.Replies),
	}).Info("Post checked")
	return result, nil
}

// process drives one comment to a terminal state. A panic is converted into
// StateError so the rest of the batch still runs.
func (p *Pipeline) process(ctx context.Context, pc *pacer, comment domain.Comment, thread threadSource) (outcome domain.CommentOutcome) {
	outcome = domain.CommentOutcome{
		CommentID: comment.ID,
		PostID:    comment.PostID,
		Author:    comment.Author.Name,
	}
	logger := p.deps.Logger.WithFields(logging.Fields{
		"comment_id": comment.ID,
		"post_id":    comment.PostID,
		"author":     comment.Author.Name,
	})

	// A reply that already went out must be marked even if a later step panics.
	var dispatched, marked bool
	defer func() {
		if r := recover(); r != nil {
			outcome.State = domain.StateError
			outcome.Error = fmt.Sprintf("panic: %v", r)
			logger.WithField("panic", r).Error("Comment processing panicked")
			if dispatched && !marked {
				outcome.PersistError = p.markHandled(ctx, logger, comment.ID)
			}
		}
		p.deps.Metrics.ObserveComment(string(outcome.State))
	}()

	if comment.ID == "" {
		outcome.State = domain.StateError
		outcome.Error = "comment id is empty"
		return outcome
	}

	if p.agentID != "" && comment.Author.ID == p.agentID {
		outcome.State = domain.StateSkippedOwn
		return outcome
	}

	if !p.claim(comment.ID) {
		logger.Debug("Already handled")
		outcome.State = domain.StateSkippedHandled
		return outcome
	}
	defer p.release(comment.ID)

	if p.deps.Rules.Spam.IsSpam(comment.Content) {
		logger.Info("Spam comment skipped")
		outcome.State = domain.StateSkippedSpam
		outcome.PersistError = p.markHandled(ctx, logger, comment.ID)
		return outcome
	}

	reply := p.deps.Rules.Replies.Generate(comment.Author.Name, comment.Content)
	outcome.Reply = reply

	if err := pc.beforeDispatch(ctx); err != nil {
		outcome.State = domain.StateError
		outcome.Error = err.Error()
		return outcome
	}

	if !p.deps.Dispatcher.PostReply(ctx, comment.PostID, reply) {
		outcome.State = domain.StateFailed
		outcome.Error = "reply was not posted"
		p.notify(ctx, logger, "Reply failed", fmt.Sprintf("Could not reply to %s on post %s", comment.Author.Name, comment.PostID))
		return outcome
	}
	dispatched = true

	interaction := p.deps.Recorder.RecordInteraction(ctx, comment.Author.Name, comment.Content, reply)
	outcome.Interaction = &interaction

	var snapshot domain.RecordResult
	if postContent, lines, err := thread(ctx); err != nil {
		logger.WithError(err).Warn("Thread snapshot skipped")
		snapshot = domain.RecordResult{Status: domain.RecordSkipped, Error: err.Error()}
	} else {
		snapshot = p.deps.Recorder.RecordThreadSnapshot(ctx, postContent, lines, reply, comment.Author.Name)
	}
	outcome.Snapshot = &snapshot

	outcome.PersistError = p.markHandled(ctx, logger, comment.ID)
	marked = true
	outcome.State = domain.StateDone
	logger.WithField("rule", p.deps.Rules.Replies.RuleFor(comment.Content)).Info("Replied to comment")
	p.notify(ctx, logger, "Reply posted", fmt.Sprintf("%s: %s\n\nReply: %s", comment.Author.Name, comment.Content, reply))
	return outcome
}

// claim reserves commentID for this caller. It fails when the id is already
// in the ledger or another delivery is processing it.
func (p *Pipeline) claim(commentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[commentID]; busy {
		return false
	}
	if p.deps.Ledger.Has(commentID) {
		return false
	}
	p.inFlight[commentID] = struct{}{}
	return true
}

func (p *Pipeline) release(commentID string) {
	p.mu.Lock()
	delete(p.inFlight, commentID)
	p.mu.Unlock()
}

// markHandled returns the persistence error text, if any. The id stays in the
// in-memory ledger either way.
func (p *Pipeline) markHandled(ctx context.Context, logger logging.Logger, commentID string) string {
	err := p.deps.Ledger.MarkHandled(ctx, commentID)
	p.deps.Metrics.SetLedgerEntries(p.deps.Ledger.Len())
	if err != nil {
		logger.WithError(err).Error("Failed to persist ledger")
		return err.Error()
	}
	return ""
}

func (p *Pipeline) notify(ctx context.Context, logger logging.Logger, title, body string) {
	if p.deps.Notifier == nil {
		return
	}
	if err := p.deps.Notifier.Notify(ctx, title, body); err != nil {
		logger.WithError(err).Warn("Notification failed")
	}
}

// HandledCount is the number of ids in the ledger.
func (p *Pipeline) HandledCount() int {
	return p.deps.Ledger.Len()
}
