package poller

import (
	"context"
	"time"

	"neutron-agent/internal/core/domain"
	"neutron-agent/internal/logging"
)

// Checker runs one intake pass over a set of posts.
type Checker interface {
	CheckAll(ctx context.Context, postIDs []string) []domain.BatchResult
}

// Poller checks the watched posts at start, then every interval or when triggered.
type Poller struct {
	checker  Checker
	postIDs  []string
	interval time.Duration
	logger   logging.Logger
	trigger  chan struct{}
}

func New(checker Checker, postIDs []string, interval time.Duration, logger logging.Logger) *Poller {
	return &Poller{
		checker:  checker,
		postIDs:  postIDs,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate pass. Requests made while one is pending are coalesced.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.WithFields(logging.Fields{
		"interval": p.interval.String(),
		"posts":    len(p.postIDs),
	}).Info("Starting polling mode")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.RunOnce(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info("Polling stopped")
			return nil
		case <-ticker.C:
		case <-p.trigger:
			p.logger.Info("Manual trigger")
		}
	}
}

// RunOnce performs a single pass and logs per-post failures.
func (p *Poller) RunOnce(ctx context.Context) []domain.BatchResult {
	p.logger.Debug("Polling for new comments")
	results := p.checker.CheckAll(ctx, p.postIDs)
	for _, res := range results {
		if res.Error != "" {
			p.logger.WithField("post_id", res.PostID).WithField("error", res.Error).Error("Error checking post")
		}
	}
	return results
}
