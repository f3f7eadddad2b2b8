package pipeline

import (
	"context"
	"time"

	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/logging"
	"neutron-agent/internal/monitoring"
)

const defaultCallTimeout = 15 * time.Second

// Dispatcher posts replies to the platform. It never retries; a failed post
// leaves the comment eligible for the next intake pass.
type Dispatcher struct {
	platform ports.Platform
	timeout  time.Duration
	logger   logging.Logger
	metrics  *monitoring.PipelineMetrics
}

func NewDispatcher(platform ports.Platform, timeout time.Duration, logger logging.Logger, metrics *monitoring.PipelineMetrics) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Dispatcher{platform: platform, timeout: timeout, logger: logger, metrics: metrics}
}

// PostReply reports whether the platform accepted the reply.
func (d *Dispatcher) PostReply(ctx context.Context, postID, text string) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.platform.CreateComment(ctx, postID, text)
	d.metrics.ObserveDispatch(err == nil)
	if err != nil {
		d.logger.WithError(err).WithField("post_id", postID).Error("Failed to post reply")
		return false
	}
	d.logger.WithField("post_id", postID).Info("Reply posted")
	return true
}
