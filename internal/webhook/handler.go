package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"neutron-agent/internal/core/domain"
	"neutron-agent/internal/logging"
	"neutron-agent/internal/sites/moltbook"
)

// Event types delivered by Moltbook.
const (
	EventCommentCreated = "comment.created"
	EventPostUpvoted    = "post.upvoted"
	EventMention        = "mention"
)

// Intake is the comment pipeline as seen by the HTTP adapters.
type Intake interface {
	HandleComment(ctx context.Context, comment domain.Comment) domain.CommentOutcome
	CheckPost(ctx context.Context, postID string) (domain.BatchResult, error)
	CheckAll(ctx context.Context, postIDs []string) []domain.BatchResult
}

// Envelope is the webhook body.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// CommentCreated is the data of a comment.created event.
type CommentCreated struct {
	CommentID string             `json:"comment_id"`
	PostID    string             `json:"post_id"`
	Author    moltbook.ApiAuthor `json:"author"`
	Content   string             `json:"content"`
}

type mentionData struct {
	Author  moltbook.ApiAuthor `json:"author"`
	Context string             `json:"context"`
}

type checkCommentsRequest struct {
	PostID string `json:"postId"`
}

// Handler serves the webhook receiver and the manual trigger routes.
type Handler struct {
	intake  Intake
	watched []string
	logger  logging.Logger
}

func NewHandler(intake Intake, watched []string, logger logging.Logger) *Handler {
	return &Handler{intake: intake, watched: watched, logger: logger}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhook/moltbook", h.Webhook)
	r.POST("/trigger/check-comments", h.CheckComments)
	r.POST("/trigger/check-all", h.CheckAll)
}

// Webhook runs comment.created events through the pipeline and logs the rest.
func (h *Handler) Webhook(c *gin.Context) {
	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid webhook payload"})
		return
	}
	logger := h.logger.WithFields(logging.Fields{
		"event":      env.Event,
		"request_id": c.GetString("request_id"),
	})
	logger.Info("Webhook received")

	switch env.Event {
	case EventCommentCreated:
		var data CommentCreated
		if err := json.Unmarshal(env.Data, &data); err != nil || data.CommentID == "" || data.PostID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "comment_id and post_id required"})
			return
		}
		outcome := h.intake.HandleComment(c.Request.Context(), domain.Comment{
			ID:      data.CommentID,
			PostID:  data.PostID,
			Author:  domain.Author{ID: data.Author.ID, Name: data.Author.Name},
			Content: data.Content,
		})
		if outcome.State == domain.StateError {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": outcome.Error, "outcome": outcome})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "event": env.Event, "outcome": outcome})
		return

	case EventPostUpvoted:
		logger.Info("Post upvoted")

	case EventMention:
		var data mentionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			logger.WithError(err).Debug("Mention payload not decoded")
		}
		logger.WithFields(logging.Fields{
			"author":  data.Author.Name,
			"context": data.Context,
		}).Info("Mentioned")

	default:
		logger.Warn("Unknown webhook event")
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "event": env.Event})
}

// CheckComments runs one post through the pipeline on demand.
func (h *Handler) CheckComments(c *gin.Context) {
	var req checkCommentsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "postId required"})
		return
	}

	res, err := h.intake.CheckPost(c.Request.Context(), req.PostID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "newReplies": res.Replies, "outcomes": res.Outcomes})
}

// CheckAll checks every watched post.
func (h *Handler) CheckAll(c *gin.Context) {
	results := h.intake.CheckAll(c.Request.Context(), h.watched)
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}
