package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"neutron-agent/internal/core/domain"
	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/logging"
	"neutron-agent/internal/neutron"
)

const (
	defaultMemoryType = "episodic"
	fetchConcurrency  = 4
)

// MemoryAPI is the subset of the Neutron client the dashboard reads and writes.
type MemoryAPI interface {
	CreateAgentContext(ctx context.Context, memory domain.AgentContext) (json.RawMessage, error)
	ListAgentContexts(ctx context.Context, agentID string) (*neutron.AgentContextList, error)
	QuerySeeds(ctx context.Context, q neutron.SeedQuery) ([]domain.SeedResult, error)
}

// NoteSaver stores free text as a searchable seed.
type NoteSaver interface {
	SaveNote(ctx context.Context, text, title string) domain.RecordResult
}

// Handler serves the dashboard JSON API.
type Handler struct {
	platform  ports.Platform
	memory    MemoryAPI
	notes     NoteSaver
	agentName string
	watched   []string
	logger    logging.Logger
}

func NewHandler(platform ports.Platform, memory MemoryAPI, notes NoteSaver, agentName string, watched []string, logger logging.Logger) *Handler {
	return &Handler{
		platform:  platform,
		memory:    memory,
		notes:     notes,
		agentName: agentName,
		watched:   watched,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/moltbook/posts", h.ListPosts)
	api.GET("/neutron/memories", h.ListMemories)
	api.POST("/neutron/memories", h.CreateMemory)
	api.POST("/neutron/seeds", h.SearchSeeds)
}

// ListPosts fetches every watched post concurrently. Posts that fail to load are left out.
func (h *Handler) ListPosts(c *gin.Context) {
	posts := make([]*domain.Post, len(h.watched))

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(fetchConcurrency)
	for i, postID := range h.watched {
		g.Go(func() error {
			post, err := h.platform.GetPost(ctx, postID)
			if err != nil {
				h.logger.WithError(err).WithField("post_id", postID).Warn("Dashboard post fetch failed")
				return nil
			}
			posts[i] = post
			return nil
		})
	}
	_ = g.Wait()

	loaded := make([]*domain.Post, 0, len(posts))
	for _, p := range posts {
		if p != nil {
			loaded = append(loaded, p)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "posts": loaded})
}

func (h *Handler) ListMemories(c *gin.Context) {
	list, err := h.memory.ListAgentContexts(c.Request.Context(), h.agentName)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list memories")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "memories": list.Items, "total": list.Total})
}

type createMemoryRequest struct {
	MemoryType string          `json:"memoryType"`
	Data       json.RawMessage `json:"data"`
}

// CreateMemory stores an agent context and, best-effort, the same content as a seed.
func (h *Handler) CreateMemory(c *gin.Context) {
	var req createMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Data) == 0 || string(req.Data) == "null" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "data is required"})
		return
	}
	if req.MemoryType == "" {
		req.MemoryType = defaultMemoryType
	}

	memory, err := h.memory.CreateAgentContext(c.Request.Context(), domain.AgentContext{
		AgentID:    h.agentName,
		MemoryType: req.MemoryType,
		Data:       req.Data,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to create memory")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	seed := h.notes.SaveNote(c.Request.Context(), noteText(req.Data), "Memory: "+req.MemoryType)
	c.JSON(http.StatusOK, gin.H{"success": true, "memory": memory, "seed": seed})
}

// noteText unwraps a JSON string and keeps any other value as compact JSON.
func noteText(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

type searchRequest struct {
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Threshold float64 `json:"threshold"`
}

// SearchSeeds runs a semantic query. Limit and threshold default to 10 and 0.5.
func (h *Handler) SearchSeeds(c *gin.Context) {
	var req searchRequest
	_ = c.ShouldBindJSON(&req)
	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "query is required"})
		return
	}

	results, err := h.memory.QuerySeeds(c.Request.Context(), neutron.SeedQuery{
		Query:     query,
		Limit:     req.Limit,
		Threshold: req.Threshold,
	})
	if err != nil {
		h.logger.WithError(err).Error("Seed query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": results, "count": len(results)})
}
