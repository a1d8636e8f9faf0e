package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"recoagent/internal/logstore"
	"recoagent/internal/models"
	"recoagent/internal/redis"
	"recoagent/internal/service/chat"
	"recoagent/internal/stats"
)

// Handler wires HTTP routes to the chat orchestrator and stats aggregator.
type Handler struct {
	chat         *chat.Service
	stats        *stats.Aggregator
	logs         *logstore.Store
	cache        *redis.Client
	cacheTTL     time.Duration
	defaultAgent int64
}

// NewHandler constructs a Handler instance. cache may be nil; summaries are
// then recomputed on every request.
func NewHandler(chatSvc *chat.Service, aggregator *stats.Aggregator, logs *logstore.Store, cache *redis.Client, cacheTTL time.Duration, defaultAgent int64) *Handler {
	return &Handler{
		chat:         chatSvc,
		stats:        aggregator,
		logs:         logs,
		cache:        cache,
		cacheTTL:     cacheTTL,
		defaultAgent: defaultAgent,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/chat", h.postChat)
	router.GET("/stats/:agent_id", h.getStats)
	// gin cannot mix a static "realtime" segment with the :agent_id
	// wildcard, so the realtime route reuses the wildcard and validates it.
	router.GET("/stats/:agent_id/:id", h.getRealtimeStats)
	router.GET("/logs/:agent_id", h.getLogs)
	router.GET("/activite/:agent_id", h.getActivity)
	router.GET("/performance/:agent_id", h.getPerformance)
	router.GET("/pic-usage/:agent_id", h.getPeakUsage)
}

type chatRequest struct {
	Message string `json:"message"`
	AgentID int64  `json:"agent_id"`
}

func (h *Handler) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	agentID := req.AgentID
	if agentID <= 0 {
		agentID = h.defaultAgent
	}

	reply, err := h.chat.Ask(c.Request.Context(), agentID, req.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Message manquant"})
			return
		}
		h.invalidateStats(c, agentID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.invalidateStats(c, agentID)
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

func (h *Handler) getStats(c *gin.Context) {
	agentID, ok := agentIDParam(c, "agent_id")
	if !ok {
		return
	}

	key := statsKey(agentID)
	if cached, err := h.cache.Get(c.Request.Context(), key); err == nil {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
		return
	} else if !errors.Is(err, redis.ErrCacheMiss) {
		log.Printf("stats cache read: %v", err)
	}

	summary := h.stats.Summarize(agentID)
	if payload, err := json.Marshal(summary); err == nil {
		if err := h.cache.Set(c.Request.Context(), key, payload, h.cacheTTL); err != nil {
			log.Printf("stats cache write: %v", err)
		}
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) getRealtimeStats(c *gin.Context) {
	if c.Param("agent_id") != "realtime" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	agentID, ok := agentIDParam(c, "id")
	if !ok {
		return
	}
	timeline := h.stats.RecentTimeline(agentID, stats.DefaultTimelineSize)
	c.JSON(http.StatusOK, timeline)
}

func (h *Handler) getLogs(c *gin.Context) {
	agentID, ok := agentIDParam(c, "agent_id")
	if !ok {
		return
	}
	turns := h.logs.ReadAll(agentID)
	if turns == nil {
		turns = make([]models.ChatTurn, 0)
	}
	c.JSON(http.StatusOK, turns)
}

func (h *Handler) getActivity(c *gin.Context) {
	agentID, ok := agentIDParam(c, "agent_id")
	if !ok {
		return
	}
	histogram := h.stats.HourlyActivity(agentID)
	if histogram.Labels == nil {
		histogram.Labels = make([]string, 0)
		histogram.Data = make([]int, 0)
	}
	c.JSON(http.StatusOK, histogram)
}

func (h *Handler) getPerformance(c *gin.Context) {
	agentID, ok := agentIDParam(c, "agent_id")
	if !ok {
		return
	}
	courbe := h.stats.HourlyPerformance(agentID)
	if courbe == nil {
		courbe = make([]models.PerformancePoint, 0)
	}
	c.JSON(http.StatusOK, gin.H{
		"courbe":           courbe,
		"requetes_actives": 0,
		"file_attente":     0,
		"temps_reponse":    0,
	})
}

func (h *Handler) getPeakUsage(c *gin.Context) {
	agentID, ok := agentIDParam(c, "agent_id")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"utilisation": h.stats.PeakUsage(agentID)})
}

func (h *Handler) invalidateStats(c *gin.Context, agentID int64) {
	if err := h.cache.Del(c.Request.Context(), statsKey(agentID)); err != nil {
		log.Printf("stats cache invalidate: %v", err)
	}
}

func statsKey(agentID int64) string {
	return fmt.Sprintf("stats:%d", agentID)
}

func agentIDParam(c *gin.Context, name string) (int64, bool) {
	agentID, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || agentID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agent id"})
		return 0, false
	}
	return agentID, true
}
