package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fitcoach-backend/internal/aggregator"
	"fitcoach-backend/internal/models"
)

// SessionLookup exposes the open live sessions
type SessionLookup interface {
	GetSession(deviceID string) (aggregator.SessionInfo, bool)
	GetAllDevices() []string
}

// RepHistory reads stored rep results
type RepHistory interface {
	GetRecentReps(deviceID string, limit int) ([]models.RepResult, error)
}

// HealthResponse is the body of GET /api/v1/health
type HealthResponse struct {
	Status         string    `json:"status"`
	Service        string    `json:"service"`
	ModelVersion   string    `json:"model_version"`
	Timestamp      time.Time `json:"timestamp"`
	ActiveSessions int       `json:"active_sessions"`
}

const (
	defaultRepLimit = 20
	maxRepLimit     = 500
)

// StatusHandler serves health and per-device status
type StatusHandler struct {
	classifier Classifier
	sessions   SessionLookup
	history    RepHistory
}

// NewStatusHandler creates a status handler; sessions and history may be nil
func NewStatusHandler(classifier Classifier, sessions SessionLookup, history RepHistory) *StatusHandler {
	return &StatusHandler{classifier: classifier, sessions: sessions, history: history}
}

// Health reports service status
func (h *StatusHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Service:   "fitcoach-backend",
		Timestamp: time.Now().UTC(),
	}
	if h.classifier != nil {
		resp.ModelVersion = h.classifier.Version()
	}
	if h.sessions != nil {
		resp.ActiveSessions = len(h.sessions.GetAllDevices())
	}
	c.JSON(http.StatusOK, resp)
}

// Session returns the open live session of a device
func (h *StatusHandler) Session(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live ingestion disabled"})
		return
	}

	info, ok := h.sessions.GetSession(c.Param("device_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open session"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// RecentReps returns the latest stored rep results of a device
func (h *StatusHandler) RecentReps(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage disabled"})
		return
	}

	limit := defaultRepLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRepLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid request",
				"details": "limit must be between 1 and " + strconv.Itoa(maxRepLimit),
			})
			return
		}
		limit = n
	}

	reps, err := h.history.GetRecentReps(c.Param("device_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "storage error",
			"details": err.Error(),
		})
		return
	}
	if reps == nil {
		reps = []models.RepResult{}
	}
	c.JSON(http.StatusOK, gin.H{"device_id": c.Param("device_id"), "reps": reps})
}
