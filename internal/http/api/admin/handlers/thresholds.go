package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/notewise/aibridge/internal/accounting"
)

// ThresholdHandler manages per-user usage limits and alert preferences.
type ThresholdHandler struct {
	accountant *accounting.Accountant
}

// NewThresholdHandler constructs a ThresholdHandler.
func NewThresholdHandler(accountant *accounting.Accountant) *ThresholdHandler {
	return &ThresholdHandler{accountant: accountant}
}

type thresholdRequest struct {
	DailyLimit     int64 `json:"daily_limit"`
	MonthlyLimit   int64 `json:"monthly_limit"`
	AlertEnabled   bool  `json:"alert_enabled"`
	AlertThreshold int   `json:"alert_threshold"`
}

// Get returns a user's threshold configuration.
func (h *ThresholdHandler) Get(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return
	}

	config, errGet := h.accountant.GetThreshold(c.Request.Context(), userID)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query threshold failed"})
		return
	}
	if config == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "threshold not configured"})
		return
	}
	c.JSON(http.StatusOK, config)
}

// Put creates or replaces a user's threshold configuration.
func (h *ThresholdHandler) Put(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return
	}

	var req thresholdRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	errSet := h.accountant.SetThreshold(c.Request.Context(), accounting.ThresholdInput{
		UserID:         userID,
		DailyLimit:     req.DailyLimit,
		MonthlyLimit:   req.MonthlyLimit,
		AlertEnabled:   req.AlertEnabled,
		AlertThreshold: req.AlertThreshold,
	})
	if errSet != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errSet.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
