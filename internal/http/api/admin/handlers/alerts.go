package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/notewise/aibridge/internal/accounting"
	"github.com/notewise/aibridge/internal/models"
	"gorm.io/gorm"
)

// AlertHandler serves usage alerts.
type AlertHandler struct {
	accountant *accounting.Accountant
}

// NewAlertHandler constructs an AlertHandler.
func NewAlertHandler(accountant *accounting.Accountant) *AlertHandler {
	return &AlertHandler{accountant: accountant}
}

// List returns a user's alerts, newest first, optionally filtered by status.
func (h *AlertHandler) List(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return
	}

	status := models.AlertStatus(c.Query("status"))
	switch status {
	case "", models.AlertStatusSent, models.AlertStatusRead, models.AlertStatusDismissed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be sent, read, or dismissed"})
		return
	}

	alerts, errList := h.accountant.ListAlerts(c.Request.Context(), userID, status)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query alerts failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

type alertStatusRequest struct {
	Status models.AlertStatus `json:"status" binding:"required"`
}

// UpdateStatus transitions an alert to read or dismissed.
func (h *AlertHandler) UpdateStatus(c *gin.Context) {
	alertID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	var req alertStatusRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	errUpdate := h.accountant.UpdateAlertStatus(c.Request.Context(), alertID, req.Status)
	if errors.Is(errUpdate, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	if errUpdate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errUpdate.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
