package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/notewise/aibridge/internal/accounting"
)

var errInvalidWindow = errors.New("start/end must be a valid RFC 3339 range, or period must be daily, weekly, or monthly")

// UsageHandler handles usage statistics endpoints.
type UsageHandler struct {
	accountant *accounting.Accountant
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(accountant *accounting.Accountant) *UsageHandler {
	return &UsageHandler{accountant: accountant}
}

// UserStats returns one user's aggregate usage. The window is either a named
// period (daily, weekly, monthly) anchored at now, or an explicit RFC 3339
// start/end pair.
func (h *UsageHandler) UserStats(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return
	}

	window, errWindow := resolveWindow(c)
	if errWindow != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errWindow.Error()})
		return
	}

	stats, errStats := h.accountant.GetUsage(c.Request.Context(), userID, window)
	if errStats != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query usage failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// SystemStats returns system-wide aggregate usage for a named period.
func (h *UsageHandler) SystemStats(c *gin.Context) {
	period := accounting.SystemPeriod(c.DefaultQuery("period", string(accounting.PeriodDaily)))
	switch period {
	case accounting.PeriodDaily, accounting.PeriodWeekly, accounting.PeriodMonthly:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be daily, weekly, or monthly"})
		return
	}

	stats, errStats := h.accountant.GetSystemUsage(c.Request.Context(), period, time.Now())
	if errStats != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query usage failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// resolveWindow derives the aggregation window from query parameters.
func resolveWindow(c *gin.Context) (accounting.Window, error) {
	startRaw := strings.TrimSpace(c.Query("start"))
	endRaw := strings.TrimSpace(c.Query("end"))
	if startRaw != "" || endRaw != "" {
		start, errStart := time.Parse(time.RFC3339, startRaw)
		if errStart != nil {
			return accounting.Window{}, errInvalidWindow
		}
		end, errEnd := time.Parse(time.RFC3339, endRaw)
		if errEnd != nil || !end.After(start) {
			return accounting.Window{}, errInvalidWindow
		}
		return accounting.Window{Start: start, End: end}, nil
	}

	period := accounting.SystemPeriod(c.DefaultQuery("period", string(accounting.PeriodDaily)))
	switch period {
	case accounting.PeriodDaily, accounting.PeriodWeekly, accounting.PeriodMonthly:
		return accounting.PeriodWindow(period, time.Now()), nil
	default:
		return accounting.Window{}, errInvalidWindow
	}
}
