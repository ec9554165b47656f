// Package admin registers the reporting and configuration routes.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/notewise/aibridge/internal/accounting"
	"github.com/notewise/aibridge/internal/http/api/admin/handlers"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers health, usage reporting, threshold, and
// alert routes.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, accountant *accounting.Accountant) {
	if r == nil || db == nil || accountant == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	admin := r.Group("/v0/admin")

	usageHandler := handlers.NewUsageHandler(accountant)
	admin.GET("/usage/users/:user_id", usageHandler.UserStats)
	admin.GET("/usage/system", usageHandler.SystemStats)

	thresholdHandler := handlers.NewThresholdHandler(accountant)
	admin.GET("/thresholds/:user_id", thresholdHandler.Get)
	admin.PUT("/thresholds/:user_id", thresholdHandler.Put)

	alertHandler := handlers.NewAlertHandler(accountant)
	admin.GET("/alerts/:user_id", alertHandler.List)
	admin.POST("/alerts/:id/status", alertHandler.UpdateStatus)
}
