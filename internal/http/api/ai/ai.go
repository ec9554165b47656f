// Package ai registers the completion-serving routes.
package ai

import (
	"github.com/gin-gonic/gin"
	"github.com/notewise/aibridge/internal/accounting"
	"github.com/notewise/aibridge/internal/http/api/ai/handlers"
	"github.com/notewise/aibridge/internal/llm"
)

// RegisterAIRoutes registers the completion endpoints.
func RegisterAIRoutes(r *gin.Engine, client *llm.Client, accountant *accounting.Accountant) {
	if r == nil || client == nil || accountant == nil {
		return
	}

	ai := r.Group("/v0/ai")

	completionHandler := handlers.NewCompletionHandler(client, accountant)
	ai.POST("/completions", completionHandler.Create)
}
