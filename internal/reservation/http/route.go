package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers reservation routes and the room availability report.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/reservations")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
		group.DELETE("/:id", h.Cancel)
		group.POST("/:id/cancel", h.Cancel)
	}

	g.GET("/rooms/:id/availability", authMiddleware, h.Availability)
}
