package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers room-related routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	group := g.Group("/rooms")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)               // List rooms
		group.GET("/:id", h.Get)            // Get room details
		group.GET("/:id/photo", h.GetPhoto) // Download room photo
	}

	// === Admin Routes ===
	admin := group.Group("", adminMiddleware)
	{
		admin.POST("", h.Create)               // Create room
		admin.PATCH("/:id", h.Update)          // Update room
		admin.DELETE("/:id", h.Delete)         // Delete room
		admin.PUT("/:id/photo", h.UploadPhoto) // Replace room photo
	}
}
