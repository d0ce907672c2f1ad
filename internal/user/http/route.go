package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers account routes: sign-up/sign-in, the caller's
// profile, and admin user management.
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware, adminMiddleware gin.HandlerFunc) {
	// === Public Routes ===
	g.POST("/auth/register", h.Register) // Create account
	g.POST("/auth/login", h.Login)       // Exchange credentials for a token

	// === Authenticated Routes ===
	g.GET("/me", authMiddleware, h.Me) // Current user

	// === Admin Routes ===
	admin := g.Group("/users", authMiddleware, adminMiddleware)
	{
		admin.GET("", h.List)         // List users
		admin.GET("/:id", h.Get)      // Get user
		admin.PATCH("/:id", h.Update) // Toggle active / admin flags
	}
}
