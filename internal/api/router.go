package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/config"
	"github.com/nekogravitycat/room-booking-backend/internal/reservation"
	reservationHttp "github.com/nekogravitycat/room-booking-backend/internal/reservation/http"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
	roomHttp "github.com/nekogravitycat/room-booking-backend/internal/room/http"
	"github.com/nekogravitycat/room-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/room-booking-backend/internal/user/http"
)

// Config holds the HTTP-layer dependencies of the router.
type Config struct {
	IsProduction bool
	ProdOrigins  string // comma separated
	RateLimit    config.RateLimitConfig
	Redis        redis.Scripter // optional
	Log          *logrus.Entry
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, logging, rate limiting, auth) and registering routes for each module.
func NewRouter(
	cfg Config,
	userService user.Service,
	roomService room.Service,
	reservationService reservation.Service,
	jwtManager *auth.JWTManager,
) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	log := cfg.Log.WithField("component", "http")

	// Global Middleware:
	// - Recovery: Captures panics and returns a 500 error.
	// - RequestLogger: one structured line per request.
	r.Use(gin.Recovery(), RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		for _, o := range strings.Split(cfg.ProdOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsConfig.AllowOrigins = append(corsConfig.AllowOrigins, o)
			}
		}
		if len(corsConfig.AllowOrigins) == 0 {
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8081"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(jwtManager)
	// sysAdminMiddleware: Further checks if the authenticated user has System Admin privileges.
	sysAdminMiddleware := RequireSystemAdmin(userService)

	userHandler := userHttp.NewUserHandler(userService, jwtManager)
	roomHandler := roomHttp.NewHandler(roomService)
	reservationHandler := reservationHttp.NewHandler(reservationService, userService)

	// Register API routes under /v1
	v1 := r.Group("/v1", RateLimit(cfg.RateLimit, cfg.Redis, log))
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware, sysAdminMiddleware)
		roomHttp.RegisterRoutes(v1, roomHandler, authMiddleware, sysAdminMiddleware)
		reservationHttp.RegisterRoutes(v1, reservationHandler, authMiddleware)
	}

	return r
}
