package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/config"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/storage"
	"github.com/nekogravitycat/room-booking-backend/internal/reservation"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
	"github.com/nekogravitycat/room-booking-backend/internal/user"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nullLog() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func newTestRouter(t *testing.T, cfg Config) (*gin.Engine, user.Service, *auth.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := nullLog()
	if cfg.Log == nil {
		cfg.Log = log
	}

	photos, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	users := user.NewService(user.NewMemoryRepository(), auth.NewBcryptPasswordHasher(4), log)
	reservations := reservation.NewMemoryRepository()
	roomRepo := room.NewMemoryRepository()
	rooms := room.NewService(roomRepo, reservations, photos, log)
	reservationSvc := reservation.NewService(reservations, roomRepo, log)
	jwtManager := auth.NewJWTManager("router-test-secret", time.Hour)

	return NewRouter(cfg, users, rooms, reservationSvc, jwtManager), users, jwtManager
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestRouter(t, Config{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	t.Run("dev allows localhost", func(t *testing.T) {
		r, _, _ := newTestRouter(t, Config{})
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("production without origins rejects cross-origin", func(t *testing.T) {
		r, _, _ := newTestRouter(t, Config{IsProduction: true})
		defer gin.SetMode(gin.TestMode)
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequireSystemAdmin(t *testing.T) {
	r, users, jwtManager := newTestRouter(t, Config{})
	ctx := context.Background()

	member, err := users.Register(ctx, "member@example.com", "password123", "")
	require.NoError(t, err)
	admin, err := users.Register(ctx, "admin@example.com", "password123", "")
	require.NoError(t, err)
	_, err = users.GrantAdmin(ctx, admin.Email)
	require.NoError(t, err)

	tests := []struct {
		name string
		id   string
		code int
	}{
		{"member is forbidden", member.ID, http.StatusForbidden},
		{"admin passes", admin.ID, http.StatusOK},
		{"unknown user", "00000000-0000-0000-0000-000000000000", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := jwtManager.GenerateAccessToken(tt.id, "x@example.com")
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/v1/users", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, hook := test.NewNullLogger()

	r := gin.New()
	r.Use(RequestLogger(logrus.NewEntry(logger)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "/ok", entry.Data["path"])
	assert.Equal(t, http.StatusNoContent, entry.Data["status"])

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestRateLimitPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	unreachable := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = unreachable.Close() })

	tests := []struct {
		name string
		cfg  config.RateLimitConfig
		rdb  redis.Scripter
	}{
		{"disabled", config.RateLimitConfig{Enabled: false, Capacity: 1}, unreachable},
		{"no redis", config.RateLimitConfig{Enabled: true, Capacity: 1}, nil},
		{"redis down", config.RateLimitConfig{Enabled: true, Capacity: 1, RefillInterval: time.Second, Prefix: "rl"}, unreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimit(tt.cfg, tt.rdb, nullLog()))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			for i := 0; i < 3; i++ {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
				assert.Equal(t, http.StatusOK, w.Code)
			}
		})
	}
}
