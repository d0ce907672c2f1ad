package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/user"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()
	users := user.NewService(user.NewMemoryRepository(), auth.NewBcryptPasswordHasher(4), logrus.NewEntry(logger))
	jwtManager := auth.NewJWTManager("user-handler-secret", time.Hour)

	r := gin.New()
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }
	RegisterRoutes(r.Group("/v1"), NewUserHandler(users, jwtManager), auth.AuthRequired(jwtManager), deny)
	return r
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginMe(t *testing.T) {
	r := setupRouter()

	w := postJSON(r, "/v1/auth/register", gin.H{"email": "carol@example.com", "password": "password123", "display_name": "Carol"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(r, "/v1/auth/register", gin.H{"email": "carol@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/v1/auth/register", gin.H{"email": "not-an-email", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(r, "/v1/auth/login", gin.H{"email": "carol@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(r, "/v1/auth/login", gin.H{"email": "carol@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.AccessToken)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var me MeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "carol@example.com", me.User.Email)
	assert.Equal(t, "Carol", *me.User.DisplayName)
	assert.NotNil(t, me.User.LastLoginAt)
}

func TestAdminRoutesAreGuarded(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
