package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/reservation"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
	"github.com/nekogravitycat/room-booking-backend/internal/user"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router     *gin.Engine
	roomID     string
	aliceToken string
	bobToken   string
	adminToken string
}

func setupEnv(t *testing.T, svc reservation.Service) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	rooms := room.NewMemoryRepository()
	rm := &room.Room{Name: "Board Room", Capacity: 10, HourlyRate: decimal.NewFromInt(20), IsActive: true}
	require.NoError(t, rooms.Create(ctx, rm))

	if svc == nil {
		svc = reservation.NewService(reservation.NewMemoryRepository(), rooms, log)
	}

	users := user.NewService(user.NewMemoryRepository(), auth.NewBcryptPasswordHasher(4), log)
	jwtManager := auth.NewJWTManager("handler-test-secret", time.Hour)

	token := func(email string, admin bool) string {
		u, err := users.Register(ctx, email, "password123", "")
		require.NoError(t, err)
		if admin {
			_, err = users.GrantAdmin(ctx, email)
			require.NoError(t, err)
		}
		tok, err := jwtManager.GenerateAccessToken(u.ID, u.Email)
		require.NoError(t, err)
		return tok
	}

	env := &testEnv{
		roomID:     rm.ID,
		aliceToken: token("alice@example.com", false),
		bobToken:   token("bob@example.com", false),
		adminToken: token("admin@example.com", true),
	}

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(svc, users), auth.AuthRequired(jwtManager))
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createBody(roomID, start, end string) gin.H {
	return gin.H{"room_id": roomID, "start_time": start, "end_time": end, "attendees": 4}
}

func TestCreateAndConflict(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/reservations", env.aliceToken,
		createBody(env.roomID, "2030-03-01T09:00:00Z", "2030-03-01T11:00:00Z"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "confirmed", created["status"])
	assert.Equal(t, "40", created["total_price"])
	assert.Equal(t, env.roomID, created["room_id"])

	w = env.do(t, http.MethodPost, "/v1/reservations", env.bobToken,
		createBody(env.roomID, "2030-03-01T10:30:00Z", "2030-03-01T12:00:00Z"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "interval_conflict", decode(t, w)["kind"])

	// Touching intervals do not overlap.
	w = env.do(t, http.MethodPost, "/v1/reservations", env.bobToken,
		createBody(env.roomID, "2030-03-01T11:00:00Z", "2030-03-01T12:00:00Z"))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateRejectsBadInput(t *testing.T) {
	env := setupEnv(t, nil)

	tests := []struct {
		name string
		body any
		code int
		kind string
	}{
		{"missing room", gin.H{"start_time": "2030-03-01T09:00:00Z", "end_time": "2030-03-01T10:00:00Z"}, http.StatusBadRequest, "invalid_input"},
		{"reversed interval", createBody(env.roomID, "2030-03-01T10:00:00Z", "2030-03-01T09:00:00Z"), http.StatusBadRequest, "invalid_interval"},
		{"unknown room", createBody("00000000-0000-0000-0000-000000000000", "2030-03-01T09:00:00Z", "2030-03-01T10:00:00Z"), http.StatusNotFound, "resource_not_found"},
		{"too many attendees", gin.H{"room_id": env.roomID, "start_time": "2030-03-01T09:00:00Z", "end_time": "2030-03-01T10:00:00Z", "attendees": 11}, http.StatusUnprocessableEntity, "capacity_exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/v1/reservations", env.aliceToken, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, decode(t, w)["kind"])
		})
	}
}

func TestRequiresAuthentication(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.do(t, http.MethodGet, "/v1/reservations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/v1/rooms/"+env.roomID+"/availability", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVisibility(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/reservations", env.aliceToken,
		createBody(env.roomID, "2030-03-02T09:00:00Z", "2030-03-02T10:00:00Z"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = env.do(t, http.MethodGet, "/v1/reservations/"+id, env.bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/v1/reservations/"+id, env.adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/reservations", env.bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total"])

	w = env.do(t, http.MethodGet, "/v1/reservations?room_id="+env.roomID, env.adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.EqualValues(t, 1, page["total"])
	assert.Len(t, page["items"], 1)
}

func TestCancelAndUpdate(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/reservations", env.aliceToken,
		createBody(env.roomID, "2030-03-03T09:00:00Z", "2030-03-03T10:00:00Z"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	w = env.do(t, http.MethodPatch, "/v1/reservations/"+id, env.aliceToken, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, "/v1/reservations/"+id, env.aliceToken,
		gin.H{"end_time": "2030-03-03T10:30:00Z", "purpose": "planning"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)
	assert.Equal(t, "40", updated["total_price"])
	assert.Equal(t, "planning", updated["purpose"])

	w = env.do(t, http.MethodDelete, "/v1/reservations/"+id, env.bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/v1/reservations/"+id, env.aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode(t, w)["status"])

	w = env.do(t, http.MethodPost, "/v1/reservations/"+id+"/cancel", env.aliceToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_state", decode(t, w)["kind"])
}

func TestAvailability(t *testing.T) {
	env := setupEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/reservations", env.aliceToken,
		createBody(env.roomID, "2030-03-04T10:00:00Z", "2030-03-04T11:00:00Z"))
	require.Equal(t, http.StatusCreated, w.Code)

	q := url.Values{}
	q.Set("start", "2030-03-04T09:00:00+01:00")
	q.Set("end", "2030-03-04T13:00:00Z")
	w = env.do(t, http.MethodGet, "/v1/rooms/"+env.roomID+"/availability?"+q.Encode(), env.bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var av AvailabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &av))
	assert.Equal(t, env.roomID, av.RoomID)
	assert.True(t, av.StartTime.Equal(time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)))
	require.Len(t, av.Booked, 1)
	require.Len(t, av.Free, 2)
	assert.True(t, av.Free[0].EndTime.Equal(time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)))
	assert.True(t, av.Free[1].StartTime.Equal(time.Date(2030, 3, 4, 11, 0, 0, 0, time.UTC)))

	w = env.do(t, http.MethodGet, "/v1/rooms/"+env.roomID+"/availability?start=2030-03-04T09:00:00Z", env.bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// busyService reports exhausted commit retries on every write.
type busyService struct {
	reservation.Service
}

func (busyService) Create(context.Context, reservation.CreateRequest) (*reservation.Reservation, error) {
	return nil, reservation.ErrCommitRetriesExhausted
}

func TestRetriesExhaustedIsRetryable(t *testing.T) {
	env := setupEnv(t, busyService{})

	w := env.do(t, http.MethodPost, "/v1/reservations", env.aliceToken,
		createBody(env.roomID, "2030-03-05T09:00:00Z", "2030-03-05T10:00:00Z"))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Equal(t, "unavailable", decode(t, w)["kind"])
}
