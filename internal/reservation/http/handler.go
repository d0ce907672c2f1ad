package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/room-booking-backend/internal/auth"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/room-booking-backend/internal/reservation"
	"github.com/nekogravitycat/room-booking-backend/internal/user"
)

// UserLookup resolves the acting user to decide privilege.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type Handler struct {
	service reservation.Service
	users   UserLookup
}

func NewHandler(service reservation.Service, users UserLookup) *Handler {
	return &Handler{service: service, users: users}
}

// checkIsSysAdmin helper checks if the current user is a system admin
func (h *Handler) checkIsSysAdmin(c *gin.Context, userID string) bool {
	u, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		return false
	}
	return u.IsSystemAdmin
}

// fail writes err, reporting exhausted commit retries as a retryable 503.
func fail(c *gin.Context, err error) {
	if errors.Is(err, reservation.ErrCommitRetriesExhausted) {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, response.ErrorResponse{
			Error: "reservation store is busy, please retry",
			Kind:  "unavailable",
		})
		return
	}
	response.Error(c, err)
}

func (h *Handler) List(c *gin.Context) {
	var req ListReservationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	// Non-admins only ever see their own reservations.
	currentUserID := auth.GetUserID(c)
	filterUserID := currentUserID
	if h.checkIsSysAdmin(c, currentUserID) {
		filterUserID = req.UserID
	}

	filter := reservation.Filter{
		UserID:    filterUserID,
		RoomID:    req.RoomID,
		Status:    req.Status,
		StartTime: req.StartTimeFrom,
		EndTime:   req.StartTimeTo,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: strings.ToUpper(req.SortOrder),
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}

	resp := make([]ReservationResponse, len(items))
	for i, r := range items {
		resp[i] = NewReservationResponse(r)
	}
	c.JSON(http.StatusOK, response.Paginate(resp, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateReservationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	r, err := h.service.Create(c.Request.Context(), reservation.CreateRequest{
		RoomID:    body.RoomID,
		UserID:    auth.GetUserID(c),
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Attendees: body.Attendees,
		Purpose:   body.Purpose,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewReservationResponse(r))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	r, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		fail(c, err)
		return
	}

	userID := auth.GetUserID(c)
	if r.UserID != userID && !h.checkIsSysAdmin(c, userID) {
		response.Error(c, reservation.ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body UpdateReservationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	userID := auth.GetUserID(c)
	r, err := h.service.Update(c.Request.Context(), uri.ID, reservation.UpdateRequest{
		StartTime: body.StartTime,
		EndTime:   body.EndTime,
		Attendees: body.Attendees,
		Purpose:   body.Purpose,
		Status:    body.Status,
	}, userID, h.checkIsSysAdmin(c, userID))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

// Cancel serves both DELETE /reservations/:id and POST /reservations/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	userID := auth.GetUserID(c)
	r, err := h.service.Cancel(c.Request.Context(), uri.ID, userID, h.checkIsSysAdmin(c, userID))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewReservationResponse(r))
}

func (h *Handler) Availability(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var req AvailabilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "start and end are required RFC3339 timestamps", err)
		return
	}

	av, err := h.service.Availability(c.Request.Context(), uri.ID, reservation.Interval{Start: req.Start, End: req.End})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, NewAvailabilityResponse(av))
}
