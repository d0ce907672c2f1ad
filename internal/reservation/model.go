package reservation

import (
	"errors"
	"net/http"
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInterval     = apperror.New(http.StatusBadRequest, "invalid_interval", "start time must be before end time")
	ErrIntervalTooLong     = apperror.New(http.StatusBadRequest, "invalid_interval", "reservation cannot be longer than 31 days")
	ErrStartTimePast       = apperror.New(http.StatusBadRequest, "invalid_interval", "cannot create reservation in the past")
	ErrResourceNotFound    = apperror.New(http.StatusNotFound, "resource_not_found", "room not found")
	ErrResourceUnavailable = apperror.New(http.StatusConflict, "resource_unavailable", "room is not available for booking")
	ErrCapacityExceeded    = apperror.New(http.StatusUnprocessableEntity, "capacity_exceeded", "attendees exceed room capacity")
	ErrIntervalConflict    = apperror.New(http.StatusConflict, "interval_conflict", "time slot already booked")
	ErrNotFound            = apperror.New(http.StatusNotFound, "not_found", "reservation not found")
	ErrForbidden           = apperror.New(http.StatusForbidden, "forbidden", "permission denied")
	ErrAlreadyCancelled    = apperror.New(http.StatusConflict, "invalid_state", "reservation is already cancelled")
	ErrTerminalState       = apperror.New(http.StatusConflict, "invalid_state", "reservation can no longer be modified")
	ErrAlreadyStarted      = apperror.New(http.StatusConflict, "invalid_state", "cannot modify a reservation that has already started")
	ErrInvalidTransition   = apperror.New(http.StatusConflict, "invalid_state", "status transition not allowed")
	ErrInvalidStatus       = apperror.New(http.StatusBadRequest, "invalid_input", "invalid reservation status")
	ErrInvalidAttendees    = apperror.New(http.StatusBadRequest, "invalid_input", "attendees must be at least 1")
)

// MaxDuration bounds a single reservation.
const MaxDuration = 31 * 24 * time.Hour

// ErrCommitRetriesExhausted reports that the storage layer kept failing
// transiently. It is an infrastructure failure, not a business outcome.
var ErrCommitRetriesExhausted = errors.New("reservation commit retries exhausted")

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// activeStatuses are the statuses that occupy their interval.
var activeStatuses = []Status{StatusPending, StatusConfirmed}

type Reservation struct {
	ID         string
	RoomID     string
	UserID     string
	StartTime  time.Time
	EndTime    time.Time
	Status     Status
	Purpose    *string
	Attendees  *int
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Interval returns the reservation's half-open time range.
func (r *Reservation) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

// Slot is the read-only projection of an active reservation used by availability reports.
type Slot struct {
	ReservationID string    `json:"reservation_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        Status    `json:"status"`
}

// Availability is the booked/free report for one room over a window.
type Availability struct {
	RoomID string     `json:"room_id"`
	Window Interval   `json:"window"`
	Booked []Slot     `json:"booked"`
	Free   []Interval `json:"free"`
}

type Filter struct {
	UserID    string
	RoomID    string
	Status    string
	StartTime *time.Time // Filter reservations ending after this time
	EndTime   *time.Time // Filter reservations starting before this time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
