package room

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "resource_not_found", "room not found")
	ErrEmptyName       = apperror.New(http.StatusBadRequest, "invalid_input", "name cannot be empty")
	ErrInvalidCapacity = apperror.New(http.StatusBadRequest, "invalid_input", "capacity must be a positive integer")
	ErrInvalidRate     = apperror.New(http.StatusBadRequest, "invalid_input", "hourly rate cannot be negative")
	ErrInUse           = apperror.New(http.StatusConflict, "resource_in_use", "room has active or upcoming reservations")
	ErrHasHistory      = apperror.New(http.StatusConflict, "resource_in_use", "room has reservation history; deactivate it instead")
	ErrPhotoNotFound   = apperror.New(http.StatusNotFound, "not_found", "room has no photo")
	ErrInvalidPhoto    = apperror.New(http.StatusBadRequest, "invalid_input", "photo must be a JPEG or PNG image")
)

// Room is a bookable meeting room.
type Room struct {
	ID         string
	Name       string
	Capacity   int
	HourlyRate decimal.Decimal
	IsActive   bool
	PhotoPath  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Filter defines parameters for listing rooms.
type Filter struct {
	IsActive    *bool
	MinCapacity int
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
