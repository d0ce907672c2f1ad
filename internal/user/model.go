package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "not_found", "user not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, "email_taken", "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "unauthorized", "invalid email or password")
	ErrInactiveUser       = apperror.New(http.StatusForbidden, "forbidden", "user is inactive")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, "invalid_input", "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "invalid_input", "password must be at least 8 characters")
)

// User is an account that can hold reservations. System admins are the
// privileged actors of the reservation lifecycle.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	DisplayName   *string
	CreatedAt     time.Time
	LastLoginAt   *time.Time
	IsActive      bool
	IsSystemAdmin bool
}

// Filter defines filter options for listing users.
type Filter struct {
	Email       string
	DisplayName string
	IsActive    *bool

	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
