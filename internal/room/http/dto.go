package http

import (
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
	"github.com/shopspring/decimal"
)

// ListRoomsRequest defines query parameters for listing rooms.
type ListRoomsRequest struct {
	request.ListParams
	IsActive    *bool  `form:"is_active"`
	MinCapacity int    `form:"min_capacity" binding:"omitempty,min=1"`
	SortBy      string `form:"sort_by" binding:"omitempty,oneof=name capacity hourly_rate created_at"`
}

type RoomResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Capacity   int             `json:"capacity"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
	IsActive   bool            `json:"is_active"`
	HasPhoto   bool            `json:"has_photo"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func NewRoomResponse(r *room.Room) RoomResponse {
	return RoomResponse{
		ID:         r.ID,
		Name:       r.Name,
		Capacity:   r.Capacity,
		HourlyRate: r.HourlyRate,
		IsActive:   r.IsActive,
		HasPhoto:   r.PhotoPath != nil,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type CreateRoomBody struct {
	Name       string           `json:"name" binding:"required"`
	Capacity   int              `json:"capacity" binding:"required,min=1"`
	HourlyRate *decimal.Decimal `json:"hourly_rate" binding:"required"`
	IsActive   *bool            `json:"is_active"`
}

type UpdateRoomBody struct {
	Name       *string          `json:"name" binding:"omitempty,min=1"`
	Capacity   *int             `json:"capacity" binding:"omitempty,min=1"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
	IsActive   *bool            `json:"is_active"`
}
