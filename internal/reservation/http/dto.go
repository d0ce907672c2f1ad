package http

import (
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/room-booking-backend/internal/reservation"
	"github.com/shopspring/decimal"
)

// ListReservationsRequest defines query parameters for listing reservations.
type ListReservationsRequest struct {
	request.ListParams
	RoomID        string     `form:"room_id" binding:"omitempty,uuid"`
	Status        string     `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	UserID        string     `form:"user_id" binding:"omitempty,uuid"`
	StartTimeFrom *time.Time `form:"start_time_from" time_format:"2006-01-02T15:04:05Z07:00"`
	StartTimeTo   *time.Time `form:"start_time_to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy        string     `form:"sort_by" binding:"omitempty,oneof=start_time end_time created_at status"`
}

// Validate performs custom validation for ListReservationsRequest.
func (r *ListReservationsRequest) Validate() error {
	if r.StartTimeFrom != nil && r.StartTimeTo != nil && r.StartTimeFrom.After(*r.StartTimeTo) {
		return reservation.ErrInvalidInterval
	}
	return nil
}

type ReservationResponse struct {
	ID         string          `json:"id"`
	RoomID     string          `json:"room_id"`
	UserID     string          `json:"user_id"`
	StartTime  time.Time       `json:"start_time"`
	EndTime    time.Time       `json:"end_time"`
	Status     string          `json:"status"`
	Purpose    *string         `json:"purpose,omitempty"`
	Attendees  *int            `json:"attendees,omitempty"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		RoomID:     r.RoomID,
		UserID:     r.UserID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Status:     string(r.Status),
		Purpose:    r.Purpose,
		Attendees:  r.Attendees,
		TotalPrice: r.TotalPrice,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type CreateReservationBody struct {
	RoomID    string    `json:"room_id" binding:"required,uuid"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Attendees *int      `json:"attendees" binding:"omitempty,min=1"`
	Purpose   *string   `json:"purpose" binding:"omitempty,max=500"`
}

type UpdateReservationBody struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Attendees *int       `json:"attendees" binding:"omitempty,min=1"`
	Purpose   *string    `json:"purpose" binding:"omitempty,max=500"`
	Status    *string    `json:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
}

// AvailabilityRequest is the query window of an availability report.
type AvailabilityRequest struct {
	Start time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End   time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

type SlotResponse struct {
	ReservationID string    `json:"reservation_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
}

type FreeIntervalResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type AvailabilityResponse struct {
	RoomID    string                 `json:"room_id"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Booked    []SlotResponse         `json:"booked"`
	Free      []FreeIntervalResponse `json:"free"`
}

func NewAvailabilityResponse(av *reservation.Availability) AvailabilityResponse {
	resp := AvailabilityResponse{
		RoomID:    av.RoomID,
		StartTime: av.Window.Start,
		EndTime:   av.Window.End,
		Booked:    make([]SlotResponse, len(av.Booked)),
		Free:      make([]FreeIntervalResponse, len(av.Free)),
	}
	for i, s := range av.Booked {
		resp.Booked[i] = SlotResponse{
			ReservationID: s.ReservationID,
			StartTime:     s.StartTime,
			EndTime:       s.EndTime,
			Status:        string(s.Status),
		}
	}
	for i, f := range av.Free {
		resp.Free[i] = FreeIntervalResponse{StartTime: f.Start, EndTime: f.End}
	}
	return resp
}
