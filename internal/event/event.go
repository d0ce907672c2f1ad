// Package event carries reservation domain events to downstream consumers.
// Publishing is best effort: callers log failures and never roll back a
// committed reservation because a broker was unreachable.
package event

import (
	"context"
	"time"
)

type Type string

const (
	ReservationCreated   Type = "reservation.created"
	ReservationUpdated   Type = "reservation.updated"
	ReservationCancelled Type = "reservation.cancelled"
	ReservationCompleted Type = "reservation.completed"
)

// Event is the JSON payload published for every committed reservation change.
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	OccurredAt    time.Time `json:"occurred_at"`
	ReservationID string    `json:"reservation_id"`
	RoomID        string    `json:"room_id"`
	UserID        string    `json:"user_id"`
	Status        string    `json:"status"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TotalPrice    string    `json:"total_price"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
