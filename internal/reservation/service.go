package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/room-booking-backend/internal/event"
	"github.com/nekogravitycat/room-booking-backend/internal/room"
	"github.com/sirupsen/logrus"
)

// completionBatch bounds how many reservations a single sweep completes.
const completionBatch = 500

type CreateRequest struct {
	RoomID    string
	UserID    string
	StartTime time.Time
	EndTime   time.Time
	Attendees *int
	Purpose   *string
}

type UpdateRequest struct {
	StartTime *time.Time
	EndTime   *time.Time
	Attendees *int
	Purpose   *string
	Status    *string
}

// RoomStore is the read side of the room catalogue consulted during admission.
type RoomStore interface {
	GetByID(ctx context.Context, id string) (*room.Room, error)
}

// AvailabilityCache stores serialized availability reports keyed by room version.
type AvailabilityCache interface {
	Version(ctx context.Context, roomID string) (int64, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context, roomID string) error
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Reservation, error)
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)
	Update(ctx context.Context, id string, req UpdateRequest, actorID string, actorIsPrivileged bool) (*Reservation, error)
	Cancel(ctx context.Context, id string, actorID string, actorIsPrivileged bool) (*Reservation, error)
	Availability(ctx context.Context, roomID string, window Interval) (*Availability, error)
	CompleteEnded(ctx context.Context) (int64, error)
}

type Option func(*service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = func() time.Time { return now().UTC() } }
}

func WithPublisher(p event.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

func WithCache(c AvailabilityCache) Option {
	return func(s *service) { s.cache = c }
}

type service struct {
	repo      Repository
	rooms     RoomStore
	log       *logrus.Entry
	now       func() time.Time
	publisher event.Publisher
	cache     AvailabilityCache
}

func NewService(repo Repository, rooms RoomStore, log *logrus.Entry, opts ...Option) Service {
	s := &service{
		repo:      repo,
		rooms:     rooms,
		log:       log.WithField("component", "reservation"),
		now:       func() time.Time { return time.Now().UTC() },
		publisher: event.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) getRoom(ctx context.Context, id string) (*room.Room, error) {
	rm, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, room.ErrNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return rm, nil
}

func checkAttendees(attendees *int, capacity int) error {
	if attendees == nil {
		return nil
	}
	if *attendees < 1 {
		return ErrInvalidAttendees
	}
	if *attendees > capacity {
		return ErrCapacityExceeded
	}
	return nil
}

func checkOwner(r *Reservation, actorID string, actorIsPrivileged bool) error {
	if !actorIsPrivileged && r.UserID != actorID {
		return ErrForbidden
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Reservation, error) {
	iv := Interval{Start: req.StartTime.UTC(), End: req.EndTime.UTC()}

	// 1. Interval order and length
	if !iv.Valid() {
		return nil, ErrInvalidInterval
	}
	if iv.Duration() > MaxDuration {
		return nil, ErrIntervalTooLong
	}
	// 2. Not in the past
	if iv.Start.Before(s.now()) {
		return nil, ErrStartTimePast
	}
	// 3-4. Room exists and accepts bookings
	rm, err := s.getRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !rm.IsActive {
		return nil, ErrResourceUnavailable
	}
	// 5. Capacity
	if err := checkAttendees(req.Attendees, rm.Capacity); err != nil {
		return nil, err
	}

	res := &Reservation{
		RoomID:     rm.ID,
		UserID:     req.UserID,
		StartTime:  iv.Start,
		EndTime:    iv.End,
		Status:     StatusConfirmed,
		Purpose:    req.Purpose,
		Attendees:  req.Attendees,
		TotalPrice: Price(rm.HourlyRate, iv.Start, iv.End),
	}

	// 6. Conflict check and insert under the room lock
	err = s.repo.WithRoomLock(ctx, rm.ID, func(tx Tx) error {
		conflict, err := tx.Conflicts(ctx, rm.ID, iv, "")
		if err != nil {
			return err
		}
		if conflict {
			return ErrIntervalConflict
		}
		return tx.Insert(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, event.ReservationCreated, res)
	return res, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest, actorID string, actorIsPrivileged bool) (*Reservation, error) {
	// The room of a reservation never changes, so it is safe to learn it before locking.
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		updated   *Reservation
		eventType = event.ReservationUpdated
	)
	err = s.repo.WithRoomLock(ctx, current.RoomID, func(tx Tx) error {
		r, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()

		if err := checkOwner(r, actorID, actorIsPrivileged); err != nil {
			return err
		}
		if !actorIsPrivileged && r.StartTime.Before(now) {
			return ErrAlreadyStarted
		}
		if r.Status.IsTerminal() {
			return ErrTerminalState
		}

		if req.Status != nil {
			if !actorIsPrivileged {
				return ErrForbidden
			}
			next := Status(*req.Status)
			if !next.Valid() {
				return ErrInvalidStatus
			}
			if !CanTransition(r.Status, next) {
				return ErrInvalidTransition
			}
			r.Status = next
			switch next {
			case StatusCancelled:
				eventType = event.ReservationCancelled
			case StatusCompleted:
				eventType = event.ReservationCompleted
			}
		}

		iv := r.Interval()
		if req.StartTime != nil {
			iv.Start = req.StartTime.UTC()
		}
		if req.EndTime != nil {
			iv.End = req.EndTime.UTC()
		}
		intervalChanged := !iv.Start.Equal(r.StartTime) || !iv.End.Equal(r.EndTime)

		var rm *room.Room
		if intervalChanged || req.Attendees != nil {
			if rm, err = s.getRoom(ctx, r.RoomID); err != nil {
				return err
			}
		}

		if intervalChanged {
			if !iv.Valid() {
				return ErrInvalidInterval
			}
			if iv.Duration() > MaxDuration {
				return ErrIntervalTooLong
			}
			if r.Status.IsActive() {
				conflict, err := tx.Conflicts(ctx, r.RoomID, iv, r.ID)
				if err != nil {
					return err
				}
				if conflict {
					return ErrIntervalConflict
				}
			}
			r.StartTime = iv.Start
			r.EndTime = iv.End
			r.TotalPrice = Price(rm.HourlyRate, iv.Start, iv.End)
		}

		if req.Attendees != nil {
			if err := checkAttendees(req.Attendees, rm.Capacity); err != nil {
				return err
			}
			r.Attendees = req.Attendees
		}
		if req.Purpose != nil {
			r.Purpose = req.Purpose
		}

		if err := tx.Save(ctx, r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, eventType, updated)
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, id string, actorID string, actorIsPrivileged bool) (*Reservation, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var cancelled *Reservation
	err = s.repo.WithRoomLock(ctx, current.RoomID, func(tx Tx) error {
		r, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkOwner(r, actorID, actorIsPrivileged); err != nil {
			return err
		}
		switch r.Status {
		case StatusCancelled:
			return ErrAlreadyCancelled
		case StatusCompleted:
			return ErrTerminalState
		}

		r.Status = StatusCancelled
		if err := tx.Save(ctx, r); err != nil {
			return err
		}
		cancelled = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, event.ReservationCancelled, cancelled)
	return cancelled, nil
}

func (s *service) Availability(ctx context.Context, roomID string, window Interval) (*Availability, error) {
	window = Interval{Start: window.Start.UTC(), End: window.End.UTC()}
	if !window.Valid() {
		return nil, ErrInvalidInterval
	}
	if _, err := s.getRoom(ctx, roomID); err != nil {
		return nil, err
	}

	key := s.cacheKey(ctx, roomID, window)
	if cached := s.cacheGet(ctx, key); cached != nil {
		return cached, nil
	}

	slots, err := s.repo.ActiveSlots(ctx, roomID, window)
	if err != nil {
		return nil, err
	}
	av := &Availability{
		RoomID: roomID,
		Window: window,
		Booked: slots,
		Free:   FreeIntervals(window, slots),
	}

	s.cacheSet(ctx, key, av)
	return av, nil
}

// CompleteEnded moves active reservations whose end has passed to Completed.
// Each reservation is re-read under its room lock so a concurrent cancel wins.
func (s *service) CompleteEnded(ctx context.Context) (int64, error) {
	now := s.now()
	candidates, err := s.repo.EndedActive(ctx, now, completionBatch)
	if err != nil {
		return 0, err
	}

	var done int64
	for _, c := range candidates {
		var completed *Reservation
		err := s.repo.WithRoomLock(ctx, c.RoomID, func(tx Tx) error {
			r, err := tx.GetByID(ctx, c.ID)
			if err != nil {
				return err
			}
			if !r.Status.IsActive() || r.EndTime.After(now) {
				return nil
			}
			r.Status = StatusCompleted
			if err := tx.Save(ctx, r); err != nil {
				return err
			}
			completed = r
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return done, ctx.Err()
			}
			s.log.WithError(err).WithField("reservation_id", c.ID).Warn("complete reservation failed")
			continue
		}
		if completed != nil {
			done++
			s.afterCommit(ctx, event.ReservationCompleted, completed)
		}
	}
	return done, nil
}

// afterCommit runs the best-effort side effects of a committed write.
func (s *service) afterCommit(ctx context.Context, typ event.Type, r *Reservation) {
	fields := logrus.Fields{"reservation_id": r.ID, "room_id": r.RoomID, "event": typ}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, r.RoomID); err != nil {
			s.log.WithError(err).WithFields(fields).Warn("invalidate availability cache failed")
		}
	}

	e := event.Event{
		ID:            uuid.NewString(),
		Type:          typ,
		OccurredAt:    s.now(),
		ReservationID: r.ID,
		RoomID:        r.RoomID,
		UserID:        r.UserID,
		Status:        string(r.Status),
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		TotalPrice:    r.TotalPrice.String(),
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.WithError(err).WithFields(fields).Warn("publish reservation event failed")
		return
	}
	s.log.WithFields(fields).Info("reservation committed")
}

func (s *service) cacheKey(ctx context.Context, roomID string, window Interval) string {
	if s.cache == nil {
		return ""
	}
	ver, err := s.cache.Version(ctx, roomID)
	if err != nil {
		s.log.WithError(err).WithField("room_id", roomID).Warn("availability cache unavailable")
		return ""
	}
	return fmt.Sprintf("%s:v%d:%d:%d", roomID, ver, window.Start.UnixNano(), window.End.UnixNano())
}

func (s *service) cacheGet(ctx context.Context, key string) *Availability {
	if key == "" {
		return nil
	}
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).Warn("availability cache read failed")
		return nil
	}
	if !ok {
		return nil
	}
	var av Availability
	if err := json.Unmarshal(raw, &av); err != nil {
		s.log.WithError(err).Warn("availability cache entry corrupt")
		return nil
	}
	return &av
}

func (s *service) cacheSet(ctx context.Context, key string, av *Availability) {
	if key == "" {
		return
	}
	raw, err := json.Marshal(av)
	if err != nil {
		s.log.WithError(err).Warn("encode availability failed")
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		s.log.WithError(err).Warn("availability cache write failed")
	}
}
