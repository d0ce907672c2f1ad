package room

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nekogravitycat/room-booking-backend/internal/pkg/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// maxPhotoBytes bounds uploaded room photos.
const maxPhotoBytes = 8 << 20

type CreateRequest struct {
	Name       string
	Capacity   int
	HourlyRate decimal.Decimal
	IsActive   *bool
}

type UpdateRequest struct {
	Name       *string
	Capacity   *int
	HourlyRate *decimal.Decimal
	IsActive   *bool
}

// UpcomingChecker reports whether a room still has active reservations ending after now.
type UpcomingChecker interface {
	HasUpcoming(ctx context.Context, roomID string, now time.Time) (bool, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Room, error)
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context, filter Filter) ([]*Room, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Room, error)
	Delete(ctx context.Context, id string) error
	SetPhoto(ctx context.Context, id string, content io.Reader) (*Room, error)
	Photo(ctx context.Context, id string) (io.ReadCloser, error)
}

type service struct {
	repo     Repository
	upcoming UpcomingChecker
	photos   storage.Storage
	imgProc  *storage.ImageProcessor
	log      *logrus.Entry
}

func NewService(repo Repository, upcoming UpcomingChecker, photos storage.Storage, log *logrus.Entry) Service {
	return &service{
		repo:     repo,
		upcoming: upcoming,
		photos:   photos,
		imgProc:  storage.NewImageProcessor(),
		log:      log.WithField("component", "room"),
	}
}

func validate(name string, capacity int, rate decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if capacity < 1 {
		return ErrInvalidCapacity
	}
	if rate.IsNegative() {
		return ErrInvalidRate
	}
	return nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Room, error) {
	if err := validate(req.Name, req.Capacity, req.HourlyRate); err != nil {
		return nil, err
	}

	room := &Room{
		Name:       strings.TrimSpace(req.Name),
		Capacity:   req.Capacity,
		HourlyRate: req.HourlyRate,
		IsActive:   true,
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, room); err != nil {
		return nil, err
	}
	s.log.WithField("room_id", room.ID).Info("room created")
	return room, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = strings.TrimSpace(*req.Name)
	}
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.HourlyRate != nil {
		room.HourlyRate = *req.HourlyRate
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	if err := validate(room.Name, room.Capacity, room.HourlyRate); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	busy, err := s.upcoming.HasUpcoming(ctx, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("check upcoming reservations: %w", err)
	}
	if busy {
		return ErrInUse
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	// Best effort; the row is already gone.
	if room.PhotoPath != nil {
		if err := s.photos.Delete(ctx, *room.PhotoPath); err != nil {
			s.log.WithError(err).WithField("room_id", id).Warn("failed to delete room photo")
		}
	}
	s.log.WithField("room_id", id).Info("room deleted")
	return nil
}

func photoPath(roomID string) string {
	return fmt.Sprintf("rooms/%s/%s/photo.jpg", roomID[:2], roomID)
}

func (s *service) SetPhoto(ctx context.Context, id string, content io.Reader) (*Room, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(io.LimitReader(content, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if len(raw) > maxPhotoBytes {
		return nil, ErrInvalidPhoto
	}

	img, err := s.imgProc.Fit(bytes.NewReader(raw), 1600, 1600)
	if err != nil {
		return nil, ErrInvalidPhoto.WithCause(err)
	}

	path := photoPath(room.ID)
	if err := s.photos.Save(ctx, path, img); err != nil {
		return nil, fmt.Errorf("save photo: %w", err)
	}

	room.PhotoPath = &path
	if err := s.repo.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *service) Photo(ctx context.Context, id string) (io.ReadCloser, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room.PhotoPath == nil {
		return nil, ErrPhotoNotFound
	}
	rc, err := s.photos.Get(ctx, *room.PhotoPath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return rc, nil
}
