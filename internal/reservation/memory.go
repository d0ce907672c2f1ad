package reservation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/keylock"
)

// MemoryRepository is an in-process Repository. Each room has its own lock
// and its own intervalSet; the set only ever holds active reservations.
type MemoryRepository struct {
	locks *keylock.Map

	mu      sync.RWMutex
	records map[string]Reservation
	index   map[string]*intervalSet
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		locks:   keylock.New(),
		records: make(map[string]Reservation),
		index:   make(map[string]*intervalSet),
	}
}

func (m *MemoryRepository) Conflicts(ctx context.Context, roomID string, iv Interval, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.index[roomID]
	if !ok {
		return false, nil
	}
	return set.conflicts(iv, excludeID), nil
}

func (m *MemoryRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	m.mu.RLock()
	var matched []*Reservation
	for _, r := range m.records {
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.RoomID != "" && r.RoomID != filter.RoomID {
			continue
		}
		if filter.Status != "" && string(r.Status) != filter.Status {
			continue
		}
		if filter.StartTime != nil && !r.EndTime.After(*filter.StartTime) {
			continue
		}
		if filter.EndTime != nil && !r.StartTime.Before(*filter.EndTime) {
			continue
		}
		rc := r
		matched = append(matched, &rc)
	}
	m.mu.RUnlock()

	asc := filter.SortOrder == "ASC"
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.StartTime.Equal(b.StartTime) {
			return a.ID < b.ID
		}
		if asc {
			return a.StartTime.Before(b.StartTime)
		}
		return a.StartTime.After(b.StartTime)
	})

	total := len(matched)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (m *MemoryRepository) ActiveSlots(ctx context.Context, roomID string, window Interval) ([]Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.index[roomID]
	if !ok {
		return nil, nil
	}
	var slots []Slot
	for _, e := range set.overlapping(window) {
		slots = append(slots, Slot{
			ReservationID: e.ID,
			StartTime:     e.Start,
			EndTime:       e.End,
			Status:        e.Status,
		})
	}
	return slots, nil
}

func (m *MemoryRepository) HasUpcoming(ctx context.Context, roomID string, now time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.index[roomID]
	if !ok || set.len() == 0 {
		return false, nil
	}
	return set.entries[set.len()-1].End.After(now), nil
}

func (m *MemoryRepository) EndedActive(ctx context.Context, now time.Time, limit int) ([]*Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Reservation
	for _, set := range m.index {
		for _, e := range set.entries {
			if e.End.After(now) {
				break
			}
			r := m.records[e.ID]
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) WithRoomLock(ctx context.Context, roomID string, fn func(tx Tx) error) error {
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return fmt.Errorf("acquire room lock failed: %w", err)
	}
	defer unlock()

	tx := &memoryTx{repo: m, roomID: roomID, staged: make(map[string]Reservation)}
	if err := fn(tx); err != nil {
		return err
	}
	return m.commit(tx)
}

// commit applies staged writes atomically. It re-checks the no-overlap
// invariant so a buggy caller cannot corrupt the index.
func (m *MemoryRepository) commit(tx *memoryTx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.index[tx.roomID]
	if !ok {
		set = &intervalSet{}
		m.index[tx.roomID] = set
	}

	for _, id := range tx.order {
		next := tx.staged[id]
		if !next.Status.IsActive() {
			continue
		}
		if set.conflicts(next.Interval(), id) {
			return ErrIntervalConflict
		}
	}

	for _, id := range tx.order {
		next := tx.staged[id]
		if prev, existed := m.records[id]; existed && prev.Status.IsActive() {
			set.remove(id, prev.StartTime)
		}
		if next.Status.IsActive() {
			set.insert(indexEntry{Interval: next.Interval(), ID: id, Status: next.Status})
		}
		m.records[id] = next
	}
	if set.len() == 0 {
		delete(m.index, tx.roomID)
	}
	return nil
}

type memoryTx struct {
	repo   *MemoryRepository
	roomID string
	staged map[string]Reservation
	order  []string
}

func (t *memoryTx) Conflicts(ctx context.Context, roomID string, iv Interval, excludeID string) (bool, error) {
	return t.repo.Conflicts(ctx, roomID, iv, excludeID)
}

func (t *memoryTx) GetByID(ctx context.Context, id string) (*Reservation, error) {
	if r, ok := t.staged[id]; ok {
		return &r, nil
	}
	return t.repo.GetByID(ctx, id)
}

func (t *memoryTx) stage(r *Reservation) error {
	if r.RoomID != t.roomID {
		return fmt.Errorf("reservation %s belongs to room %s, not locked room %s", r.ID, r.RoomID, t.roomID)
	}
	if _, ok := t.staged[r.ID]; !ok {
		t.order = append(t.order, r.ID)
	}
	t.staged[r.ID] = *r
	return nil
}

func (t *memoryTx) Insert(ctx context.Context, r *Reservation) error {
	r.ID = uuid.NewString()
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return t.stage(r)
}

func (t *memoryTx) Save(ctx context.Context, r *Reservation) error {
	if _, err := t.GetByID(ctx, r.ID); err != nil {
		return err
	}
	r.UpdatedAt = time.Now().UTC()
	return t.stage(r)
}
