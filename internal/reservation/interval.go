package reservation

import (
	"context"
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether Start is strictly before End.
func (iv Interval) Valid() bool {
	return iv.Start.Before(iv.End)
}

// Overlaps reports whether iv and o share any instant. Touching endpoints do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// IntervalIndex answers overlap queries against a room's active reservations.
// Callers guarantee iv.Valid(). excludeID, when non-empty, is ignored by the query.
type IntervalIndex interface {
	Conflicts(ctx context.Context, roomID string, iv Interval, excludeID string) (bool, error)
}

type indexEntry struct {
	Interval
	ID     string
	Status Status
}

// intervalSet holds one room's active intervals sorted by Start.
// Entries are pairwise disjoint, so End is sorted as well and
// every lookup is a binary search followed by a short forward scan.
type intervalSet struct {
	entries []indexEntry
}

// firstEndingAfter returns the index of the first entry whose End is after t.
func (s *intervalSet) firstEndingAfter(t time.Time) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].End.After(t)
	})
}

func (s *intervalSet) conflicts(iv Interval, excludeID string) bool {
	for i := s.firstEndingAfter(iv.Start); i < len(s.entries) && s.entries[i].Start.Before(iv.End); i++ {
		if s.entries[i].ID != excludeID {
			return true
		}
	}
	return false
}

// overlapping returns the entries intersecting iv in start order.
func (s *intervalSet) overlapping(iv Interval) []indexEntry {
	var out []indexEntry
	for i := s.firstEndingAfter(iv.Start); i < len(s.entries) && s.entries[i].Start.Before(iv.End); i++ {
		out = append(out, s.entries[i])
	}
	return out
}

func (s *intervalSet) insert(e indexEntry) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].Start.Before(e.Start)
	})
	s.entries = append(s.entries, indexEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

// remove deletes the entry for id, which must have started at start.
func (s *intervalSet) remove(id string, start time.Time) bool {
	i := sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].Start.Before(start)
	})
	for ; i < len(s.entries) && s.entries[i].Start.Equal(start); i++ {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (s *intervalSet) len() int {
	return len(s.entries)
}

// FreeIntervals returns the gaps inside window not covered by booked.
// booked may be unsorted and may extend beyond the window.
func FreeIntervals(window Interval, booked []Slot) []Interval {
	sorted := make([]Slot, len(booked))
	copy(sorted, booked)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	var free []Interval
	cursor := window.Start
	for _, b := range sorted {
		if !b.EndTime.After(cursor) {
			continue
		}
		if !b.StartTime.Before(window.End) {
			break
		}
		if b.StartTime.After(cursor) {
			free = append(free, Interval{Start: cursor, End: b.StartTime})
		}
		cursor = b.EndTime
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}
	return free
}
