package reservation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

func iv(from, to int) Interval { return Interval{Start: at(from), End: at(to)} }

func TestInterval_Overlaps(t *testing.T) {
	existing := iv(10, 12)
	tests := []struct {
		name string
		cand Interval
		want bool
	}{
		{"identical", iv(10, 12), true},
		{"partial from left", iv(9, 11), true},
		{"partial from right", iv(11, 13), true},
		{"contained", Interval{at(10).Add(15 * time.Minute), at(11)}, true},
		{"containing", iv(8, 14), true},
		{"ends at start", iv(8, 10), false},
		{"starts at end", iv(12, 14), false},
		{"disjoint", iv(14, 15), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, existing.Overlaps(tt.cand))
			assert.Equal(t, tt.want, tt.cand.Overlaps(existing))
		})
	}
}

func TestInterval_Valid(t *testing.T) {
	assert.True(t, iv(1, 2).Valid())
	assert.False(t, iv(2, 2).Valid())
	assert.False(t, iv(3, 2).Valid())
	assert.Equal(t, 2*time.Hour, iv(1, 3).Duration())
}

func TestIntervalSet(t *testing.T) {
	var s intervalSet
	s.insert(indexEntry{Interval: iv(14, 16), ID: "c", Status: StatusConfirmed})
	s.insert(indexEntry{Interval: iv(8, 9), ID: "a", Status: StatusConfirmed})
	s.insert(indexEntry{Interval: iv(10, 12), ID: "b", Status: StatusPending})
	require.Equal(t, 3, s.len())

	ids := func(es []indexEntry) []string {
		var out []string
		for _, e := range es {
			out = append(out, e.ID)
		}
		return out
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids(s.entries))

	assert.True(t, s.conflicts(iv(11, 13), ""))
	assert.False(t, s.conflicts(iv(11, 13), "b"))
	assert.False(t, s.conflicts(iv(12, 14), ""))
	assert.False(t, s.conflicts(iv(0, 8), ""))
	assert.True(t, s.conflicts(iv(0, 24), "b"))

	assert.Equal(t, []string{"b", "c"}, ids(s.overlapping(iv(11, 15))))
	assert.Empty(t, s.overlapping(iv(12, 14)))

	assert.False(t, s.remove("b", at(11)))
	assert.True(t, s.remove("b", at(10)))
	assert.False(t, s.conflicts(iv(11, 13), ""))
	assert.Equal(t, []string{"a", "c"}, ids(s.entries))
}

func TestFreeIntervals(t *testing.T) {
	window := iv(8, 18)

	t.Run("empty room", func(t *testing.T) {
		assert.Equal(t, []Interval{window}, FreeIntervals(window, nil))
	})

	t.Run("gaps between bookings", func(t *testing.T) {
		booked := []Slot{
			{StartTime: at(13), EndTime: at(14)},
			{StartTime: at(9), EndTime: at(10)},
			{StartTime: at(10), EndTime: at(11)},
		}
		assert.Equal(t, []Interval{iv(8, 9), iv(11, 13), iv(14, 18)}, FreeIntervals(window, booked))
	})

	t.Run("bookings spill over the window", func(t *testing.T) {
		booked := []Slot{
			{StartTime: at(6), EndTime: at(9)},
			{StartTime: at(17), EndTime: at(20)},
		}
		assert.Equal(t, []Interval{iv(9, 17)}, FreeIntervals(window, booked))
	})

	t.Run("fully booked", func(t *testing.T) {
		booked := []Slot{{StartTime: at(0), EndTime: at(24)}}
		assert.Empty(t, FreeIntervals(window, booked))
	})
}
