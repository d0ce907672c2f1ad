package reservation

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillableHours returns the duration of [start, end) in whole hours, rounding
// any partial hour up. Non-positive durations bill zero hours.
func BillableHours(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// Price computes ceil(hours) x hourlyRate for the interval [start, end).
func Price(hourlyRate decimal.Decimal, start, end time.Time) decimal.Decimal {
	return hourlyRate.Mul(decimal.NewFromInt(BillableHours(start, end)))
}
