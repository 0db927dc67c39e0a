package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxDailyHours caps active+maintenance hours of one vehicle on one day.
var MaxDailyHours = decimal.NewFromInt(24)

// HoursScale is the number of decimal places hours are kept at.
const HoursScale = 2

// Hours normalises h to two decimal places.
func Hours(h decimal.Decimal) decimal.Decimal {
	return h.Round(HoursScale)
}

// Exact reports whether h carries no more than two decimal places.
func Exact(h decimal.Decimal) bool {
	return h.Equal(h.Round(HoursScale))
}

// HoursFromFloat is a convenience for callers holding float values.
func HoursFromFloat(f float64) decimal.Decimal {
	return Hours(decimal.NewFromFloat(f))
}

// Centi returns h expressed in hundredths of an hour.
func Centi(h decimal.Decimal) int64 {
	return Hours(h).Shift(HoursScale).IntPart()
}

// FromCenti converts hundredths of an hour back to hours.
func FromCenti(c int64) decimal.Decimal {
	return decimal.New(c, -HoursScale)
}

// Fits reports whether active+maintenance stays within the daily cap and both
// values are non negative.
func Fits(active, maintenance decimal.Decimal) bool {
	if active.IsNegative() || maintenance.IsNegative() {
		return false
	}
	return Hours(active).Add(Hours(maintenance)).LessThanOrEqual(MaxDailyHours)
}

// Day truncates t to the start of its calendar day in UTC. The date fields are
// taken as-is so a local date keeps its calendar day.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateLayout is the wire and storage layout of a work date.
const DateLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// DateRange is a half-open [Start, End) interval of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Inclusive builds the half-open range covering start..end, both included.
func Inclusive(start, end time.Time) DateRange {
	return DateRange{Start: Day(start), End: Day(end).AddDate(0, 0, 1)}
}

// Contains reports whether day falls inside the range.
func (r DateRange) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(r.Start)) && d.Before(Day(r.End))
}

// Empty reports whether the range covers no day.
func (r DateRange) Empty() bool {
	return !Day(r.Start).Before(Day(r.End))
}
