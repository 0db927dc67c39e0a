package sqlutil

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kilianp07/worklog/core/ledger"
)

// Date scans a calendar date stored as DATE, TEXT or a driver time value.
type Date struct{ Time time.Time }

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = ledger.Day(v)
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	}
	return fmt.Errorf("sqlutil: cannot scan %T into date", src)
}

func (d *Date) parse(s string) error {
	if len(s) > len(ledger.DateLayout) {
		s = s[:len(ledger.DateLayout)]
	}
	t, err := ledger.ParseDay(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// DateArg is the bind value of a work date.
func DateArg(t time.Time) string { return ledger.Day(t).Format(ledger.DateLayout) }

// NullTime scans a timestamp stored as unix milliseconds, a driver time value
// or text. NULL leaves Valid false.
type NullTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (n *NullTime) Scan(src any) error {
	n.Valid = src != nil
	switch v := src.(type) {
	case nil:
		n.Time = time.Time{}
		return nil
	case time.Time:
		n.Time = v.UTC()
		return nil
	case int64:
		n.Time = time.UnixMilli(v).UTC()
		return nil
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	}
	return fmt.Errorf("sqlutil: cannot scan %T into time", src)
}

func (n *NullTime) parse(s string) error {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		n.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			n.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("sqlutil: unrecognised time %q", s)
}

// Ptr returns nil for NULL.
func (n NullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// Hours scans NUMERIC columns and integer hundredths.
type Hours struct{ Value decimal.Decimal }

func (h *Hours) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		h.Value = ledger.FromCenti(v)
		return nil
	case float64:
		h.Value = ledger.HoursFromFloat(v)
		return nil
	case []byte:
		return h.parse(string(v))
	case string:
		return h.parse(v)
	}
	return fmt.Errorf("sqlutil: cannot scan %T into hours", src)
}

func (h *Hours) parse(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	h.Value = ledger.Hours(d)
	return nil
}
