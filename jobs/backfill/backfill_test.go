package backfill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/report"
)

type recordingReporter struct {
	days []time.Time
	fail time.Time
}

func (r *recordingReporter) Weekly(_ context.Context, day time.Time, _ []int64) (report.WeeklyReport, error) {
	if day.Equal(r.fail) {
		return report.WeeklyReport{}, errors.New("boom")
	}
	r.days = append(r.days, day)
	return report.WeeklyReport{WeekStart: day}, nil
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestWeeks(t *testing.T) {
	r := &recordingReporter{}
	n, err := Weeks(context.Background(), r, date(2025, 3, 12), date(2025, 3, 24))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []time.Time{date(2025, 3, 10), date(2025, 3, 17), date(2025, 3, 24)}, r.days)
}

func TestWeeks_SameWeek(t *testing.T) {
	r := &recordingReporter{}
	n, err := Weeks(context.Background(), r, date(2025, 3, 11), date(2025, 3, 16))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWeeks_Errors(t *testing.T) {
	_, err := Weeks(context.Background(), &recordingReporter{}, date(2025, 3, 24), date(2025, 3, 10))
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	r := &recordingReporter{fail: date(2025, 3, 17)}
	n, err := Weeks(context.Background(), r, date(2025, 3, 10), date(2025, 3, 31))
	assert.ErrorContains(t, err, "week 2025-03-17")
	assert.Equal(t, 1, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Weeks(ctx, &recordingReporter{}, date(2025, 3, 10), date(2025, 3, 31))
	assert.ErrorIs(t, err, context.Canceled)
}
