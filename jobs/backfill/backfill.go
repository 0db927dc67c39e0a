// Package backfill replays weekly utilization reports over past weeks so
// metrics backends receive history they missed.
package backfill

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/worklog/core/ledger"
	"github.com/kilianp07/worklog/core/report"
)

// Reporter builds one weekly report. *report.Builder satisfies it and exports
// every report it builds to its utilization recorder.
type Reporter interface {
	Weekly(ctx context.Context, day time.Time, ids []int64) (report.WeeklyReport, error)
}

// Weeks builds the report of every week from the one containing from up to
// the one containing to, both included, and returns how many were built.
func Weeks(ctx context.Context, r Reporter, from, to time.Time) (int, error) {
	if from.IsZero() || to.IsZero() || ledger.Day(to).Before(ledger.Day(from)) {
		return 0, fmt.Errorf("%w: backfill needs from <= to", ledger.ErrInvalidInput)
	}
	n := 0
	last := report.WeekOf(to).Start
	for week := report.WeekOf(from).Start; !week.After(last); week = week.AddDate(0, 0, 7) {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := r.Weekly(ctx, week, nil); err != nil {
			return n, fmt.Errorf("week %s: %w", week.Format(ledger.DateLayout), err)
		}
		n++
	}
	return n, nil
}
