package audit

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	coreaudit "github.com/kilianp07/worklog/core/audit"
)

// LogSink writes each fact as one structured log line.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink logs to w, or stdout when w is nil.
func NewLogSink(w io.Writer) *LogSink {
	if w == nil {
		w = os.Stdout
	}
	return &LogSink{log: zerolog.New(w).With().Timestamp().Str("component", "audit").Logger()}
}

func (s *LogSink) Record(_ context.Context, f coreaudit.Fact) error {
	ev := s.log.Info().
		Str("fact_id", f.ID.String()).
		Int64("actor", f.Actor).
		Str("action", string(f.Action)).
		Str("subject_kind", f.SubjectKind).
		Int64("subject_id", f.SubjectID).
		Time("occurred_at", f.OccurredAt)
	if f.Payload != nil {
		vehicle, day := f.Payload.Cell()
		ev = ev.Int64("vehicle_id", vehicle).Str("work_date", day.Format("2006-01-02")).Interface("payload", f.Payload)
	}
	ev.Msg("worklog fact")
	return nil
}
