package metrics

import (
	"context"

	"github.com/kilianp07/worklog/core/audit"
	coremetrics "github.com/kilianp07/worklog/core/metrics"
)

// StartAuditCollector subscribes to the emitter and counts every fact on
// sinks implementing AuditRecorder. It stops when the context is canceled or
// the emitter is closed. The returned channel closes once the collector exits.
func StartAuditCollector(ctx context.Context, em *audit.Emitter, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.AuditRecorder)
	if em == nil || !ok {
		close(done)
		return done
	}
	sub := em.Subscribe()
	go func() {
		defer close(done)
		defer em.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-sub:
				if !ok {
					return
				}
				_ = rec.RecordAuditFact(coremetrics.AuditFactEvent{Action: string(f.Action), Time: f.OccurredAt})
			}
		}
	}()
	return done
}
