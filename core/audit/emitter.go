package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/worklog/core/logger"
	"github.com/kilianp07/worklog/core/monitoring"
	"github.com/kilianp07/worklog/internal/eventbus"
)

// Emitter turns ledger mutations into facts, records them to a Sink and
// publishes them to in-process observers. Sink failures are logged and
// reported but never returned: the ledger write has already happened.
type Emitter struct {
	sink    Sink
	bus     *eventbus.TypedBus[Fact]
	log     logger.Logger
	now     func() time.Time
	timeout time.Duration
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

func WithLogger(l logger.Logger) EmitterOption { return func(e *Emitter) { e.log = logger.OrNop(l) } }

// WithClock overrides the timestamp source, for tests.
func WithClock(now func() time.Time) EmitterOption { return func(e *Emitter) { e.now = now } }

// WithSinkTimeout bounds how long one Record call may take. Zero disables it.
func WithSinkTimeout(d time.Duration) EmitterOption { return func(e *Emitter) { e.timeout = d } }

// NewEmitter returns an Emitter writing to sink. A nil sink drops facts.
func NewEmitter(sink Sink, opts ...EmitterOption) *Emitter {
	if sink == nil {
		sink = NopSink{}
	}
	e := &Emitter{
		sink:    sink,
		bus:     eventbus.NewTyped[Fact](),
		log:     logger.NopLogger{},
		now:     time.Now,
		timeout: 5 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Emit builds and records one fact. The returned fact is the one recorded.
func (e *Emitter) Emit(ctx context.Context, actor int64, subjectID int64, p Payload) (Fact, error) {
	if p == nil {
		return Fact{}, fmt.Errorf("audit: nil payload")
	}
	f, err := NewFact(actor, p.Action(), subjectID, p, e.now())
	if err != nil {
		return Fact{}, err
	}
	rctx := context.WithoutCancel(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(rctx, e.timeout)
		defer cancel()
	}
	if err := e.sink.Record(rctx, f); err != nil {
		e.log.Errorf("audit: record %s %d: %v", f.Action, f.SubjectID, err)
		monitoring.CaptureException(err, map[string]string{"component": "audit", "action": string(f.Action)})
	}
	e.bus.Publish(f)
	return f, nil
}

// Subscribe returns a channel receiving every emitted fact. Slow observers
// miss facts rather than delaying writers.
func (e *Emitter) Subscribe() <-chan Fact { return e.bus.Subscribe() }

// Unsubscribe stops delivery to ch.
func (e *Emitter) Unsubscribe(ch <-chan Fact) { e.bus.Unsubscribe(ch) }

// Close closes observer channels. It does not close the sink.
func (e *Emitter) Close() { e.bus.Close() }
