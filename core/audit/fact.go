// Package audit defines the structured facts emitted for every ledger
// mutation and the sink contract that carries them out of the core.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of mutation a Fact describes.
type Action string

const (
	ActionCreate Action = "Create"
	ActionUpdate Action = "Update"
	ActionDelete Action = "Delete"
)

// SubjectWorkLog is the subject kind of every ledger fact.
const SubjectWorkLog = "WorkLog"

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Fact is one audit record. Payload is decided by the emitter at write time.
type Fact struct {
	ID          uuid.UUID `json:"id"`
	Actor       int64     `json:"actor"`
	Action      Action    `json:"action"`
	SubjectKind string    `json:"subject_kind"`
	SubjectID   int64     `json:"subject_id"`
	Payload     Payload   `json:"payload"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type factJSON struct {
	ID          uuid.UUID       `json:"id"`
	Actor       int64           `json:"actor"`
	Action      Action          `json:"action"`
	SubjectKind string          `json:"subject_kind"`
	SubjectID   int64           `json:"subject_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// UnmarshalJSON decodes the payload variant selected by the action.
func (f *Fact) UnmarshalJSON(b []byte) error {
	var raw factJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p, err := DecodePayload(raw.Action, raw.Payload)
	if err != nil {
		return err
	}
	*f = Fact{
		ID:          raw.ID,
		Actor:       raw.Actor,
		Action:      raw.Action,
		SubjectKind: raw.SubjectKind,
		SubjectID:   raw.SubjectID,
		Payload:     p,
		OccurredAt:  raw.OccurredAt,
	}
	return nil
}

// NewFact stamps a fresh id and checks that the payload matches the action.
func NewFact(actor int64, action Action, subjectID int64, p Payload, at time.Time) (Fact, error) {
	if p == nil || p.Action() != action {
		return Fact{}, fmt.Errorf("audit: payload does not match action %q", action)
	}
	return Fact{
		ID:          uuid.New(),
		Actor:       actor,
		Action:      action,
		SubjectKind: SubjectWorkLog,
		SubjectID:   subjectID,
		Payload:     p,
		OccurredAt:  at.UTC(),
	}, nil
}

// Sink receives facts. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, f Fact) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, f Fact) error

func (fn SinkFunc) Record(ctx context.Context, f Fact) error { return fn(ctx, f) }

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink drops every fact.
type NopSink struct{}

func (NopSink) Record(context.Context, Fact) error { return nil }
