// Package sqlstore keeps the audit trail in the ledger's SQL database and
// answers history queries from it.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/worklog/core/audit"
	"github.com/kilianp07/worklog/infra/store/sqlutil"
)

// Dialects.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

type dialect struct {
	schema []string
	bind   func(string) string
	// nullInt and nullText type an untyped parameter for IS NULL checks.
	nullInt  string
	nullText string
	contains string
}

var dialects = map[string]dialect{
	SQLite: {
		schema: []string{
			`CREATE TABLE IF NOT EXISTS audit_log (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL UNIQUE,
        actor INTEGER NOT NULL,
        action TEXT NOT NULL,
        subject_kind TEXT NOT NULL,
        subject_id INTEGER NOT NULL,
        vehicle_id INTEGER NOT NULL,
        work_date TEXT NOT NULL,
        payload TEXT NOT NULL,
        search TEXT NOT NULL,
        occurred_at INTEGER NOT NULL
    )`,
			`CREATE INDEX IF NOT EXISTS idx_audit_vehicle ON audit_log (vehicle_id, occurred_at)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_occurred ON audit_log (occurred_at)`,
		},
		nullInt:  "?",
		nullText: "?",
		contains: "instr(search, ?) > 0",
	},
	Postgres: {
		schema: []string{
			`CREATE TABLE IF NOT EXISTS audit_log (
        seq BIGSERIAL PRIMARY KEY,
        id UUID NOT NULL UNIQUE,
        actor BIGINT NOT NULL,
        action TEXT NOT NULL,
        subject_kind TEXT NOT NULL,
        subject_id BIGINT NOT NULL,
        vehicle_id BIGINT NOT NULL,
        work_date CHAR(10) NOT NULL,
        payload TEXT NOT NULL,
        search TEXT NOT NULL,
        occurred_at BIGINT NOT NULL
    )`,
			`CREATE INDEX IF NOT EXISTS idx_audit_vehicle ON audit_log (vehicle_id, occurred_at)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_occurred ON audit_log (occurred_at)`,
		},
		bind:     sqlutil.Dollar,
		nullInt:  "CAST(? AS BIGINT)",
		nullText: "CAST(? AS TEXT)",
		contains: "strpos(search, ?) > 0",
	},
	MySQL: {
		schema: []string{
			`CREATE TABLE IF NOT EXISTS audit_log (
        seq BIGINT AUTO_INCREMENT PRIMARY KEY,
        id CHAR(36) NOT NULL,
        actor BIGINT NOT NULL,
        action VARCHAR(16) NOT NULL,
        subject_kind VARCHAR(32) NOT NULL,
        subject_id BIGINT NOT NULL,
        vehicle_id BIGINT NOT NULL,
        work_date CHAR(10) NOT NULL,
        payload TEXT NOT NULL,
        search TEXT NOT NULL,
        occurred_at BIGINT NOT NULL,
        UNIQUE KEY uq_audit_id (id),
        KEY idx_audit_vehicle (vehicle_id, occurred_at),
        KEY idx_audit_occurred (occurred_at)
    ) ENGINE=InnoDB`,
		},
		nullInt:  "?",
		nullText: "?",
		contains: "INSTR(search, ?) > 0",
	},
}

// Store is an audit.Sink and audit.Reader over one table.
type Store struct {
	db     *sql.DB
	insert string
	find   string
}

// New prepares the statements of dialect. Call Migrate before first use.
func New(db *sql.DB, dialectName string) (*Store, error) {
	d, ok := dialects[dialectName]
	if !ok {
		return nil, fmt.Errorf("audit sqlstore: unsupported dialect %q", dialectName)
	}
	bind := d.bind
	if bind == nil {
		bind = func(q string) string { return q }
	}
	insert := `INSERT INTO audit_log (id, actor, action, subject_kind, subject_id, vehicle_id, work_date, payload, search, occurred_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	find := fmt.Sprintf(`SELECT id, actor, action, subject_kind, subject_id, payload, occurred_at
        FROM audit_log
        WHERE (%[1]s IS NULL OR vehicle_id = ?)
          AND (%[1]s IS NULL OR actor = ?)
          AND (%[2]s IS NULL OR action = ?)
          AND (%[1]s IS NULL OR occurred_at >= ?)
          AND (%[1]s IS NULL OR occurred_at < ?)
          AND (%[2]s = '' OR %[3]s)
        ORDER BY occurred_at DESC, seq DESC
        LIMIT ?`, d.nullInt, d.nullText, d.contains)
	return &Store{db: db, insert: bind(insert), find: bind(find)}, nil
}

// Open creates the store and its table.
func Open(ctx context.Context, db *sql.DB, dialectName string) (*Store, error) {
	s, err := New(db, dialectName)
	if err != nil {
		return nil, err
	}
	if err := sqlutil.Migrate(ctx, db, dialects[dialectName].schema); err != nil {
		return nil, fmt.Errorf("audit sqlstore: %w", err)
	}
	return s, nil
}

func (s *Store) Record(ctx context.Context, f audit.Fact) error {
	if f.Payload == nil {
		return fmt.Errorf("audit sqlstore: fact %s has no payload", f.ID)
	}
	payload, err := json.Marshal(f.Payload)
	if err != nil {
		return err
	}
	vehicle, day := f.Payload.Cell()
	_, err = s.db.ExecContext(ctx, s.insert,
		f.ID.String(), f.Actor, string(f.Action), f.SubjectKind, f.SubjectID,
		vehicle, day.Format("2006-01-02"), string(payload),
		strings.ToLower(audit.SearchText(f)), f.OccurredAt.UnixMilli())
	if err != nil {
		return sqlutil.Classify(err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, q audit.Query) ([]audit.Fact, error) {
	q = q.Normalized()
	var action any
	if q.Action != nil {
		action = string(*q.Action)
	}
	text := strings.ToLower(q.Text)
	args := []any{
		optInt(q.VehicleID), optInt(q.VehicleID),
		optInt(q.ActorID), optInt(q.ActorID),
		action, action,
		optMillis(q.From), optMillis(q.From),
		optMillis(q.To), optMillis(q.To),
		text, text,
		q.Limit,
	}
	rows, err := s.db.QueryContext(ctx, s.find, args...)
	if err != nil {
		return nil, sqlutil.Classify(err)
	}
	defer rows.Close()

	var out []audit.Fact
	for rows.Next() {
		var (
			f       audit.Fact
			id      string
			act     string
			payload string
			millis  int64
		)
		if err := rows.Scan(&id, &f.Actor, &act, &f.SubjectKind, &f.SubjectID, &payload, &millis); err != nil {
			return nil, err
		}
		if f.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("audit sqlstore: fact id %q: %w", id, err)
		}
		f.Action = audit.Action(act)
		if f.Payload, err = audit.DecodePayload(f.Action, []byte(payload)); err != nil {
			return nil, err
		}
		f.OccurredAt = time.UnixMilli(millis).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

func optInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func optMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}
