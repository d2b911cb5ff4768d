// Package audit records dispatch decisions to SQLite for operator
// inspection. It is an append-only trail, grounded on
// internal/database's connection setup; it is never read back to restore
// session state on restart — the session registry's state lives only in
// memory for the lifetime of the process.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Outcome labels what the registry did with a dispatched event.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeAttached  Outcome = "attached"
	OutcomeWoken     Outcome = "woken"
	OutcomeDropped   Outcome = "dropped"
	OutcomeNowait    Outcome = "nowait"
	OutcomeErrored   Outcome = "errored"
)

// Event is one row of the dispatch trail.
type Event struct {
	RuleID     string
	SessionID  string
	Outcome    Outcome
	Detail     string
	OccurredAt time.Time
}

// Log appends dispatch events to the database.
type Log struct {
	db  *sql.DB
	log *slog.Logger
}

// New wraps an already-open database connection (see
// internal/database.Open) as an audit Log.
func New(db *sql.DB, log *slog.Logger) *Log {
	if log == nil {
		log = slog.Default()
	}
	return &Log{db: db, log: log.With("component", "audit")}
}

// Record appends a single dispatch event. Failures are logged, not
// returned, so a database hiccup never blocks dispatch itself — the audit
// trail is best-effort observability, not a correctness dependency.
func (l *Log) Record(ctx context.Context, ev Event) {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO dispatch_events (rule_id, session_id, outcome, detail, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		ev.RuleID, ev.SessionID, string(ev.Outcome), ev.Detail, ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		l.log.Error("record dispatch event failed", "error", err, "outcome", ev.Outcome)
	}
}

// Recent returns the most recent n dispatch events, newest first, for the
// admin surface's inspection endpoint.
func (l *Log) Recent(ctx context.Context, n int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT rule_id, session_id, outcome, detail, occurred_at FROM dispatch_events ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("querying dispatch events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var outcome, occurredAt string
		if err := rows.Scan(&ev.RuleID, &ev.SessionID, &outcome, &ev.Detail, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning dispatch event: %w", err)
		}
		ev.Outcome = Outcome(outcome)
		ev.OccurredAt, err = time.Parse(time.RFC3339Nano, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing occurred_at: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// CountByOutcome returns how many recorded events match outcome.
func (l *Log) CountByOutcome(ctx context.Context, outcome Outcome) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dispatch_events WHERE outcome = ?`, string(outcome)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting dispatch events: %w", err)
	}
	return n, nil
}
