package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/thevrus/sellflow/internal/repository"
)

// DBTX is the subset of pgxpool.Pool the journal needs; pgxmock satisfies it
// too.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TransitionJournal implements repository.TransitionJournal using PostgreSQL.
type TransitionJournal struct {
	db DBTX
}

// NewTransitionJournal creates a new PostgreSQL-backed transition journal.
func NewTransitionJournal(db DBTX) *TransitionJournal {
	return &TransitionJournal{db: db}
}

// Record appends one transition row.
func (j *TransitionJournal) Record(ctx context.Context, tr repository.Transition) error {
	query := `
		INSERT INTO cart_transitions (
			session_id, from_state, event_type, to_state,
			cart_id, error_count, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := j.db.Exec(ctx, query,
		tr.SessionID,
		string(tr.FromState),
		string(tr.EventType),
		string(tr.ToState),
		nullableString(tr.CartID),
		tr.ErrorCount,
		tr.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert cart transition: %w", err)
	}

	return nil
}

// ListBySession returns a session's transitions, most recent first.
func (j *TransitionJournal) ListBySession(ctx context.Context, sessionID string, limit int) ([]repository.Transition, error) {
	query := `
		SELECT session_id, from_state, event_type, to_state,
			cart_id, error_count, occurred_at
		FROM cart_transitions
		WHERE session_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2`

	rows, err := j.db.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list cart transitions: %w", err)
	}
	defer rows.Close()

	var transitions []repository.Transition
	for rows.Next() {
		var (
			tr     repository.Transition
			cartID *string
		)
		if err := rows.Scan(
			&tr.SessionID,
			&tr.FromState,
			&tr.EventType,
			&tr.ToState,
			&cartID,
			&tr.ErrorCount,
			&tr.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart transition row: %w", err)
		}
		if cartID != nil {
			tr.CartID = *cartID
		}
		transitions = append(transitions, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart transition rows: %w", err)
	}

	if transitions == nil {
		transitions = []repository.Transition{}
	}

	return transitions, nil
}

// nullableString returns nil if the string is empty, otherwise a pointer to the string.
func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
