package repository

import (
	"context"
	"time"

	"github.com/thevrus/sellflow/internal/machine"
)

// Session is a persisted cart session: the machine snapshot plus bookkeeping
// timestamps. In-flight states are never persisted; the snapshot is taken in
// quiescent states only.
type Session struct {
	ID        string          `json:"id"`
	State     machine.State   `json:"state"`
	Context   machine.Context `json:"context"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SessionRepository defines the interface for session snapshot persistence.
type SessionRepository interface {
	// Get retrieves a session by its ID.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Save persists a session snapshot, overwriting any existing one.
	Save(ctx context.Context, session *Session) error

	// Delete removes a session from the store.
	Delete(ctx context.Context, sessionID string) error

	// ListIDs returns the IDs of all live sessions.
	ListIDs(ctx context.Context) ([]string, error)
}

// Transition is one journal row: a state change applied to a session.
type Transition struct {
	SessionID  string            `json:"session_id"`
	FromState  machine.State     `json:"from_state"`
	EventType  machine.EventType `json:"event_type"`
	ToState    machine.State     `json:"to_state"`
	CartID     string            `json:"cart_id,omitempty"`
	ErrorCount int               `json:"error_count"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// TransitionJournal defines the interface for the append-only transition log.
type TransitionJournal interface {
	// Record appends one transition.
	Record(ctx context.Context, tr Transition) error

	// ListBySession returns a session's transitions, most recent first.
	ListBySession(ctx context.Context, sessionID string, limit int) ([]Transition, error)
}
