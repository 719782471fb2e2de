package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/thevrus/sellflow/internal/event"
	"github.com/thevrus/sellflow/internal/machine"
	"github.com/thevrus/sellflow/internal/repository"
	apperrors "github.com/thevrus/sellflow/pkg/errors"
	"github.com/thevrus/sellflow/pkg/pagination"
)

// persistTimeout bounds the background work triggered by one transition.
const persistTimeout = 5 * time.Second

var transitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cart_state_transitions_total",
		Help: "Applied cart machine transitions by event and resulting state",
	},
	[]string{"event", "to_state"},
)

// liveSession pairs a running machine with its bookkeeping metadata.
type liveSession struct {
	machine   *machine.Machine
	createdAt time.Time
}

// SessionService owns the running cart machines: one per session. It restores
// sessions from the snapshot store on demand and persists, journals, and
// publishes every applied transition.
type SessionService struct {
	api      machine.CartAPI
	sessions repository.SessionRepository
	journal  repository.TransitionJournal
	producer *event.Producer
	logger   *slog.Logger

	mu   sync.RWMutex
	live map[string]*liveSession
}

// NewSessionService creates a new session service.
func NewSessionService(
	api machine.CartAPI,
	sessions repository.SessionRepository,
	journal repository.TransitionJournal,
	producer *event.Producer,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		api:      api,
		sessions: sessions,
		journal:  journal,
		producer: producer,
		logger:   logger,
		live:     make(map[string]*liveSession),
	}
}

// CreateSession starts a new session with an uninitialized machine and
// persists its first snapshot.
func (s *SessionService) CreateSession(ctx context.Context) (*repository.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	m := machine.New(s.api, machine.WithLogger(s.logger))
	entry := &liveSession{machine: m, createdAt: now}
	s.attach(id, entry)

	s.mu.Lock()
	s.live[id] = entry
	s.mu.Unlock()

	session := s.toSession(id, entry)
	if err := s.sessions.Save(ctx, session); err != nil {
		s.mu.Lock()
		delete(s.live, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("save new session: %w", err)
	}

	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", id),
	)

	return session, nil
}

// GetSession returns the current snapshot of a session, restoring it from the
// store when it is not live in this process.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*repository.Session, error) {
	entry, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.toSession(sessionID, entry), nil
}

// SendEvent injects an event into the session's machine. The returned snapshot
// reflects the state immediately after the event was applied, which for action
// events is the in-flight state.
func (s *SessionService) SendEvent(ctx context.Context, sessionID string, ev machine.Event) (machine.Snapshot, error) {
	entry, err := s.resolve(ctx, sessionID)
	if err != nil {
		return machine.Snapshot{}, err
	}

	if !entry.machine.Send(ctx, ev) {
		state := entry.machine.State()
		s.logger.WarnContext(ctx, "event rejected",
			slog.String("session_id", sessionID),
			slog.String("state", string(state)),
			slog.String("event", string(ev.Type)),
		)
		return machine.Snapshot{}, apperrors.EventRejected(string(state), string(ev.Type))
	}

	return entry.machine.Snapshot(), nil
}

// DeleteSession drops the live machine and removes the stored snapshot.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.live, sessionID)
	s.mu.Unlock()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.InfoContext(ctx, "session deleted",
		slog.String("session_id", sessionID),
	)

	return nil
}

// ListSessions returns one page of sessions ordered by ID.
func (s *SessionService) ListSessions(ctx context.Context, params pagination.Params) (pagination.Result[repository.Session], error) {
	ids, err := s.sessions.ListIDs(ctx)
	if err != nil {
		return pagination.Result[repository.Session]{}, fmt.Errorf("list session ids: %w", err)
	}

	// Live sessions not yet flushed to the store still count.
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	s.mu.RLock()
	for id := range s.live {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(ids)

	page := pagination.Slice(ids, params)
	sessions := make([]repository.Session, 0, len(page))
	for _, id := range page {
		session, err := s.GetSession(ctx, id)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return pagination.Result[repository.Session]{}, err
		}
		sessions = append(sessions, *session)
	}

	return pagination.NewResult(sessions, len(ids), params), nil
}

// ListTransitions returns a session's journal entries, most recent first.
func (s *SessionService) ListTransitions(ctx context.Context, sessionID string, limit int) ([]repository.Transition, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}
	transitions, err := s.journal.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	return transitions, nil
}

// Subscribe attaches fn to the session's machine, restoring it if needed.
func (s *SessionService) Subscribe(ctx context.Context, sessionID string, fn func(machine.Change)) (func(), error) {
	entry, err := s.resolve(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return entry.machine.Subscribe(fn), nil
}

// resolve returns the live entry for a session, rehydrating it from the
// snapshot store on a miss.
func (s *SessionService) resolve(ctx context.Context, sessionID string) (*liveSession, error) {
	s.mu.RLock()
	entry, ok := s.live[sessionID]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}

	stored, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("session", sessionID)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	m := machine.New(s.api,
		machine.WithLogger(s.logger),
		machine.WithRestoredSnapshot(machine.Snapshot{State: stored.State, Context: stored.Context}),
	)
	entry = &liveSession{machine: m, createdAt: stored.CreatedAt}
	s.attach(sessionID, entry)

	s.mu.Lock()
	// Another request may have restored it concurrently; keep the first.
	if existing, ok := s.live[sessionID]; ok {
		entry = existing
	} else {
		s.live[sessionID] = entry
	}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session restored",
		slog.String("session_id", sessionID),
		slog.String("state", string(entry.machine.State())),
	)

	return entry, nil
}

// attach wires the persistence, journaling, and publishing pipeline to the
// machine's transitions.
func (s *SessionService) attach(sessionID string, entry *liveSession) {
	entry.machine.Subscribe(func(ch machine.Change) {
		s.onChange(sessionID, entry, ch)
	})
}

// onChange handles one applied transition: it counts it, journals it,
// publishes it, and persists the snapshot once the machine is quiescent.
func (s *SessionService) onChange(sessionID string, entry *liveSession, ch machine.Change) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	transitionsTotal.WithLabelValues(string(ch.Event.Type), string(ch.To)).Inc()

	cartID := ""
	if ch.Context.Cart != nil {
		cartID = ch.Context.Cart.ID
	}

	if err := s.journal.Record(ctx, repository.Transition{
		SessionID:  sessionID,
		FromState:  ch.From,
		EventType:  ch.Event.Type,
		ToState:    ch.To,
		CartID:     cartID,
		ErrorCount: len(ch.Context.Errors),
		OccurredAt: time.Now().UTC(),
	}); err != nil {
		s.logger.Error("failed to journal transition",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishStateChanged(ctx, sessionID, ch.From, ch.Event.Type, ch.To, cartID, len(ch.Context.Errors)); err != nil {
		s.logger.Error("failed to publish cart.state_changed event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	if ch.To == machine.StateCartCompleted {
		completedCartID := ""
		if ch.Event.Cause != nil && ch.Event.Cause.CartID != "" {
			completedCartID = ch.Event.Cause.CartID
		}
		if err := s.producer.PublishCartCompleted(ctx, sessionID, completedCartID); err != nil {
			s.logger.Error("failed to publish cart.completed event",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	// In-flight states are transient and never restorable, so only quiescent
	// snapshots reach the store.
	if !ch.To.InFlight() {
		session := &repository.Session{
			ID:        sessionID,
			State:     ch.To,
			Context:   ch.Context,
			CreatedAt: entry.createdAt,
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			s.logger.Error("failed to persist session snapshot",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// toSession builds the externally visible session record from a live entry.
func (s *SessionService) toSession(id string, entry *liveSession) *repository.Session {
	snap := entry.machine.Snapshot()
	return &repository.Session{
		ID:        id,
		State:     snap.State,
		Context:   snap.Context,
		CreatedAt: entry.createdAt,
		UpdatedAt: time.Now().UTC(),
	}
}
