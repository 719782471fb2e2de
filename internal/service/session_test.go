package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thevrus/sellflow/internal/domain"
	"github.com/thevrus/sellflow/internal/event"
	"github.com/thevrus/sellflow/internal/machine"
	"github.com/thevrus/sellflow/internal/repository"
	apperrors "github.com/thevrus/sellflow/pkg/errors"
	pkgkafka "github.com/thevrus/sellflow/pkg/kafka"
	"github.com/thevrus/sellflow/pkg/pagination"
)

// --- Mock repositories ---

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) Get(ctx context.Context, sessionID string) (*repository.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Session), args.Error(1)
}

func (m *mockSessionRepo) Save(ctx context.Context, session *repository.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepo) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockSessionRepo) ListIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) Record(ctx context.Context, tr repository.Transition) error {
	args := m.Called(ctx, tr)
	return args.Error(0)
}

func (m *mockJournal) ListBySession(ctx context.Context, sessionID string, limit int) ([]repository.Transition, error) {
	args := m.Called(ctx, sessionID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.Transition), args.Error(1)
}

// --- Stub storefront API ---

type stubCartAPI struct {
	fetch func(ctx context.Context, cartID string) (machine.Result, error)
}

func resolvedCart(id string) machine.Result {
	return machine.Result{Cart: &domain.RawCart{ID: id}}
}

func (s *stubCartAPI) Fetch(ctx context.Context, cartID string) (machine.Result, error) {
	if s.fetch != nil {
		return s.fetch(ctx, cartID)
	}
	return resolvedCart(cartID), nil
}

func (s *stubCartAPI) Create(context.Context, domain.CartInput) (machine.Result, error) {
	return resolvedCart("cart-new"), nil
}

func (s *stubCartAPI) AddLines(_ context.Context, cartID string, _ []domain.CartLineInput) (machine.Result, error) {
	return resolvedCart(cartID), nil
}

func (s *stubCartAPI) UpdateLines(_ context.Context, cartID string, _ []domain.CartLineUpdateInput) (machine.Result, error) {
	return resolvedCart(cartID), nil
}

func (s *stubCartAPI) RemoveLines(_ context.Context, cartID string, _ []string) (machine.Result, error) {
	return resolvedCart(cartID), nil
}

func (s *stubCartAPI) UpdateNote(_ context.Context, cartID, _ string) (machine.Result, error) {
	return resolvedCart(cartID), nil
}

func (s *stubCartAPI) UpdateBuyerIdentity(_ context.Context, cartID string, _ domain.BuyerIdentity) (machine.Result, error) {
	return resolvedCart(cartID), nil
}

func (s *stubCartAPI) UpdateAttributes(_ context.Context, cartID string, _ []domain.Attribute) (machine.Result, error) {
	return resolvedCart(cartID), nil
}

func (s *stubCartAPI) UpdateDiscountCodes(_ context.Context, cartID string, _ []string) (machine.Result, error) {
	return resolvedCart(cartID), nil
}

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(api machine.CartAPI, sessions *mockSessionRepo, journal *mockJournal) *SessionService {
	logger := newTestLogger()
	// A Kafka producer with no reachable broker; publish failures are logged
	// and do not affect the session lifecycle.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	return NewSessionService(api, sessions, journal, producer, logger)
}

func storedSession(id string) *repository.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &repository.Session{
		ID:    id,
		State: machine.StateIdle,
		Context: machine.Context{
			Cart: &domain.Cart{ID: "cart-001", Lines: []domain.CartLine{}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// --- Tests ---

func TestCreateSession(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("Save", mock.Anything, mock.AnythingOfType("*repository.Session")).Return(nil)

	session, err := svc.CreateSession(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, machine.StateUninitialized, session.State)
	assert.Nil(t, session.Context.Cart)

	sessions.AssertExpectations(t)
}

func TestCreateSession_SaveFails(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("Save", mock.Anything, mock.Anything).Return(assert.AnError)

	session, err := svc.CreateSession(context.Background())

	assert.Nil(t, session)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save new session")
}

func TestSendEvent_Rejected(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("Save", mock.Anything, mock.Anything).Return(nil)
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	// Update events are not accepted before a cart exists.
	_, err = svc.SendEvent(context.Background(), session.ID, machine.UpdateNote("hi"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEventRejected)
}

func TestSendEvent_FetchSettlesIntoIdle(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("Save", mock.Anything, mock.Anything).Return(nil)
	journal.On("Record", mock.Anything, mock.AnythingOfType("repository.Transition")).Return(nil)

	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	snap, err := svc.SendEvent(context.Background(), session.ID, machine.FetchCart("cart-001"))
	require.NoError(t, err)
	assert.Equal(t, machine.StateCartFetching, snap.State)

	require.Eventually(t, func() bool {
		got, err := svc.GetSession(context.Background(), session.ID)
		return err == nil && got.State == machine.StateIdle
	}, 3*time.Second, 10*time.Millisecond)

	got, err := svc.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Context.Cart)
	assert.Equal(t, "cart-001", got.Context.Cart.ID)

	journal.AssertCalled(t, "Record", mock.Anything, mock.MatchedBy(func(tr repository.Transition) bool {
		return tr.SessionID == session.ID && tr.EventType == machine.EventCartFetch
	}))
}

func TestSendEvent_SessionNotFound(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("Get", mock.Anything, "missing").Return(nil, apperrors.NotFound("session", "missing"))

	_, err := svc.SendEvent(context.Background(), "missing", machine.FetchCart("c1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetSession_RestoresFromStore(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	stored := storedSession("sess-r")
	sessions.On("Get", mock.Anything, "sess-r").Return(stored, nil).Once()

	got, err := svc.GetSession(context.Background(), "sess-r")

	require.NoError(t, err)
	assert.Equal(t, machine.StateIdle, got.State)
	require.NotNil(t, got.Context.Cart)
	assert.Equal(t, "cart-001", got.Context.Cart.ID)

	// A second call hits the live machine, not the store.
	_, err = svc.GetSession(context.Background(), "sess-r")
	require.NoError(t, err)
	sessions.AssertExpectations(t)
}

func TestGetSession_NotFound(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("Get", mock.Anything, "missing").Return(nil, apperrors.NotFound("session", "missing"))

	got, err := svc.GetSession(context.Background(), "missing")

	assert.Nil(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDeleteSession(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("Save", mock.Anything, mock.Anything).Return(nil)
	session, err := svc.CreateSession(context.Background())
	require.NoError(t, err)

	sessions.On("Delete", mock.Anything, session.ID).Return(nil)
	sessions.On("Get", mock.Anything, session.ID).Return(nil, apperrors.NotFound("session", session.ID))

	require.NoError(t, svc.DeleteSession(context.Background(), session.ID))

	// The live machine is gone and the store no longer has it.
	_, err = svc.GetSession(context.Background(), session.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListSessions(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("ListIDs", mock.Anything).Return([]string{"sess-b", "sess-a"}, nil)
	sessions.On("Get", mock.Anything, "sess-a").Return(storedSession("sess-a"), nil)
	sessions.On("Get", mock.Anything, "sess-b").Return(storedSession("sess-b"), nil)

	params := pagination.Params{Page: 1, PerPage: 20}
	result, err := svc.ListSessions(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "sess-a", result.Data[0].ID)
	assert.Equal(t, "sess-b", result.Data[1].ID)
}

func TestListSessions_Pagination(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	sessions.On("ListIDs", mock.Anything).Return([]string{"s1", "s2", "s3"}, nil)
	sessions.On("Get", mock.Anything, "s3").Return(storedSession("s3"), nil)

	params := pagination.Params{Page: 2, PerPage: 2, Offset: 2}
	result, err := svc.ListSessions(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "s3", result.Data[0].ID)
	assert.False(t, result.HasNext)
}

func TestListTransitions(t *testing.T) {
	sessions := new(mockSessionRepo)
	journal := new(mockJournal)
	svc := newTestService(&stubCartAPI{}, sessions, journal)

	expected := []repository.Transition{{
		SessionID: "sess-1",
		FromState: machine.StateIdle,
		EventType: machine.EventNoteUpdate,
		ToState:   machine.StateNoteUpdating,
	}}
	journal.On("ListBySession", mock.Anything, "sess-1", 50).Return(expected, nil)

	got, err := svc.ListTransitions(context.Background(), "sess-1", 0)

	require.NoError(t, err)
	assert.Equal(t, expected, got)
}
