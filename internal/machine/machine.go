package machine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/thevrus/sellflow/internal/domain"
)

// CartAPI is the collaborator contract the machine drives: one asynchronous
// side-effecting operation per mutating event. Implementations return the
// {data, errors} pair; the machine translates it into a terminal event.
type CartAPI interface {
	Fetch(ctx context.Context, cartID string) (Result, error)
	Create(ctx context.Context, input domain.CartInput) (Result, error)
	AddLines(ctx context.Context, cartID string, lines []domain.CartLineInput) (Result, error)
	UpdateLines(ctx context.Context, cartID string, updates []domain.CartLineUpdateInput) (Result, error)
	RemoveLines(ctx context.Context, cartID string, lineIDs []string) (Result, error)
	UpdateNote(ctx context.Context, cartID, note string) (Result, error)
	UpdateBuyerIdentity(ctx context.Context, cartID string, identity domain.BuyerIdentity) (Result, error)
	UpdateAttributes(ctx context.Context, cartID string, attrs []domain.Attribute) (Result, error)
	UpdateDiscountCodes(ctx context.Context, cartID string, codes []string) (Result, error)
}

// Hooks are optional caller-provided callbacks. OnActionEntry fires at the
// start of every mutating action, before the optimistic patch. The patch
// returned by OnOptimisticUpdate is merged into the context before the
// asynchronous call is dispatched, so the in-flight context reflects it.
// OnActionComplete fires on every exit from an in-flight state regardless of
// outcome. Entry and complete hooks are read-only notifications.
type Hooks struct {
	OnActionEntry      func(Context, Event)
	OnOptimisticUpdate func(Context, Event) *Patch
	OnActionComplete   func(Context, Event)
}

// Snapshot is the externally observable (state, context) pair.
type Snapshot struct {
	State   State   `json:"state"`
	Context Context `json:"context"`
}

// Change describes one applied transition, delivered to subscribers.
type Change struct {
	Event   Event
	From    State
	To      State
	Context Context
}

// Machine coordinates one cart aggregate's lifecycle. Events are applied one
// at a time under the mutex; while an action is in flight only terminal events
// are accepted, so per-instance there is at most one pending operation.
type Machine struct {
	mu      sync.Mutex
	state   State
	context Context
	table   map[State]stateDef

	api    CartAPI
	hooks  Hooks
	logger *slog.Logger

	// generation fences asynchronous deliveries: it is bumped on every entry
	// into an in-flight state, and a terminal event carrying a stale
	// generation is dropped instead of being applied as if current.
	generation uint64

	nextSubID   int
	subscribers map[int]func(Change)

	// notifyMu serializes subscriber notifications in application order. It is
	// taken before mu is released, so a terminal delivery racing the next Send
	// cannot notify out of order. Callbacks must not re-enter Send.
	notifyMu sync.Mutex
}

// Option configures a Machine.
type Option func(*Machine)

// WithHooks installs the caller's hooks.
func WithHooks(h Hooks) Option {
	return func(m *Machine) { m.hooks = h }
}

// WithLogger sets the logger used for dropped and misrouted events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithInitialCart starts the machine in idle with the normalized cart instead
// of uninitialized.
func WithInitialCart(raw *domain.RawCart) Option {
	return func(m *Machine) {
		if raw == nil {
			return
		}
		m.state = StateIdle
		m.context = Context{Cart: domain.NormalizeCart(raw), RawCartResult: raw}
	}
}

// WithRestoredSnapshot rehydrates a persisted snapshot. In-flight states are
// not restorable; a snapshot taken in one lands in idle when a cart exists and
// uninitialized otherwise.
func WithRestoredSnapshot(snap Snapshot) Option {
	return func(m *Machine) {
		state := snap.State
		if state.InFlight() || state == "" {
			if snap.Context.Cart != nil {
				state = StateIdle
			} else {
				state = StateUninitialized
			}
		}
		m.state = state
		m.context = snap.Context
	}
}

// New creates a machine in the uninitialized state (unless an option supplies
// a cart) bound to the given collaborator.
func New(api CartAPI, opts ...Option) *Machine {
	m := &Machine{
		state:       StateUninitialized,
		table:       newStateTable(),
		api:         api,
		logger:      slog.Default(),
		subscribers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state name.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns the current (state, context) pair.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, Context: m.context}
}

// Subscribe registers fn to be called after every applied transition.
// Notifications arrive in application order; fn must not call Send. The
// returned function removes the subscription.
func (m *Machine) Subscribe(fn func(Change)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subscribers, id)
	}
}

// Send injects an event. It returns false when the current state does not
// accept the event's type; nothing is changed in that case. Accepted events
// are fully applied, entry actions included, before Send returns; the
// asynchronous side effect of an action event continues in the background and
// concludes with a terminal event delivered by the machine itself.
func (m *Machine) Send(ctx context.Context, ev Event) bool {
	m.mu.Lock()
	change, subs, accepted := m.applyLocked(ctx, ev)
	if !accepted {
		m.mu.Unlock()
		return false
	}

	m.notifyMu.Lock()
	m.mu.Unlock()
	for _, fn := range subs {
		fn(change)
	}
	m.notifyMu.Unlock()
	return true
}

// applyLocked performs one full transition under the mutex and returns the
// applied change and the subscribers to notify.
func (m *Machine) applyLocked(ctx context.Context, ev Event) (Change, []func(Change), bool) {
	def := m.table[m.state]
	tr, ok := def.On[ev.Type]
	if !ok {
		m.logger.Debug("event ignored",
			slog.String("state", string(m.state)),
			slog.String("event", string(ev.Type)),
		)
		return Change{}, nil, false
	}
	from := m.state

	next := m.context
	for _, reduce := range tr.Reducers {
		next = reduce(next, ev)
	}

	// Exit sequence of an in-flight state: completion hook first, then any
	// template-supplied post-exit reducers. It runs for every terminal event.
	if def.Invoke && ev.Type.Terminal() {
		if m.hooks.OnActionComplete != nil {
			m.hooks.OnActionComplete(next, ev)
		}
		for _, reduce := range def.Exit {
			next = reduce(next, ev)
		}
		// The pending dispatch, if any, is now obsolete.
		m.generation++
	}

	m.state = tr.Target
	m.context = next

	target := m.table[tr.Target]
	if target.Invoke {
		// Entry ordering contract: pre-entry reducers and the last-valid
		// snapshot, then the entry notification, then the optimistic patch,
		// then the asynchronous dispatch. Later steps observe earlier ones.
		for _, reduce := range target.Entry {
			m.context = reduce(m.context, ev)
		}
		if m.hooks.OnActionEntry != nil {
			m.hooks.OnActionEntry(m.context, ev)
		}
		if m.hooks.OnOptimisticUpdate != nil {
			if patch := m.hooks.OnOptimisticUpdate(m.context, ev); patch != nil {
				m.context = m.context.Apply(*patch)
			}
		}
		m.generation++
		// Send returns while the action is still in flight, and a driver's
		// request context may be canceled the moment it does. The dispatch
		// carries the caller's values but not its cancellation.
		go m.invoke(context.WithoutCancel(ctx), m.generation, ev, m.context)
	}

	subs := make([]func(Change), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	return Change{Event: ev, From: from, To: m.state, Context: m.context}, subs, true
}

// invoke runs the asynchronous action for the triggering event and delivers
// the translated terminal event, unless the call was a guarded no-op.
func (m *Machine) invoke(ctx context.Context, generation uint64, trigger Event, snapshot Context) {
	res, err, ok := m.call(ctx, trigger, snapshot)
	if !ok {
		return
	}
	m.deliver(ctx, generation, TranslateResult(trigger, res, err))
}

// deliver applies a terminal event produced by an asynchronous action. A
// delivery whose generation no longer matches is stale: the aggregate has
// moved on, and the event is dropped.
func (m *Machine) deliver(ctx context.Context, generation uint64, ev Event) {
	m.mu.Lock()
	if generation != m.generation {
		m.logger.WarnContext(ctx, "dropping stale terminal event",
			slog.String("event", string(ev.Type)),
			slog.Uint64("generation", generation),
			slog.Uint64("current", m.generation),
		)
		m.mu.Unlock()
		return
	}
	change, subs, accepted := m.applyLocked(ctx, ev)
	if !accepted {
		m.mu.Unlock()
		return
	}

	m.notifyMu.Lock()
	m.mu.Unlock()
	for _, fn := range subs {
		fn(change)
	}
	m.notifyMu.Unlock()
}

// call routes the triggering event to the matching CartAPI operation. It
// no-ops (false) when the event kind has no action or required identifying
// data is missing; that indicates driver-level misuse, not a domain failure.
func (m *Machine) call(ctx context.Context, trigger Event, snapshot Context) (Result, error, bool) {
	cartID := trigger.CartID
	if cartID == "" && snapshot.Cart != nil {
		cartID = snapshot.Cart.ID
	}

	requireCart := func() bool {
		if cartID == "" {
			m.logger.WarnContext(ctx, "action skipped: no cart id",
				slog.String("event", string(trigger.Type)),
			)
			return false
		}
		return true
	}

	switch trigger.Type {
	case EventCartFetch:
		if !requireCart() {
			return Result{}, nil, false
		}
		res, err := m.api.Fetch(ctx, cartID)
		return res, err, true

	case EventCartCreate:
		var input domain.CartInput
		if trigger.Input != nil {
			input = *trigger.Input
		}
		res, err := m.api.Create(ctx, input)
		return res, err, true

	case EventCartLineAdd:
		if !requireCart() {
			return Result{}, nil, false
		}
		res, err := m.api.AddLines(ctx, cartID, trigger.Lines)
		return res, err, true

	case EventCartLineUpdate:
		if !requireCart() {
			return Result{}, nil, false
		}
		res, err := m.api.UpdateLines(ctx, cartID, trigger.LineUpdates)
		return res, err, true

	case EventCartLineRemove:
		if !requireCart() {
			return Result{}, nil, false
		}
		res, err := m.api.RemoveLines(ctx, cartID, trigger.LineIDs)
		return res, err, true

	case EventNoteUpdate:
		if !requireCart() {
			return Result{}, nil, false
		}
		note := ""
		if trigger.Note != nil {
			note = *trigger.Note
		}
		res, err := m.api.UpdateNote(ctx, cartID, note)
		return res, err, true

	case EventBuyerIdentityUpdate:
		if !requireCart() || trigger.BuyerIdentity == nil {
			return Result{}, nil, false
		}
		res, err := m.api.UpdateBuyerIdentity(ctx, cartID, *trigger.BuyerIdentity)
		return res, err, true

	case EventCartAttributesUpdate:
		if !requireCart() {
			return Result{}, nil, false
		}
		res, err := m.api.UpdateAttributes(ctx, cartID, trigger.Attributes)
		return res, err, true

	case EventDiscountCodesUpdate:
		if !requireCart() {
			return Result{}, nil, false
		}
		res, err := m.api.UpdateDiscountCodes(ctx, cartID, trigger.DiscountCodes)
		return res, err, true

	default:
		m.logger.WarnContext(ctx, "no action bound for event",
			slog.String("event", string(trigger.Type)),
		)
		return Result{}, nil, false
	}
}
