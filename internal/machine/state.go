package machine

// State names one node in the cart lifecycle machine.
type State string

// Quiescent states.
const (
	StateUninitialized       State = "uninitialized"
	StateIdle                State = "idle"
	StateError               State = "error"
	StateInitializationError State = "initializationError"
	StateCartCompleted       State = "cartCompleted"
)

// Action-in-flight states, one per mutating operation.
const (
	StateCartFetching           State = "cartFetching"
	StateCartCreating           State = "cartCreating"
	StateCartLineAdding         State = "cartLineAdding"
	StateCartLineUpdating       State = "cartLineUpdating"
	StateCartLineRemoving       State = "cartLineRemoving"
	StateNoteUpdating           State = "noteUpdating"
	StateBuyerIdentityUpdating  State = "buyerIdentityUpdating"
	StateCartAttributesUpdating State = "cartAttributesUpdating"
	StateDiscountCodesUpdating  State = "discountCodesUpdating"
)

// InFlight reports whether an asynchronous action is pending in s.
func (s State) InFlight() bool {
	switch s {
	case StateCartFetching, StateCartCreating, StateCartLineAdding,
		StateCartLineUpdating, StateCartLineRemoving, StateNoteUpdating,
		StateBuyerIdentityUpdating, StateCartAttributesUpdating,
		StateDiscountCodesUpdating:
		return true
	}
	return false
}

// transition maps an accepted event to a target state and the reducers applied
// on the way.
type transition struct {
	Target   State
	Reducers []Reducer
}

// stateDef is one row of the transition table. Invoke marks an
// action-in-flight state: entering it runs the entry reducers, fires the
// entry and optimistic-update hooks, and dispatches the asynchronous action.
type stateDef struct {
	On     map[EventType]transition
	Invoke bool
	Entry  []Reducer
	Exit   []Reducer
}

// actionOptions parameterize the action state template. Zero values give the
// standard idle/error targets.
type actionOptions struct {
	resolveTarget State
	errorTarget   State
	entry         []Reducer
	exit          []Reducer
}

// actionState is the template every in-flight state is generated from: the
// entry snapshot, the three terminal transitions, and the always-run exit
// reducers are identical for all nine operations; only the targets vary.
func actionState(opts actionOptions) stateDef {
	if opts.resolveTarget == "" {
		opts.resolveTarget = StateIdle
	}
	if opts.errorTarget == "" {
		opts.errorTarget = StateError
	}

	entry := make([]Reducer, 0, len(opts.entry)+1)
	entry = append(entry, opts.entry...)
	entry = append(entry, snapshotLastValid)

	return stateDef{
		Invoke: true,
		Entry:  entry,
		Exit:   opts.exit,
		On: map[EventType]transition{
			EventResolve:       {Target: opts.resolveTarget, Reducers: []Reducer{assignResolved}},
			EventError:         {Target: opts.errorTarget, Reducers: []Reducer{assignRolledBack}},
			EventCartCompleted: {Target: StateCartCompleted, Reducers: []Reducer{resetContext}},
		},
	}
}

// initTransitions are the three initialization events, accepted in every
// quiescent state.
func initTransitions() map[EventType]transition {
	return map[EventType]transition{
		EventCartFetch:  {Target: StateCartFetching},
		EventCartCreate: {Target: StateCartCreating},
		EventCartSet:    {Target: StateIdle, Reducers: []Reducer{assignNormalized}},
	}
}

// updateTransitions are the update events, accepted only once a cart exists
// (idle and error states).
func updateTransitions() map[EventType]transition {
	return map[EventType]transition{
		EventCartLineAdd:          {Target: StateCartLineAdding},
		EventCartLineUpdate:       {Target: StateCartLineUpdating},
		EventCartLineRemove:       {Target: StateCartLineRemoving},
		EventNoteUpdate:           {Target: StateNoteUpdating},
		EventBuyerIdentityUpdate:  {Target: StateBuyerIdentityUpdating},
		EventCartAttributesUpdate: {Target: StateCartAttributesUpdating},
		EventDiscountCodesUpdate:  {Target: StateDiscountCodesUpdating},
	}
}

func merged(ms ...map[EventType]transition) map[EventType]transition {
	out := make(map[EventType]transition)
	for _, m := range ms {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// newStateTable builds the full 14-state transition table. Nine of the states
// come from the actionState template; only the two initialization actions
// override the error target.
func newStateTable() map[State]stateDef {
	return map[State]stateDef{
		StateUninitialized:       {On: initTransitions()},
		StateCartCompleted:       {On: initTransitions()},
		StateInitializationError: {On: initTransitions()},

		StateIdle:  {On: merged(initTransitions(), updateTransitions())},
		StateError: {On: merged(initTransitions(), updateTransitions())},

		StateCartFetching: actionState(actionOptions{errorTarget: StateInitializationError}),
		StateCartCreating: actionState(actionOptions{errorTarget: StateInitializationError}),

		StateCartLineAdding:         actionState(actionOptions{}),
		StateCartLineUpdating:       actionState(actionOptions{}),
		StateCartLineRemoving:       actionState(actionOptions{}),
		StateNoteUpdating:           actionState(actionOptions{}),
		StateBuyerIdentityUpdating:  actionState(actionOptions{}),
		StateCartAttributesUpdating: actionState(actionOptions{}),
		StateDiscountCodesUpdating:  actionState(actionOptions{}),
	}
}
