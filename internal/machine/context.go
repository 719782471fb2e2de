package machine

import "github.com/thevrus/sellflow/internal/domain"

// Context is the machine's mutable snapshot. It is owned exclusively by the
// machine instance and changed only through reducers, so every observable
// value is one of a small set of well-defined snapshots.
type Context struct {
	// Cart is the current committed or optimistic cart.
	Cart *domain.Cart `json:"cart,omitempty"`

	// PrevCart is the snapshot immediately before the last applied mutation.
	PrevCart *domain.Cart `json:"prev_cart,omitempty"`

	// LastValidCart is captured when a mutating action begins; ERROR rolls
	// back to it.
	LastValidCart *domain.Cart `json:"last_valid_cart,omitempty"`

	// RawCartResult retains the unnormalized transport response for
	// collaborators that need the wire shape.
	RawCartResult *domain.RawCart `json:"raw_cart_result,omitempty"`

	// Errors holds the failures of the most recent failed operation; cleared
	// on every successful resolve.
	Errors []domain.CartError `json:"errors,omitempty"`
}

// Reducer computes the next context from the current one and the event being
// applied. Reducers are pure; the machine applies them in order.
type Reducer func(Context, Event) Context

// snapshotLastValid captures the current cart at action entry.
func snapshotLastValid(c Context, _ Event) Context {
	c.LastValidCart = c.Cart
	return c
}

// assignResolved commits a successful result and clears any errors.
func assignResolved(c Context, ev Event) Context {
	c.PrevCart = c.LastValidCart
	c.Cart = ev.Cart
	c.RawCartResult = ev.RawResult
	c.Errors = nil
	return c
}

// assignRolledBack discards the optimistic cart and restores the entry
// snapshot, retaining the reported errors.
func assignRolledBack(c Context, ev Event) Context {
	c.PrevCart = c.LastValidCart
	c.Cart = c.LastValidCart
	c.Errors = ev.Errors
	return c
}

// resetContext clears every field; the aggregate's lifetime has ended.
func resetContext(Context, Event) Context {
	return Context{}
}

// assignNormalized installs a caller-supplied raw cart directly, used by the
// synchronous CART_SET path.
func assignNormalized(c Context, ev Event) Context {
	c.Cart = domain.NormalizeCart(ev.RawCart)
	c.RawCartResult = ev.RawCart
	c.Errors = nil
	return c
}

// Patch is a partial context returned by the optimistic-update hook. Non-nil
// fields are merged into the context before the asynchronous call is
// dispatched.
type Patch struct {
	Cart          *domain.Cart
	PrevCart      *domain.Cart
	LastValidCart *domain.Cart
	RawCartResult *domain.RawCart
	Errors        []domain.CartError
}

// Apply merges the patch into c, leaving unset fields untouched.
func (c Context) Apply(p Patch) Context {
	if p.Cart != nil {
		c.Cart = p.Cart
	}
	if p.PrevCart != nil {
		c.PrevCart = p.PrevCart
	}
	if p.LastValidCart != nil {
		c.LastValidCart = p.LastValidCart
	}
	if p.RawCartResult != nil {
		c.RawCartResult = p.RawCartResult
	}
	if p.Errors != nil {
		c.Errors = p.Errors
	}
	return c
}
