package machine

import "github.com/thevrus/sellflow/internal/domain"

// EventType identifies a machine event.
type EventType string

// Initialization and update events, accepted only in quiescent states.
const (
	EventCartFetch  EventType = "CART_FETCH"
	EventCartCreate EventType = "CART_CREATE"
	EventCartSet    EventType = "CART_SET"

	EventCartLineAdd          EventType = "CARTLINE_ADD"
	EventCartLineUpdate       EventType = "CARTLINE_UPDATE"
	EventCartLineRemove       EventType = "CARTLINE_REMOVE"
	EventNoteUpdate           EventType = "NOTE_UPDATE"
	EventBuyerIdentityUpdate  EventType = "BUYER_IDENTITY_UPDATE"
	EventCartAttributesUpdate EventType = "CART_ATTRIBUTES_UPDATE"
	EventDiscountCodesUpdate  EventType = "DISCOUNT_CODES_UPDATE"
)

// Terminal events, the three possible outcomes of any asynchronous action.
const (
	EventResolve       EventType = "RESOLVE"
	EventError         EventType = "ERROR"
	EventCartCompleted EventType = "CART_COMPLETED"
)

// Terminal reports whether t concludes an action-in-flight state.
func (t EventType) Terminal() bool {
	return t == EventResolve || t == EventError || t == EventCartCompleted
}

// Event is the tagged union dispatched into the machine. Only the fields
// relevant to Type are populated.
type Event struct {
	Type EventType `json:"type"`

	// Action payloads.
	CartID        string                       `json:"cart_id,omitempty"`
	Input         *domain.CartInput            `json:"input,omitempty"`
	RawCart       *domain.RawCart              `json:"raw_cart,omitempty"`
	Lines         []domain.CartLineInput       `json:"lines,omitempty"`
	LineUpdates   []domain.CartLineUpdateInput `json:"line_updates,omitempty"`
	LineIDs       []string                     `json:"line_ids,omitempty"`
	Note          *string                      `json:"note,omitempty"`
	BuyerIdentity *domain.BuyerIdentity        `json:"buyer_identity,omitempty"`
	Attributes    []domain.Attribute           `json:"attributes,omitempty"`
	DiscountCodes []string                     `json:"discount_codes,omitempty"`

	// Terminal payloads.
	Cart      *domain.Cart       `json:"cart,omitempty"`
	RawResult *domain.RawCart    `json:"raw_result,omitempty"`
	Errors    []domain.CartError `json:"errors,omitempty"`

	// Cause references the action event that produced a terminal event, for
	// correlation by hooks and collaborators.
	Cause *Event `json:"cause,omitempty"`
}

// FetchCart requests a cart by ID from the storefront.
func FetchCart(cartID string) Event {
	return Event{Type: EventCartFetch, CartID: cartID}
}

// CreateCart requests a new cart, optionally seeded with input.
func CreateCart(input *domain.CartInput) Event {
	return Event{Type: EventCartCreate, Input: input}
}

// SetCart synchronously initializes the machine from a raw payload held by the
// caller; no storefront call is made.
func SetCart(raw *domain.RawCart) Event {
	return Event{Type: EventCartSet, RawCart: raw}
}

// AddLines adds merchandise lines to the current cart.
func AddLines(lines ...domain.CartLineInput) Event {
	return Event{Type: EventCartLineAdd, Lines: lines}
}

// UpdateLines modifies existing lines.
func UpdateLines(updates ...domain.CartLineUpdateInput) Event {
	return Event{Type: EventCartLineUpdate, LineUpdates: updates}
}

// RemoveLines removes lines by ID.
func RemoveLines(lineIDs ...string) Event {
	return Event{Type: EventCartLineRemove, LineIDs: lineIDs}
}

// UpdateNote replaces the cart note.
func UpdateNote(note string) Event {
	return Event{Type: EventNoteUpdate, Note: &note}
}

// UpdateBuyerIdentity replaces the buyer identity.
func UpdateBuyerIdentity(identity domain.BuyerIdentity) Event {
	return Event{Type: EventBuyerIdentityUpdate, BuyerIdentity: &identity}
}

// UpdateAttributes replaces the cart attributes.
func UpdateAttributes(attrs []domain.Attribute) Event {
	return Event{Type: EventCartAttributesUpdate, Attributes: attrs}
}

// UpdateDiscountCodes replaces the applied discount codes.
func UpdateDiscountCodes(codes []string) Event {
	return Event{Type: EventDiscountCodesUpdate, DiscountCodes: codes}
}

// Resolved concludes an action with a normalized cart and its raw payload.
func Resolved(cart *domain.Cart, raw *domain.RawCart, cause Event) Event {
	return Event{Type: EventResolve, Cart: cart, RawResult: raw, Cause: &cause}
}

// Failed concludes an action with the errors it produced.
func Failed(errs []domain.CartError, cause Event) Event {
	return Event{Type: EventError, Errors: errs, Cause: &cause}
}

// Completed concludes an action whose success yields no cart, ending the
// aggregate's lifetime.
func Completed(cause Event) Event {
	return Event{Type: EventCartCompleted, Cause: &cause}
}
