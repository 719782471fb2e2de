package domain

// RawCart is the wire shape returned by the storefront API: line items arrive
// as a paginated connection and the note may be absent rather than empty.
type RawCart struct {
	ID            string         `json:"id"`
	Lines         RawCartLines   `json:"lines"`
	Note          *string        `json:"note,omitempty"`
	BuyerIdentity BuyerIdentity  `json:"buyer_identity"`
	Attributes    []Attribute    `json:"attributes,omitempty"`
	DiscountCodes []DiscountCode `json:"discount_codes,omitempty"`
}

// RawCartLines is the paginated line-item connection.
type RawCartLines struct {
	Edges    []RawCartLineEdge `json:"edges"`
	PageInfo PageInfo          `json:"page_info"`
}

// RawCartLineEdge wraps one line node with its cursor.
type RawCartLineEdge struct {
	Cursor string   `json:"cursor,omitempty"`
	Node   CartLine `json:"node"`
}

// PageInfo carries connection paging metadata.
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor,omitempty"`
}

// NormalizeCart converts a raw payload into the canonical in-memory cart:
// edges are flattened into a plain slice preserving order, and an absent note
// collapses to the empty string. The transform is total and idempotent in the
// sense that a cart converted back to its raw shape normalizes to an equal cart.
func NormalizeCart(raw *RawCart) *Cart {
	if raw == nil {
		return nil
	}

	lines := make([]CartLine, len(raw.Lines.Edges))
	for i, edge := range raw.Lines.Edges {
		lines[i] = edge.Node
		lines[i].Attributes = append([]Attribute(nil), edge.Node.Attributes...)
	}

	note := ""
	if raw.Note != nil {
		note = *raw.Note
	}

	return &Cart{
		ID:            raw.ID,
		Lines:         lines,
		Note:          note,
		BuyerIdentity: raw.BuyerIdentity,
		Attributes:    append([]Attribute(nil), raw.Attributes...),
		DiscountCodes: append([]DiscountCode(nil), raw.DiscountCodes...),
	}
}

// DenormalizeCart rebuilds a single-page raw payload from a normalized cart.
// Used when rehydrating a persisted session through the same entry path the
// transport layer uses.
func DenormalizeCart(cart *Cart) *RawCart {
	if cart == nil {
		return nil
	}

	edges := make([]RawCartLineEdge, len(cart.Lines))
	for i, line := range cart.Lines {
		edges[i] = RawCartLineEdge{Node: line}
	}

	var note *string
	if cart.Note != "" {
		n := cart.Note
		note = &n
	}

	return &RawCart{
		ID:            cart.ID,
		Lines:         RawCartLines{Edges: edges},
		Note:          note,
		BuyerIdentity: cart.BuyerIdentity,
		Attributes:    append([]Attribute(nil), cart.Attributes...),
		DiscountCodes: append([]DiscountCode(nil), cart.DiscountCodes...),
	}
}
