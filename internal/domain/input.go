package domain

// CartInput seeds a new cart on creation.
type CartInput struct {
	Lines         []CartLineInput `json:"lines,omitempty"`
	Note          string          `json:"note,omitempty"`
	BuyerIdentity *BuyerIdentity  `json:"buyer_identity,omitempty"`
	Attributes    []Attribute     `json:"attributes,omitempty"`
	DiscountCodes []string        `json:"discount_codes,omitempty"`
}

// CartLineInput adds a merchandise line.
type CartLineInput struct {
	MerchandiseID string      `json:"merchandise_id" validate:"required"`
	Quantity      int         `json:"quantity" validate:"required,gte=1"`
	Attributes    []Attribute `json:"attributes,omitempty"`
}

// CartLineUpdateInput modifies an existing line.
type CartLineUpdateInput struct {
	ID            string `json:"id" validate:"required"`
	Quantity      int    `json:"quantity" validate:"gte=0"`
	MerchandiseID string `json:"merchandise_id,omitempty"`
}
