package domain

// Cart is the normalized cart aggregate: line items flattened into a plain
// ordered slice and the note reconciled to "" when absent.
type Cart struct {
	ID            string         `json:"id"`
	Lines         []CartLine     `json:"lines"`
	Note          string         `json:"note,omitempty"`
	BuyerIdentity BuyerIdentity  `json:"buyer_identity"`
	Attributes    []Attribute    `json:"attributes,omitempty"`
	DiscountCodes []DiscountCode `json:"discount_codes,omitempty"`
}

// CartLine is a single merchandise line within a cart.
type CartLine struct {
	ID            string      `json:"id"`
	MerchandiseID string      `json:"merchandise_id"`
	Quantity      int         `json:"quantity"`
	Attributes    []Attribute `json:"attributes,omitempty"`
}

// BuyerIdentity associates the cart with a buyer.
type BuyerIdentity struct {
	Email               string `json:"email,omitempty"`
	Phone               string `json:"phone,omitempty"`
	CountryCode         string `json:"country_code,omitempty"`
	CustomerAccessToken string `json:"customer_access_token,omitempty"`
}

// Attribute is a free-form key/value pair attached to a cart or a line.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DiscountCode is a code applied to the cart.
type DiscountCode struct {
	Code       string `json:"code"`
	Applicable bool   `json:"applicable"`
}

// CartError is a domain-level failure reported by the storefront API.
type CartError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// TotalQuantity sums the quantities of all lines.
func (c *Cart) TotalQuantity() int {
	var total int
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// FindLine returns the index of the line with the given ID, or -1.
func (c *Cart) FindLine(lineID string) int {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy. Carts held by the machine context are treated as
// immutable; hooks that want to build an optimistic cart start from a clone.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Lines = make([]CartLine, len(c.Lines))
	for i, line := range c.Lines {
		cp.Lines[i] = line
		cp.Lines[i].Attributes = append([]Attribute(nil), line.Attributes...)
	}
	cp.Attributes = append([]Attribute(nil), c.Attributes...)
	cp.DiscountCodes = append([]DiscountCode(nil), c.DiscountCodes...)
	return &cp
}
