package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNormalizeCart(t *testing.T) {
	t.Run("flattens edges preserving order", func(t *testing.T) {
		raw := &RawCart{
			ID: "cart-1",
			Lines: RawCartLines{
				Edges: []RawCartLineEdge{
					{Cursor: "a", Node: CartLine{ID: "l1", MerchandiseID: "m1", Quantity: 1}},
					{Cursor: "b", Node: CartLine{ID: "l2", MerchandiseID: "m2", Quantity: 3}},
					{Cursor: "c", Node: CartLine{ID: "l3", MerchandiseID: "m3", Quantity: 2}},
				},
				PageInfo: PageInfo{HasNextPage: false, EndCursor: "c"},
			},
		}

		cart := NormalizeCart(raw)

		require.NotNil(t, cart)
		require.Len(t, cart.Lines, 3)
		assert.Equal(t, "l1", cart.Lines[0].ID)
		assert.Equal(t, "l2", cart.Lines[1].ID)
		assert.Equal(t, "l3", cart.Lines[2].ID)
		assert.Equal(t, 6, cart.TotalQuantity())
	})

	t.Run("absent note becomes empty string", func(t *testing.T) {
		cart := NormalizeCart(&RawCart{ID: "c1"})

		assert.Equal(t, "", cart.Note)
	})

	t.Run("present note is carried over", func(t *testing.T) {
		cart := NormalizeCart(&RawCart{ID: "c1", Note: strPtr("gift wrap please")})

		assert.Equal(t, "gift wrap please", cart.Note)
	})

	t.Run("nil input yields nil", func(t *testing.T) {
		assert.Nil(t, NormalizeCart(nil))
	})

	t.Run("line attributes are copied, not aliased", func(t *testing.T) {
		attrs := []Attribute{{Key: "engraving", Value: "hi"}}
		raw := &RawCart{
			ID: "c1",
			Lines: RawCartLines{Edges: []RawCartLineEdge{
				{Node: CartLine{ID: "l1", MerchandiseID: "m1", Quantity: 1, Attributes: attrs}},
			}},
		}

		cart := NormalizeCart(raw)
		attrs[0].Value = "changed"

		assert.Equal(t, "hi", cart.Lines[0].Attributes[0].Value)
	})
}

func TestNormalizeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  *RawCart
	}{
		{
			name: "full cart",
			raw: &RawCart{
				ID:   "cart-1",
				Note: strPtr("leave at door"),
				Lines: RawCartLines{Edges: []RawCartLineEdge{
					{Node: CartLine{ID: "l1", MerchandiseID: "m1", Quantity: 2}},
					{Node: CartLine{ID: "l2", MerchandiseID: "m2", Quantity: 1}},
				}},
				BuyerIdentity: BuyerIdentity{Email: "buyer@example.com", CountryCode: "US"},
				Attributes:    []Attribute{{Key: "source", Value: "mobile"}},
				DiscountCodes: []DiscountCode{{Code: "SAVE10", Applicable: true}},
			},
		},
		{
			name: "empty cart without note",
			raw:  &RawCart{ID: "cart-2"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			once := NormalizeCart(tc.raw)
			again := NormalizeCart(DenormalizeCart(once))

			assert.Equal(t, once, again, "normalize must be stable across a round trip")
		})
	}
}

func TestCartHelpers(t *testing.T) {
	cart := &Cart{
		ID: "c1",
		Lines: []CartLine{
			{ID: "l1", MerchandiseID: "m1", Quantity: 2},
			{ID: "l2", MerchandiseID: "m2", Quantity: 5},
		},
	}

	assert.Equal(t, 7, cart.TotalQuantity())
	assert.Equal(t, 1, cart.FindLine("l2"))
	assert.Equal(t, -1, cart.FindLine("missing"))
}

func TestCartClone(t *testing.T) {
	orig := &Cart{
		ID: "c1",
		Lines: []CartLine{
			{ID: "l1", MerchandiseID: "m1", Quantity: 1, Attributes: []Attribute{{Key: "k", Value: "v"}}},
		},
		Attributes: []Attribute{{Key: "source", Value: "web"}},
	}

	clone := orig.Clone()
	clone.Lines[0].Quantity = 99
	clone.Lines[0].Attributes[0].Value = "changed"
	clone.Attributes[0].Value = "changed"

	assert.Equal(t, 1, orig.Lines[0].Quantity)
	assert.Equal(t, "v", orig.Lines[0].Attributes[0].Value)
	assert.Equal(t, "web", orig.Attributes[0].Value)

	var nilCart *Cart
	assert.Nil(t, nilCart.Clone())
}
