package machine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thevrus/sellflow/internal/domain"
)

func TestTranslateResult(t *testing.T) {
	cause := UpdateNote("hi")

	t.Run("errors take precedence over a partial cart", func(t *testing.T) {
		res := Result{
			Cart:   rawCart("c1"),
			Errors: []domain.CartError{{Message: "invalid merchandise", Code: "INVALID"}},
		}

		ev := TranslateResult(cause, res, nil)

		assert.Equal(t, EventError, ev.Type)
		require.Len(t, ev.Errors, 1)
		assert.Equal(t, "INVALID", ev.Errors[0].Code)
	})

	t.Run("errors take precedence over an empty result", func(t *testing.T) {
		res := Result{Errors: []domain.CartError{{Message: "nope"}}}

		ev := TranslateResult(cause, res, nil)

		assert.Equal(t, EventError, ev.Type)
	})

	t.Run("nil cart with no errors completes", func(t *testing.T) {
		ev := TranslateResult(cause, Result{}, nil)

		assert.Equal(t, EventCartCompleted, ev.Type)
	})

	t.Run("cart with no errors resolves normalized", func(t *testing.T) {
		raw := rawCart("c1",
			domain.CartLine{ID: "l1", MerchandiseID: "m1", Quantity: 1},
			domain.CartLine{ID: "l2", MerchandiseID: "m2", Quantity: 2},
		)

		ev := TranslateResult(cause, Result{Cart: raw}, nil)

		assert.Equal(t, EventResolve, ev.Type)
		require.NotNil(t, ev.Cart)
		assert.Equal(t, []string{"l1", "l2"}, []string{ev.Cart.Lines[0].ID, ev.Cart.Lines[1].ID})
		assert.Same(t, raw, ev.RawResult)
	})

	t.Run("transport error folds in ahead of domain errors", func(t *testing.T) {
		res := Result{Errors: []domain.CartError{{Message: "field bad", Code: "INVALID"}}}

		ev := TranslateResult(cause, res, errors.New("dial tcp: refused"))

		assert.Equal(t, EventError, ev.Type)
		require.Len(t, ev.Errors, 2)
		assert.Equal(t, "TRANSPORT_ERROR", ev.Errors[0].Code)
		assert.Equal(t, "INVALID", ev.Errors[1].Code)
	})

	t.Run("transport error alone fails even with a cart", func(t *testing.T) {
		ev := TranslateResult(cause, Result{Cart: rawCart("c1")}, errors.New("timeout"))

		assert.Equal(t, EventError, ev.Type)
		require.Len(t, ev.Errors, 1)
		assert.Equal(t, "TRANSPORT_ERROR", ev.Errors[0].Code)
	})

	t.Run("cause is threaded through", func(t *testing.T) {
		ev := TranslateResult(cause, Result{}, nil)

		require.NotNil(t, ev.Cause)
		assert.Equal(t, EventNoteUpdate, ev.Cause.Type)
	})
}

func TestContextApply(t *testing.T) {
	base := Context{
		Cart:   &domain.Cart{ID: "c1"},
		Errors: []domain.CartError{{Message: "old"}},
	}

	patched := base.Apply(Patch{Cart: &domain.Cart{ID: "c2"}})

	assert.Equal(t, "c2", patched.Cart.ID)
	assert.Equal(t, base.Errors, patched.Errors, "unset patch fields stay untouched")
	assert.Equal(t, "c1", base.Cart.ID, "apply does not mutate the receiver")
}
