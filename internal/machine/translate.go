package machine

import (
	"github.com/thevrus/sellflow/internal/domain"
)

// Result is the {data, errors} pair every CartAPI operation returns. A
// non-empty Errors slice means the operation failed; a nil Cart with no errors
// means the operation succeeded without yielding a cart.
type Result struct {
	Cart   *domain.RawCart
	Errors []domain.CartError
}

// TranslateResult maps the outcome of an asynchronous action call onto one of
// the three terminal events. Precedence is fixed: errors always win over an
// empty result, even when a partial cart was returned alongside them. A
// transport-level error is folded into the error list first.
func TranslateResult(cause Event, res Result, err error) Event {
	errs := res.Errors
	if err != nil {
		errs = append([]domain.CartError{{
			Message: err.Error(),
			Code:    "TRANSPORT_ERROR",
		}}, errs...)
	}

	if len(errs) > 0 {
		return Failed(errs, cause)
	}
	if res.Cart == nil {
		return Completed(cause)
	}
	return Resolved(domain.NormalizeCart(res.Cart), res.Cart, cause)
}
