package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/cartloom/checkout/internal/domain/order"
	"github.com/cartloom/checkout/internal/domain/product"
	"github.com/cartloom/checkout/internal/domain/promo"
)

// mapDomainError converts domain errors to user-presentable HTTP
// responses. Storage errors and other unknowns map to 500 and are masked
// by the caller.
func mapDomainError(err error) (int, string) {
	switch {
	// Not found.
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, product.ErrVariantNotFound),
		errors.Is(err, promo.ErrCodeNotFound):
		return http.StatusNotFound, err.Error()

	// Request shape.
	case errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest, err.Error()

	// Promo outside its validity window.
	case errors.Is(err, promo.ErrCodeNotYetValid),
		errors.Is(err, promo.ErrCodeExpired):
		return http.StatusConflict, err.Error()

	// Exhausted resources.
	case errors.Is(err, promo.ErrUsageLimitReached):
		return http.StatusConflict, err.Error()

	// Policy violations.
	case errors.Is(err, promo.ErrAlreadyUsed):
		return http.StatusUnprocessableEntity, err.Error()
	}

	var (
		invalidQty    *order.InvalidQuantityError
		unavailable   *order.ProductUnavailableError
		noStock       *product.InsufficientStockError
		belowMin      *promo.BelowMinimumError
		badTransition *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &invalidQty):
		return http.StatusUnprocessableEntity, invalidQty.Error()
	case errors.As(err, &unavailable):
		return http.StatusUnprocessableEntity, unavailable.Error()
	case errors.As(err, &noStock):
		return http.StatusConflict, noStock.Error()
	case errors.As(err, &belowMin):
		return http.StatusUnprocessableEntity, belowMin.Error()
	case errors.As(err, &badTransition):
		return http.StatusConflict, badTransition.Error()
	}

	return http.StatusInternalServerError, err.Error()
}
