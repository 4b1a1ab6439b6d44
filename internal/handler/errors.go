package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/florist/internal/domain/coupon"
	"github.com/xenking/florist/internal/domain/draft"
	"github.com/xenking/florist/internal/domain/order"
	"github.com/xenking/florist/internal/domain/product"
	"github.com/xenking/florist/internal/domain/purchase"
	"github.com/xenking/florist/internal/domain/shipping"
	"github.com/xenking/florist/internal/domain/supplier"
	"github.com/xenking/florist/pkg/httpmiddleware"
)

// writeErr maps a domain error to its HTTP status and writes it. Unknown
// errors are logged and reported as 500 without leaking details.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	httpmiddleware.WriteError(w, status, msg)
}

func classify(err error) (int, string) {
	var (
		badReq   *BadRequestError
		badQty   *draft.InvalidQuantityError
		badPrice *draft.InvalidPriceError
		missing  *product.NotFoundError
	)
	switch {
	case errors.As(err, &badReq):
		return http.StatusBadRequest, badReq.Message
	case errors.Is(err, draft.ErrEmptyItems):
		return http.StatusBadRequest, draft.ErrEmptyItems.Error()
	case errors.As(err, &badQty):
		return http.StatusUnprocessableEntity, badQty.Error()
	case errors.As(err, &badPrice):
		return http.StatusUnprocessableEntity, badPrice.Error()
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, missing.Error()
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponInactive),
		errors.Is(err, coupon.ErrUnsupportedType):
		return http.StatusUnprocessableEntity, rootMessage(err,
			coupon.ErrInvalidCoupon, coupon.ErrCouponExpired, coupon.ErrCouponInactive, coupon.ErrUnsupportedType)
	case errors.Is(err, shipping.ErrUnknownMethod):
		return http.StatusUnprocessableEntity, shipping.ErrUnknownMethod.Error()
	case errors.Is(err, purchase.ErrNegativeCash):
		return http.StatusUnprocessableEntity, purchase.ErrNegativeCash.Error()
	case errors.Is(err, purchase.ErrCashPrecision):
		return http.StatusUnprocessableEntity, purchase.ErrCashPrecision.Error()
	case errors.Is(err, supplier.ErrNotFound):
		return http.StatusUnprocessableEntity, supplier.ErrNotFound.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, order.ErrNotFound.Error()
	case errors.Is(err, purchase.ErrNotFound):
		return http.StatusNotFound, purchase.ErrNotFound.Error()
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, product.ErrNotFound.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// rootMessage returns the message of the first sentinel err matches.
func rootMessage(err error, sentinels ...error) string {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return err.Error()
}
