package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/clothing-shop/internal/domain/customer"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/domain/product"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/example/clothing-shop/internal/infrastructure/store"
	"github.com/example/clothing-shop/internal/logger"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error   string                  `json:"error"`
	Code    string                  `json:"code"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
	Details any                     `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Error: message, Code: code})
}

// respondErr maps a domain error onto a status code and writes it. Anything
// unrecognised is logged and reported as a generic 500.
func respondErr(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Code: "validation_error", Fields: verr.Fields})
		return
	}

	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		respondJSON(w, http.StatusConflict, errorBody{Error: stockErr.Error(), Code: "insufficient_stock", Details: stockErr})
		return
	}

	status, code := classify(err)
	switch {
	case status == http.StatusInternalServerError:
		logger.FromContext(ctx).Error("request failed", zap.Error(err))
		respondError(w, status, code, "internal server error")
	case status == http.StatusServiceUnavailable:
		logger.FromContext(ctx).Warn("request timed out", zap.Error(err))
		respondError(w, status, code, "request timed out, please retry")
	case code == "concurrent_update":
		respondError(w, status, code, store.ErrConcurrentUpdate.Error())
	default:
		respondError(w, status, code, err.Error())
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, inventory.ErrVariantNotFound),
		errors.Is(err, inventory.ErrReservationNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, customer.ErrCustomerNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, product.ErrInvalidName):
		return http.StatusBadRequest, "validation_error"

	case errors.Is(err, order.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, order.ErrOrderCodeConflict):
		return http.StatusConflict, "order_code_conflict"
	case errors.Is(err, order.ErrDuplicateIdempotencyKey):
		return http.StatusConflict, "duplicate_request"
	case errors.Is(err, inventory.ErrDuplicateSKU):
		return http.StatusConflict, "duplicate_sku"
	case errors.Is(err, inventory.ErrNegativeStock):
		return http.StatusConflict, "negative_stock"
	case errors.Is(err, store.ErrConcurrentUpdate):
		return http.StatusConflict, "concurrent_update"

	case errors.Is(err, store.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}
