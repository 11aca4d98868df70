package api

import (
	"net/http"
	"strings"

	"github.com/example/clothing-shop/internal/command"
	"github.com/example/clothing-shop/internal/domain/order"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/example/clothing-shop/internal/query"
	"github.com/example/clothing-shop/internal/readmodel"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

// Checkout places a storefront order. Prices always come from the catalog and
// the response is the customer-safe projection.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateOrder
	if !decodeJSON(w, r, &cmd) {
		return
	}
	for i := range cmd.Items {
		cmd.Items[i].SalePrice = decimal.NullDecimal{}
		cmd.Items[i].Discount = decimal.Zero
	}
	cmd.IsPOS = false
	cmd.ActorID = ""

	o, ok := h.createOrder(w, r, cmd)
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, readmodel.NewPlacedOrder(o))
}

// CreatePOSOrder places an in-store order on behalf of a staff member.
func (h *Handlers) CreatePOSOrder(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateOrder
	if !decodeJSON(w, r, &cmd) {
		return
	}
	cmd.IsPOS = true
	cmd.ActorID = actorID(r)

	o, ok := h.createOrder(w, r, cmd)
	if !ok {
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) createOrder(w http.ResponseWriter, r *http.Request, cmd command.CreateOrder) (*order.Order, bool) {
	if key := strings.TrimSpace(r.Header.Get(idempotencyHeader)); key != "" {
		cmd.IdempotencyKey = key
	}

	o, err := h.cmdHandler.CreateOrder(r.Context(), cmd)
	if err != nil {
		respondErr(r.Context(), w, err)
		return nil, false
	}
	return o, true
}

type trackRequest struct {
	OrderCode string `json:"orderCode"`
	Phone     string `json:"phone"`
}

func (h *Handlers) TrackOrder(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tracked, err := h.queryHandler.TrackOrder(r.Context(), req.OrderCode, req.Phone)
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, tracked)
}

type paymentSlipRequest struct {
	SlipURL       string              `json:"slipUrl"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
}

func (h *Handlers) UploadPaymentSlip(w http.ResponseWriter, r *http.Request) {
	var req paymentSlipRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	slip, err := h.cmdHandler.UploadPaymentSlip(r.Context(), command.UploadPaymentSlip{
		OrderID:       chi.URLParam(r, "id"),
		SlipURL:       req.SlipURL,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, slip)
}

// Admin

func (h *Handlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	var verr validation.Error
	q := query.ListOrders{
		Page:          intQuery(r, "page", 0, &verr),
		Limit:         intQuery(r, "limit", 0, &verr),
		Status:        r.URL.Query().Get("status"),
		PaymentStatus: r.URL.Query().Get("paymentStatus"),
		Search:        r.URL.Query().Get("search"),
	}
	if err := verr.Err(); err != nil {
		respondErr(r.Context(), w, err)
		return
	}

	page, err := h.queryHandler.ListOrders(r.Context(), q)
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.queryHandler.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status order.Status `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.cmdHandler.UpdateOrderStatus(r.Context(), command.UpdateOrderStatus{
		OrderID: chi.URLParam(r, "id"),
		Status:  order.Status(strings.ToUpper(string(req.Status))),
		ActorID: actorID(r),
	})
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentStatus order.PaymentStatus `json:"payment_status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.cmdHandler.UpdatePaymentStatus(r.Context(), command.UpdatePaymentStatus{
		OrderID: chi.URLParam(r, "id"),
		Status:  order.PaymentStatus(strings.ToUpper(string(req.PaymentStatus))),
	})
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}
