package api

import (
	"net/http"
	"time"

	"github.com/example/clothing-shop/internal/command"
	"github.com/example/clothing-shop/internal/domain/inventory"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/example/clothing-shop/internal/query"
	"github.com/go-chi/chi/v5"
)

// Catalog

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if !decodeJSON(w, r, &cmd) {
		return
	}

	p, err := h.cmdHandler.CreateProduct(r.Context(), cmd)
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (h *Handlers) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var in inventory.VariantInput
	if !decodeJSON(w, r, &in) {
		return
	}

	v, err := h.cmdHandler.CreateVariant(r.Context(), command.CreateVariant{
		ProductID:    chi.URLParam(r, "id"),
		VariantInput: in,
		ActorID:      actorID(r),
	})
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

// POSCatalog lists sellable variants with their live availability.
func (h *Handlers) POSCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.queryHandler.VariantAvailability(r.Context(), r.URL.Query().Get("productId"))
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Stock

type stockNoteRequest struct {
	Qty  int    `json:"qty"`
	Note string `json:"note"`
}

func (h *Handlers) ReceiveStock(w http.ResponseWriter, r *http.Request) {
	var req stockNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tx, err := h.cmdHandler.ReceiveStock(r.Context(), command.ReceiveStock{
		VariantID: chi.URLParam(r, "id"),
		Qty:       req.Qty,
		Note:      req.Note,
		ActorID:   actorID(r),
	})
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tx)
}

func (h *Handlers) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewStock *int   `json:"new_stock"`
		Note     string `json:"note"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NewStock == nil {
		respondErr(r.Context(), w, &validation.Error{Fields: []validation.FieldError{{Field: "new_stock", Message: "is required"}}})
		return
	}

	tx, err := h.cmdHandler.AdjustStock(r.Context(), command.AdjustStock{
		VariantID: chi.URLParam(r, "id"),
		NewStock:  *req.NewStock,
		Note:      req.Note,
		ActorID:   actorID(r),
	})
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	if tx == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

func (h *Handlers) InventoryHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.queryHandler.InventoryHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := h.queryHandler.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handlers) LowStockAlerts(w http.ResponseWriter, r *http.Request) {
	var verr validation.Error
	threshold := intQuery(r, "threshold", -1, &verr)
	if err := verr.Err(); err != nil {
		respondErr(r.Context(), w, err)
		return
	}

	items, err := h.queryHandler.LowStock(r.Context(), threshold)
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *Handlers) RecentMoves(w http.ResponseWriter, r *http.Request) {
	var verr validation.Error
	limit := intQuery(r, "limit", query.DefaultRecentMoves, &verr)
	if err := verr.Err(); err != nil {
		respondErr(r.Context(), w, err)
		return
	}

	entries, err := h.queryHandler.RecentMoves(r.Context(), limit)
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// Reservations

func (h *Handlers) ReserveStock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VariantID  string `json:"variant_id"`
		Qty        int    `json:"qty"`
		TTLSeconds int    `json:"ttl_seconds"`
		Reference  string `json:"reference"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TTLSeconds < 0 {
		respondErr(r.Context(), w, &validation.Error{Fields: []validation.FieldError{{Field: "ttl_seconds", Message: "must not be negative"}}})
		return
	}

	res, err := h.cmdHandler.ReserveStock(r.Context(), command.ReserveStock{
		VariantID: req.VariantID,
		Qty:       req.Qty,
		TTL:       time.Duration(req.TTLSeconds) * time.Second,
		Reference: req.Reference,
	})
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

func (h *Handlers) ReleaseReservation(w http.ResponseWriter, r *http.Request) {
	err := h.cmdHandler.ReleaseReservation(r.Context(), command.ReleaseReservation{
		ReservationID: chi.URLParam(r, "id"),
	})
	if err != nil {
		respondErr(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
