package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/clothing-shop/internal/api/middleware"
	"github.com/example/clothing-shop/internal/command"
	"github.com/example/clothing-shop/internal/domain/validation"
	"github.com/example/clothing-shop/internal/query"
)

const maxBodyBytes = 1 << 20

// Pinger reports whether storage is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	health       Pinger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, health Pinger) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		health:       health,
	}
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a strict JSON body into v. Unknown fields and trailing
// data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err == nil && dec.Decode(&struct{}{}) != io.EOF {
		err = errors.New("body must contain a single JSON object")
	}
	if err != nil {
		msg := err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is empty"
		}
		respondError(w, http.StatusBadRequest, "invalid_json", msg)
		return false
	}
	return true
}

// intQuery parses an optional integer query parameter.
func intQuery(r *http.Request, name string, def int, verr *validation.Error) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	verr.Check(err == nil, name, fmt.Sprintf("must be an integer, got %q", raw))
	if err != nil {
		return def
	}
	return n
}

func actorID(r *http.Request) string {
	return middleware.GetUserID(r.Context())
}
