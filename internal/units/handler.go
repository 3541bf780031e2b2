package units

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/costing/internal/platform/httpx"
)

// Handler exposes the conversion table over HTTP.
type Handler struct{}

// NewHandler builds Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// MountRoutes registers unit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/units", h.list)
	r.Get("/units/convert", h.convert)
}

type conversionResponse struct {
	Value  float64 `json:"value"`
	From   Unit    `json:"from"`
	To     Unit    `json:"to"`
	Result float64 `json:"result"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, All())
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value, err := strconv.ParseFloat(q.Get("value"), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		httpx.RespondError(w, fmt.Errorf("%w: value must be a finite number", httpx.ErrValidation))
		return
	}
	from, err := Parse(q.Get("from"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	to, err := Parse(q.Get("to"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrValidation, err))
		return
	}
	result, err := Convert(value, from, to)
	if err != nil {
		if errors.Is(err, ErrIncompatibleUnits) {
			err = fmt.Errorf("%w: %w", httpx.ErrUnprocessable, err)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, conversionResponse{Value: value, From: from, To: to, Result: result})
}
