package inventory

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/costing/internal/platform/httpx"
)

// Handler exposes direct stock receipts that are not tied to a purchase order.
type Handler struct {
	logger    *slog.Logger
	processor *Processor
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, processor *Processor) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, processor: processor}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/inventory/receipts", h.apply)
}

type applyRequest struct {
	Items []ReceivedItem `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	plan, err := h.processor.Apply(r.Context(), req.Items)
	if err != nil {
		h.logger.Error("apply stock receipt", slog.Int("lines", len(req.Items)), slog.Any("error", err))
		httpx.RespondError(w, classify(err))
		return
	}
	httpx.JSON(w, http.StatusOK, plan)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	case errors.Is(err, ErrStoreConflict):
		return fmt.Errorf("%w: %w", httpx.ErrConflict, err)
	case errors.Is(err, ErrStoreUnavailable):
		return fmt.Errorf("%w: %w", httpx.ErrUnavailable, err)
	default:
		return err
	}
}
