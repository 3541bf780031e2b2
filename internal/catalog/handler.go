package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/costing/internal/platform/httpx"
)

// CostEnqueuer schedules asynchronous cost recomputation.
type CostEnqueuer interface {
	EnqueueCostRecompute(ctx context.Context, productID int64) error
}

// Handler exposes costing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	enqueuer CostEnqueuer
}

// NewHandler builds Handler. enqueuer may be nil, which disables the async route.
func NewHandler(logger *slog.Logger, service *Service, enqueuer CostEnqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, enqueuer: enqueuer}
}

// MountRoutes registers costing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/costing/preview", h.preview)
	r.Post("/products/{id}/cost", h.recompute)
	r.Post("/products/{id}/cost/async", h.recomputeAsync)
}

type previewRequest struct {
	Ingredients []Ingredient `json:"ingredients" validate:"dive"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	breakdown, err := h.service.Preview(r.Context(), req.Ingredients)
	if err != nil {
		h.logger.Error("preview cost", slog.Any("error", err))
		httpx.RespondError(w, classify(err))
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}

func (h *Handler) recompute(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid product id", httpx.ErrValidation))
		return
	}
	breakdown, err := h.service.RecomputeCost(r.Context(), id)
	if err != nil {
		h.logger.Error("recompute cost", slog.Int64("product_id", id), slog.Any("error", err))
		httpx.RespondError(w, classify(err))
		return
	}
	httpx.JSON(w, http.StatusOK, breakdown)
}

func (h *Handler) recomputeAsync(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid product id", httpx.ErrValidation))
		return
	}
	if h.enqueuer == nil {
		httpx.RespondError(w, fmt.Errorf("%w: job queue not configured", httpx.ErrUnavailable))
		return
	}
	if err := h.enqueuer.EnqueueCostRecompute(r.Context(), id); err != nil {
		h.logger.Error("enqueue cost recompute", slog.Int64("product_id", id), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %w", httpx.ErrUnavailable, err))
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"product_id": id, "queued": true})
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: %w", httpx.ErrNotFound, err)
	case errors.Is(err, ErrNotComposite):
		return fmt.Errorf("%w: %w", httpx.ErrUnprocessable, err)
	default:
		return err
	}
}
