package procurement

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/costing/internal/inventory"
	"github.com/odyssey-erp/costing/internal/platform/httpx"
	"github.com/odyssey-erp/costing/internal/variance"
)

// Handler manages purchase order receiving endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchase-orders/{id}", func(r chi.Router) {
		r.Post("/receipts", h.receive)
		r.Post("/receipts/variance.xlsx", h.varianceWorkbook)
		r.Post("/status", h.transition)
	})
}

type receiptRequest struct {
	Items []inventory.ReceivedItem `json:"items" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status POStatus `json:"status" validate:"required"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, ok := purchaseOrderID(w, r)
	if !ok {
		return
	}
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	outcome, err := h.service.ProcessMerchandiseReceipt(r.Context(), id, req.Items)
	if err != nil {
		h.logger.Error("process receipt", slog.Int64("purchase_order_id", id), slog.Any("error", err))
		httpx.RespondError(w, classify(err))
		return
	}
	httpx.JSON(w, http.StatusOK, outcome)
}

func (h *Handler) varianceWorkbook(w http.ResponseWriter, r *http.Request) {
	id, ok := purchaseOrderID(w, r)
	if !ok {
		return
	}
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	reports, err := h.service.PreviewVariance(r.Context(), id, req.Items)
	if err != nil {
		httpx.RespondError(w, classify(err))
		return
	}
	var buf bytes.Buffer
	if err := variance.WriteWorkbook(&buf, reports); err != nil {
		h.logger.Error("render variance workbook", slog.Int64("purchase_order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=po-%d-variance.xlsx", id))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := purchaseOrderID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	po, err := h.service.TransitionStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.RespondError(w, classify(err))
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func purchaseOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: invalid purchase order id", httpx.ErrValidation))
		return 0, false
	}
	return id, true
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: %w", httpx.ErrNotFound, err)
	case errors.Is(err, ErrValidation):
		return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	case errors.Is(err, ErrInvalidState):
		return fmt.Errorf("%w: %w", httpx.ErrUnprocessable, err)
	case errors.Is(err, ErrReceiptInProgress), errors.Is(err, inventory.ErrStoreConflict):
		return fmt.Errorf("%w: %w", httpx.ErrConflict, err)
	case errors.Is(err, inventory.ErrStoreUnavailable):
		return fmt.Errorf("%w: %w", httpx.ErrUnavailable, err)
	default:
		return err
	}
}
