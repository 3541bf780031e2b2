package inventory

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func serve(store ProductStore, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(nil, NewProcessor(store, nil, ProcessorConfig{MaxAttempts: 1})).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/inventory/receipts", strings.NewReader(body)))
	return rr
}

func TestApplyEndpoint(t *testing.T) {
	store := newMemoryStore(StockLevel{ProductID: 1, Stock: 10, UnitCost: 100000})
	rr := serve(store, `{"items":[{"product_id":1,"ordered_quantity":5,"received_quantity":5,"ordered_unit_price":120000,"received_unit_price":120000},{"product_id":2,"received_quantity":1}]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var plan Plan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &plan))
	require.Len(t, plan.Updates, 1)
	require.InDelta(t, 106666.6667, plan.Updates[0].UnitCost, 0.001)
	require.Len(t, plan.Skipped, 1)
	require.Nil(t, plan.Writes)
}

func TestApplyEndpointErrors(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, serve(newMemoryStore(), `{"items":[{"product_id":1,"received_unit_price":-1}]}`).Code)
	require.Equal(t, http.StatusBadRequest, serve(newMemoryStore(), `{"items":[]}`).Code)

	conflicting := conflictingStore{newMemoryStore(StockLevel{ProductID: 1})}
	require.Equal(t, http.StatusConflict, serve(conflicting, `{"items":[{"product_id":1,"received_quantity":1}]}`).Code)

	down := newMemoryStore()
	down.readErr = errors.Join(ErrStoreUnavailable, errors.New("dial tcp"))
	require.Equal(t, http.StatusServiceUnavailable, serve(down, `{"items":[{"product_id":1,"received_quantity":1}]}`).Code)
}
