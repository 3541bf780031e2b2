package procurement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/costing/internal/shared"
	"github.com/odyssey-erp/costing/internal/variance"
)

func newTestRouter(f fixture) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, f.svc).MountRoutes(r)
	return r
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	return rr
}

const receiptBody = `{"items":[{"product_id":10,"ordered_quantity":10,"received_quantity":5,"ordered_unit_price":4,"received_unit_price":3}]}`

func TestReceiveEndpoint(t *testing.T) {
	f := newFixture()
	rr := post(newTestRouter(f), "/purchase-orders/1/receipts", receiptBody)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var outcome ReceiptOutcome
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &outcome))
	require.Equal(t, StatusPartiallyReceived, outcome.Status)
	require.Len(t, outcome.InventoryUpdates, 1)
	require.Equal(t, variance.ImpactPositive, outcome.VarianceReports[0].Impact)
}

func TestReceiveEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		setup  func(f fixture)
		status int
	}{
		{name: "negative quantity", path: "/purchase-orders/1/receipts", body: `{"items":[{"product_id":10,"received_quantity":-1}]}`, status: http.StatusBadRequest},
		{name: "no items", path: "/purchase-orders/1/receipts", body: `{"items":[]}`, status: http.StatusBadRequest},
		{name: "bad id", path: "/purchase-orders/abc/receipts", body: receiptBody, status: http.StatusBadRequest},
		{name: "unknown order", path: "/purchase-orders/404/receipts", body: receiptBody, status: http.StatusNotFound},
		{name: "pending order", path: "/purchase-orders/2/receipts", body: receiptBody, status: http.StatusUnprocessableEntity},
		{name: "receipt in progress", path: "/purchase-orders/1/receipts", body: receiptBody, status: http.StatusConflict,
			setup: func(f fixture) { f.locker.err = fmt.Errorf("%w: busy", shared.ErrLockNotObtained) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			if tc.setup != nil {
				tc.setup(f)
			}
			rr := post(newTestRouter(f), tc.path, tc.body)
			require.Equal(t, tc.status, rr.Code, rr.Body.String())
			require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestVarianceWorkbookEndpoint(t *testing.T) {
	f := newFixture()
	rr := post(newTestRouter(f), "/purchase-orders/1/receipts/variance.xlsx", receiptBody)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Disposition"), "po-1-variance.xlsx")
	require.Empty(t, f.repo.commits)

	book, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer book.Close()
	impact, err := book.GetCellValue(variance.SheetName, "F2")
	require.NoError(t, err)
	require.Equal(t, "positive", impact)
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f)

	rr := post(router, "/purchase-orders/2/status", `{"status":"approved"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, StatusApproved, f.repo.orders[2].Status)

	rr = post(router, "/purchase-orders/3/status", `{"status":"pending"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
