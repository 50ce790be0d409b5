package xendit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nclex311/billing/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	cfg := &config.Config{Gateway: config.GatewayConfig{BaseURL: baseURL, APIKey: "xnd_test_key"}}
	return NewClient(cfg, zap.NewNop().Sugar())
}

func TestCreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v2/invoices", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "xnd_test_key", user)
		require.Empty(t, pass)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req CreateInvoiceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "order_42", req.ExternalID)
		require.EqualValues(t, 20000, req.Amount)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Invoice{
			ID:         "inv_abc",
			ExternalID: req.ExternalID,
			Status:     "PENDING",
			InvoiceURL: "https://checkout.example.com/inv_abc",
			Amount:     req.Amount,
			Currency:   "PHP",
		})
	}))
	defer srv.Close()

	inv, err := newTestClient(srv.URL).CreateInvoice(context.Background(), &CreateInvoiceRequest{
		ExternalID: "order_42",
		Amount:     20000,
		Currency:   "PHP",
	})
	require.NoError(t, err)
	require.Equal(t, "inv_abc", inv.ID)
	require.Equal(t, "https://checkout.example.com/inv_abc", inv.InvoiceURL)
}

func TestCreateInvoice_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"INVALID_API_KEY","message":"API key is invalid"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateInvoice(context.Background(), &CreateInvoiceRequest{ExternalID: "order_42", Amount: 20000})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, "INVALID_API_KEY", apiErr.ErrorCode)
}

func TestExpireInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoices/inv_abc/expire!", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Invoice{ID: "inv_abc", Status: "EXPIRED"})
	}))
	defer srv.Close()

	inv, err := newTestClient(srv.URL).ExpireInvoice(context.Background(), "inv_abc")
	require.NoError(t, err)
	require.Equal(t, "EXPIRED", inv.Status)
}
