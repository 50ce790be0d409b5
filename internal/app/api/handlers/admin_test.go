package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nclex311/billing/internal/app/service/order"
	models "github.com/nclex311/billing/internal/models"
	types "github.com/nclex311/billing/pkg/types"
)

func newAdminRouter(orders *stubOrders, subs *stubSubs) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/admin/billing")
	RegisterAdminBillingRoutes(g, orders, nil, subs, zap.NewNop().Sugar())
	return r
}

func TestApiAdminListOrders_PassesScanRequestThrough(t *testing.T) {
	orders := &stubOrders{scanRes: &order.ScanOrdersResponse{
		Items: []*models.Order{{ID: "o1", UserID: "user_7", Status: types.OrderStatusPaid}},
		Total: 7,
	}}
	r := newAdminRouter(orders, &stubSubs{})

	body, _ := json.Marshal(map[string]any{
		"filters":    []map[string]any{{"field": "status", "operator": "eq", "values": []any{"paid"}}},
		"from":       10,
		"size":       5,
		"sort_by":    "created_at",
		"sort_order": "asc",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/billing/list_orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, orders.scanReq)
	require.Len(t, orders.scanReq.Filters, 1)
	require.Equal(t, "status", orders.scanReq.Filters[0].Field)
	require.Equal(t, 10, orders.scanReq.From)
	require.Equal(t, 5, orders.scanReq.Size)
	require.Contains(t, w.Body.String(), `"total":7`)
	require.Contains(t, w.Body.String(), `"user_id":"user_7"`)
}

func TestApiRefundOrder_RevokesThenMarksRefunded(t *testing.T) {
	orders := &stubOrders{findOrd: &models.Order{ID: "order_1", UserID: "user_7", Status: types.OrderStatusPaid}}
	subs := &stubSubs{}
	r := newAdminRouter(orders, subs)

	body := []byte(`{"order_id":"order_1","operator_id":"ops_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/billing/refund_order", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":0`)
	require.Equal(t, [][2]string{{"user_7", "order_1"}}, subs.revokeCalls)
	require.Len(t, orders.updates, 1)
	require.Equal(t, types.OrderStatusRefunded, orders.updates[0]["status"])
}

func TestApiRefundOrder_RejectsNonPaidOrder(t *testing.T) {
	orders := &stubOrders{findOrd: &models.Order{ID: "order_1", UserID: "user_7", Status: types.OrderStatusPending}}
	subs := &stubSubs{}
	r := newAdminRouter(orders, subs)

	body := []byte(`{"order_id":"order_1","operator_id":"ops_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/billing/refund_order", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
	require.Empty(t, subs.revokeCalls)
	require.Empty(t, orders.updates)
}

func TestApiRefundOrder_UnknownOrder(t *testing.T) {
	orders := &stubOrders{findErr: fmt.Errorf("%w: order_9", order.ErrOrderNotFound)}
	r := newAdminRouter(orders, &stubSubs{})

	body := []byte(`{"order_id":"order_9","operator_id":"ops_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/billing/refund_order", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40400`)
}

func TestApiRefundOrder_MissingFields(t *testing.T) {
	r := newAdminRouter(&stubOrders{}, &stubSubs{})

	body := []byte(`{"order_id":"order_1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/billing/refund_order", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestRegisterRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterWebhookRoutes(r.Group("/api/v1/payments"), nil, zap.NewNop().Sugar())
	RegisterBillingRoutes(r.Group("/api/v1/billing"), nil, nil, nil, zap.NewNop().Sugar())
	RegisterAdminBillingRoutes(r.Group("/api/v1/admin/billing"), nil, nil, nil, zap.NewNop().Sugar())
	RegisterHealthRoutes(r)

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/payments/webhook/xendit"))
	require.True(t, contains("POST /api/v1/billing/checkout"))
	require.True(t, contains("GET /api/v1/billing/subscription"))
	require.True(t, contains("GET /api/v1/billing/orders"))
	require.True(t, contains("POST /api/v1/admin/billing/list_orders"))
	require.True(t, contains("POST /api/v1/admin/billing/get_billing_statistic"))
	require.True(t, contains("POST /api/v1/admin/billing/refund_order"))
	require.True(t, contains("GET /healthz"))
}
