package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nclex311/billing/internal/app/api/middleware"
	"github.com/nclex311/billing/internal/app/service/checkout"
	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/subscription"
	models "github.com/nclex311/billing/internal/models"
	types "github.com/nclex311/billing/pkg/types"
)

type stubCheckout struct {
	res      *checkout.Result
	err      error
	gotUser  string
	gotEmail string
	gotPlan  types.PlanType
}

func (s *stubCheckout) CreateCheckout(_ context.Context, userID, email string, planType types.PlanType) (*checkout.Result, error) {
	s.gotUser, s.gotEmail, s.gotPlan = userID, email, planType
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

type stubSubs struct {
	info        *types.UserSubscriptionInfo
	getErr      error
	revokeCalls [][2]string
	revokeErr   error
}

func (s *stubSubs) GetByUserID(_ context.Context, _ string) (*types.UserSubscriptionInfo, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.info, nil
}

func (s *stubSubs) Revoke(_ context.Context, userID, orderID string) error {
	s.revokeCalls = append(s.revokeCalls, [2]string{userID, orderID})
	return s.revokeErr
}

type stubOrders struct {
	scanReq   *order.ScanOrdersRequest
	scanRes   *order.ScanOrdersResponse
	scanErr   error
	findOrd   *models.Order
	findErr   error
	updates   []map[string]any
	updateErr error
}

func (s *stubOrders) Scan(_ context.Context, req *order.ScanOrdersRequest) (*order.ScanOrdersResponse, error) {
	s.scanReq = req
	if s.scanErr != nil {
		return nil, s.scanErr
	}
	return s.scanRes, nil
}

func (s *stubOrders) FindByOrderID(_ context.Context, _ string) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.findOrd, nil
}

func (s *stubOrders) Update(_ context.Context, _ string, fields map[string]any) (*models.Order, error) {
	s.updates = append(s.updates, fields)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	out := *s.findOrd
	return &out, nil
}

func withIdentity(userID, email string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, userID)
		c.Set(middleware.CtxUserEmail, email)
	}
}

func newBillingRouter(co checkout.Creator, subs subscription.Manager, orders order.Manager, identity gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1/billing")
	if identity != nil {
		g.Use(identity)
	}
	RegisterBillingRoutes(g, co, subs, orders, zap.NewNop().Sugar())
	return r
}

func TestApiCreateCheckout_ReturnsInvoiceURL(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour)
	stub := &stubCheckout{res: &checkout.Result{
		Order: &models.Order{
			ID:                "order_1",
			UserID:            "user_7",
			PlanType:          types.PlanTypeMonthlyPremium,
			Amount:            20000,
			Currency:          "PHP",
			Status:            types.OrderStatusPending,
			ExternalInvoiceID: "inv_1",
			ExpiresAt:         &exp,
		},
		InvoiceURL: "https://pay.test/inv_1",
	}}
	r := newBillingRouter(stub, &stubSubs{}, &stubOrders{}, withIdentity("user_7", "nurse@example.com"))

	body, _ := json.Marshal(map[string]any{"plan_type": "monthly_premium"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "user_7", stub.gotUser)
	require.Equal(t, "nurse@example.com", stub.gotEmail)
	require.Equal(t, types.PlanTypeMonthlyPremium, stub.gotPlan)
	require.Contains(t, w.Body.String(), `"invoice_url":"https://pay.test/inv_1"`)
	require.Contains(t, w.Body.String(), `"invoice_id":"inv_1"`)
	require.Contains(t, w.Body.String(), `"order_id":"order_1"`)
}

func TestApiCreateCheckout_UnknownPlan(t *testing.T) {
	stub := &stubCheckout{err: fmt.Errorf("%w: lifetime", checkout.ErrUnknownPlan)}
	r := newBillingRouter(stub, &stubSubs{}, &stubOrders{}, withIdentity("user_7", ""))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", bytes.NewReader([]byte(`{"plan_type":"lifetime"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiCreateCheckout_MissingIdentity(t *testing.T) {
	stub := &stubCheckout{}
	r := newBillingRouter(stub, &stubSubs{}, &stubOrders{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", bytes.NewReader([]byte(`{"plan_type":"monthly_premium"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40100`)
	require.Empty(t, stub.gotUser)
}

func TestApiGetSubscription_ReturnsInfo(t *testing.T) {
	plan := types.PlanTypeMonthlyPremium
	subs := &stubSubs{info: &types.UserSubscriptionInfo{Status: types.SubscriptionStatusPremium, Plan: &plan, AutoRenew: true}}
	r := newBillingRouter(&stubCheckout{}, subs, &stubOrders{}, withIdentity("user_7", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"premium"`)
	require.Contains(t, w.Body.String(), `"plan":"monthly_premium"`)
}

func TestApiGetSubscription_NoBillingRowReadsFree(t *testing.T) {
	subs := &stubSubs{getErr: fmt.Errorf("%w: user_7", subscription.ErrUserNotFound)}
	r := newBillingRouter(&stubCheckout{}, subs, &stubOrders{}, withIdentity("user_7", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":0`)
	require.Contains(t, w.Body.String(), `"status":"free"`)
}

func TestApiListOwnOrders_ForcesUserFilter(t *testing.T) {
	paidAt := time.Unix(1735689600, 0).UTC()
	amount := int64(20000)
	orders := &stubOrders{scanRes: &order.ScanOrdersResponse{
		Items: []*models.Order{
			{ID: "o1", UserID: "user_7", Status: types.OrderStatusPending, ExternalInvoiceURL: "https://pay.test/inv_1"},
			{ID: "o2", UserID: "user_7", Status: types.OrderStatusPaid, ExternalInvoiceURL: "https://pay.test/inv_2", PaidAt: &paidAt, PaidAmount: &amount},
		},
		Total: 2,
	}}
	r := newBillingRouter(&stubCheckout{}, &stubSubs{}, orders, withIdentity("user_7", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/orders?from=0&size=5&sort_order=asc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, orders.scanReq)
	require.Len(t, orders.scanReq.Filters, 1)
	require.Equal(t, "user_id", orders.scanReq.Filters[0].Field)
	require.Equal(t, []any{"user_7"}, orders.scanReq.Filters[0].Values)
	require.Equal(t, 5, orders.scanReq.Size)
	require.Equal(t, "asc", orders.scanReq.SortOrder)

	var env struct {
		Code int         `json:"code"`
		Data []OrderItem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Len(t, env.Data, 2)
	// Only the pending order exposes its hosted invoice URL.
	require.Equal(t, "https://pay.test/inv_1", env.Data[0].InvoiceURL)
	require.Empty(t, env.Data[1].InvoiceURL)
}

func TestApiListOwnOrders_InvalidSize(t *testing.T) {
	r := newBillingRouter(&stubCheckout{}, &stubSubs{}, &stubOrders{}, withIdentity("user_7", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/orders?size=zero", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}
