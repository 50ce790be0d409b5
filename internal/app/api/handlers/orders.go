package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nclex311/billing/internal/app/api/middleware"
	"github.com/nclex311/billing/internal/app/service/order"
	models "github.com/nclex311/billing/internal/models"
	"github.com/nclex311/billing/pkg/response"
	types "github.com/nclex311/billing/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// OrderItem is the client-facing view of an order. Gateway references stay
// internal except for the hosted invoice URL, which a pending order needs so
// the client can resume payment.
type OrderItem struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	PlanType      types.PlanType    `json:"plan_type"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Status        types.OrderStatus `json:"status"`
	IsRecurring   bool              `json:"is_recurring"`
	InvoiceURL    string            `json:"invoice_url,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	PaidAmount    *int64            `json:"paid_amount,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	ExpiresAt     *time.Time        `json:"expires_at,omitempty"`
	FailureCode   string            `json:"failure_code,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

func toOrderItem(o *models.Order) OrderItem {
	item := OrderItem{
		ID:            o.ID,
		UserID:        o.UserID,
		PlanType:      o.PlanType,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Status:        o.Status,
		IsRecurring:   o.IsRecurring,
		PaymentMethod: o.PaymentMethod,
		PaidAmount:    o.PaidAmount,
		PaidAt:        o.PaidAt,
		ExpiresAt:     o.ExpiresAt,
		FailureCode:   o.FailureCode,
		CreatedAt:     o.CreatedAt,
	}
	if o.Status == types.OrderStatusPending {
		item.InvoiceURL = o.ExternalInvoiceURL
	}
	return item
}

// @Summary      List own orders
// @Description  Returns the authenticated user's orders, newest first.
// @Tags         Billing
// @Produce      json
// @Security     BearerAuth
// @Param        from        query  int     false  "Offset"           default(0)
// @Param        size        query  int     false  "Page size"        default(20)
// @Param        sort_order  query  string  false  "asc or desc"      default(desc)
// @Success      200  {object}  handlers.RespOrderList
// @Router       /api/v1/billing/orders [get]
func ApiListOwnOrders(orders order.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(middleware.CtxUserID)
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing identity"))
			return
		}

		// Read pagination from query params
		from := 0
		if v := c.Query("from"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				from = n
			}
		}
		size := 20
		if v := c.Query("size"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				size = n
			} else {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid size"))
				return
			}
		}
		sortOrder := c.Query("sort_order")
		if sortOrder != "asc" && sortOrder != "desc" {
			sortOrder = "desc"
		}

		req := &order.ScanOrdersRequest{
			Filters:   []*types.CommonFilter{{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{userID}}},
			From:      from,
			Size:      size,
			SortBy:    "created_at",
			SortOrder: sortOrder,
		}
		res, err := orders.Scan(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		items := lo.Map(res.Items, func(o *models.Order, _ int) OrderItem { return toOrderItem(o) })
		c.JSON(http.StatusOK, response.OKT(items))
	}
}
