package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/nclex311/billing/internal/app/api/middleware"
	"github.com/nclex311/billing/internal/app/service/checkout"
	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/subscription"
	"github.com/nclex311/billing/pkg/logctx"
	"github.com/nclex311/billing/pkg/response"
	types "github.com/nclex311/billing/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CreateCheckoutRequest struct {
	PlanType types.PlanType `json:"plan_type" binding:"required"`
}

// CheckoutResponse is the flattened view returned to the client. The client
// only needs the invoice URL to redirect to and enough order fields to render
// a summary.
type CheckoutResponse struct {
	OrderID    string         `json:"order_id"`
	PlanType   types.PlanType `json:"plan_type"`
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	InvoiceID  string         `json:"invoice_id"`
	InvoiceURL string         `json:"invoice_url"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// @Summary      Create checkout
// @Description  Opens a purchase attempt for the authenticated user: creates a hosted
// @Description  invoice with the gateway and persists a pending order referencing it.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handlers.CreateCheckoutRequest true "Checkout request"
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/v1/billing/checkout [post]
func ApiCreateCheckout(svc checkout.Creator, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(middleware.CtxUserID)
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing identity"))
			return
		}

		var req CreateCheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := svc.CreateCheckout(c.Request.Context(), userID, c.GetString(middleware.CtxUserEmail), req.PlanType)
		if err != nil {
			if errors.Is(err, checkout.ErrUnknownPlan) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			logctx.FromGin(c, log).Errorw("checkout_create_error", "user_id", userID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		out := CheckoutResponse{
			OrderID:    res.Order.ID,
			PlanType:   res.Order.PlanType,
			Amount:     res.Order.Amount,
			Currency:   res.Order.Currency,
			InvoiceID:  res.Order.ExternalInvoiceID,
			InvoiceURL: res.InvoiceURL,
			ExpiresAt:  res.Order.ExpiresAt,
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

// RegisterBillingRoutes mounts the authenticated user-facing billing
// endpoints. Expected under "/api/v1/billing" behind the auth middleware.
func RegisterBillingRoutes(r gin.IRouter, co checkout.Creator, subs subscription.Manager, orders order.Manager, log *zap.SugaredLogger) {
	r.POST("/checkout", ApiCreateCheckout(co, log))
	r.GET("/subscription", ApiGetSubscription(subs, log))
	r.GET("/orders", ApiListOwnOrders(orders))
}
