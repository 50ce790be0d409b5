package handlers

import (
	"errors"
	"net/http"

	"github.com/nclex311/billing/internal/app/service/order"
	"github.com/nclex311/billing/internal/app/service/statistics"
	subsvc "github.com/nclex311/billing/internal/app/service/subscription"
	models "github.com/nclex311/billing/internal/models"
	"github.com/nclex311/billing/pkg/logctx"
	"github.com/nclex311/billing/pkg/response"
	"github.com/nclex311/billing/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type ListOrdersRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ListOrdersResponse struct {
	Items []OrderItem `json:"items"`
	Total int64       `json:"total"`
}

// @Summary      List Orders (Admin)
// @Description  Retrieves a paginated and filterable list of all orders.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ListOrdersRequest true "List orders request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListOrders
// @Router       /api/v1/admin/billing/list_orders [post]
func ApiAdminListOrders(orders order.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListOrdersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		scanReq := &order.ScanOrdersRequest{Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder}
		res, err := orders.Scan(c.Request.Context(), scanReq)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		items := lo.Map(res.Items, func(it *models.Order, _ int) OrderItem { return toOrderItem(it) })
		c.JSON(http.StatusOK, response.OKT(&ListOrdersResponse{Items: items, Total: res.Total}))
	}
}

// @Summary      Get Billing Statistics (Admin)
// @Description  Retrieves daily billing statistics.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.BillingStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespBillingStatistic
// @Router       /api/v1/admin/billing/get_billing_statistic [post]
func ApiGetBillingStatistic(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.BillingStatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.GetBillingStatistic(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Refund Order (Admin)
// @Description  Revokes the entitlement granted by a paid order and marks the order
// @Description  refunded. The actual money movement happens in the gateway dashboard;
// @Description  this endpoint reconciles our records afterwards.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body object true "Refund request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/billing/refund_order [post]
// ApiRefundOrder handles POST /api/v1/admin/billing/refund_order
func ApiRefundOrder(orders order.Manager, subs subsvc.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			OrderID    string `json:"order_id"`
			OperatorID string `json:"operator_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if req.OrderID == "" || req.OperatorID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing order_id or operator_id"))
			return
		}

		ord, err := orders.FindByOrderID(c.Request.Context(), req.OrderID)
		if err != nil {
			if errors.Is(err, order.ErrOrderNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if ord.Status != types.OrderStatusPaid {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "only paid orders can be refunded"))
			return
		}

		// Revoke first so a failure between the two steps leaves the order
		// paid and the refund retryable.
		if err := subs.Revoke(c.Request.Context(), ord.UserID, ord.ID); err != nil {
			logctx.FromGin(c, log).Errorw("admin_refund_revoke_error", "order_id", ord.ID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if _, err := orders.Update(c.Request.Context(), ord.ID, map[string]any{"status": types.OrderStatusRefunded}); err != nil {
			logctx.FromGin(c, log).Errorw("admin_refund_update_error", "order_id", ord.ID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		logctx.FromGin(c, log).Infow("admin_refund_applied",
			"order_id", ord.ID, "user_id", ord.UserID, "operator_id", req.OperatorID)
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

func RegisterAdminBillingRoutes(r gin.IRouter, orders order.Manager, stats *statistics.Service, subs subsvc.Manager, log *zap.SugaredLogger) {
	r.POST("/list_orders", ApiAdminListOrders(orders))
	r.POST("/get_billing_statistic", ApiGetBillingStatistic(stats))
	r.POST("/refund_order", ApiRefundOrder(orders, subs, log))
}
