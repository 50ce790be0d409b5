package handlers

import (
	"errors"
	"net/http"

	"github.com/nclex311/billing/internal/app/api/middleware"
	"github.com/nclex311/billing/internal/app/service/subscription"
	"github.com/nclex311/billing/pkg/logctx"
	"github.com/nclex311/billing/pkg/response"
	types "github.com/nclex311/billing/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// @Summary      Get own subscription
// @Description  Returns the authenticated user's subscription state. Users without a
// @Description  billing row yet (never checked out) read as free.
// @Tags         Billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespSubscription
// @Router       /api/v1/billing/subscription [get]
func ApiGetSubscription(subs subscription.Manager, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(middleware.CtxUserID)
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing identity"))
			return
		}

		info, err := subs.GetByUserID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, subscription.ErrUserNotFound) {
				c.JSON(http.StatusOK, response.OKT(&types.UserSubscriptionInfo{Status: types.SubscriptionStatusFree}))
				return
			}
			logctx.FromGin(c, log).Errorw("subscription_get_error", "user_id", userID, "error", err.Error())
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.OKT(info))
	}
}
