package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/nclex311/billing/internal/app/service/webhook"
	"github.com/nclex311/billing/pkg/logctx"
	"github.com/nclex311/billing/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Headers carrying the Xendit callback credentials.
const (
	HeaderCallbackToken     = "x-callback-token"
	HeaderCallbackSignature = "x-callback-signature"
)

// @Summary      Xendit invoice webhook
// @Description  Receives invoice status callbacks from Xendit. Unlike the rest of the
// @Description  API, the HTTP status code is meaningful here because it drives the
// @Description  gateway's retry behaviour: 2xx settles the delivery, 5xx schedules a
// @Description  redelivery, 4xx marks it rejected.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        x-callback-token  header  string  true   "Shared callback token"
// @Param        payload           body    object  true   "Invoice event payload"
// @Success      200  {object}  handlers.RespWebhookResult
// @Failure      400  {object}  handlers.RespOK
// @Failure      401  {object}  handlers.RespOK
// @Failure      404  {object}  handlers.RespOK
// @Failure      500  {object}  handlers.RespOK
// @Router       /api/v1/payments/webhook/xendit [post]
func ApiXenditWebhook(proc webhook.Processor, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logctx.FromGin(c, log).Errorw("webhook_body_read_error", "error", err.Error())
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable request body"))
			return
		}

		res, err := proc.Process(
			c.Request.Context(),
			c.GetHeader(HeaderCallbackToken),
			c.GetHeader(HeaderCallbackSignature),
			raw,
		)
		if err != nil {
			switch {
			case errors.Is(err, webhook.ErrVerificationFailed):
				c.JSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "callback verification failed"))
			case errors.Is(err, webhook.ErrInvalidPayload):
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, webhook.ErrUnknownOrder):
				c.JSON(http.StatusNotFound, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			default:
				logctx.FromGin(c, log).Errorw("webhook_process_error", "error", err.Error())
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, "webhook processing failed"))
			}
			return
		}

		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, proc webhook.Processor, log *zap.SugaredLogger) {
	// Mount under the payments group, expected at "/api/v1/payments"
	r.POST("/webhook/xendit", ApiXenditWebhook(proc, log))
}
