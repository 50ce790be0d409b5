package handlers

import (
    "github.com/nclex311/billing/internal/app/service/statistics"
    "github.com/nclex311/billing/internal/app/service/webhook"
    "github.com/nclex311/billing/pkg/response"
    types "github.com/nclex311/billing/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
    Code    response.APIResponseCode `json:"code"`
    Message string                   `json:"message"`
    Data    interface{}              `json:"data"`
}

// RespWebhookResult wraps the webhook processing result in the standard envelope.
type RespWebhookResult struct {
    Code    response.APIResponseCode `json:"code"`
    Message string                   `json:"message"`
    Data    webhook.Result           `json:"data"`
}

// RespCheckout wraps CheckoutResponse in the standard envelope.
type RespCheckout struct {
    Code    response.APIResponseCode `json:"code"`
    Message string                   `json:"message"`
    Data    CheckoutResponse         `json:"data"`
}

// RespSubscription wraps the subscription view in the standard envelope.
type RespSubscription struct {
    Code    response.APIResponseCode   `json:"code"`
    Message string                     `json:"message"`
    Data    types.UserSubscriptionInfo `json:"data"`
}

// RespOrderList wraps a user's order list in the standard envelope.
type RespOrderList struct {
    Code    response.APIResponseCode `json:"code"`
    Message string                   `json:"message"`
    Data    []OrderItem              `json:"data"`
}

// RespListOrders wraps ListOrdersResponse in the standard envelope.
type RespListOrders struct {
    Code    response.APIResponseCode `json:"code"`
    Message string                   `json:"message"`
    Data    ListOrdersResponse       `json:"data"`
}

// RespBillingStatistic wraps BillingStatisticResponse in the standard envelope.
type RespBillingStatistic struct {
    Code    response.APIResponseCode `json:"code"`
    Message string                   `json:"message"`
    Data    statistics.BillingStatisticResponse `json:"data"`
}
