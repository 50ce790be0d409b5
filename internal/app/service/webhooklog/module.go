package webhooklog

import "go.uber.org/fx"

// Module exposes the webhook ledger via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
