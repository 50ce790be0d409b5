package xendit

import "go.uber.org/fx"

// Module exposes the gateway client and callback verifier via Fx.
var Module = fx.Options(
	fx.Provide(NewCallbackVerifier),
	fx.Provide(NewClient),
)
