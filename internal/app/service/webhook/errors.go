package webhook

import "errors"

var (
	// ErrVerificationFailed means the delivery could not be authenticated.
	// Redelivering the same payload will never succeed.
	ErrVerificationFailed = errors.New("webhook verification failed")
	// ErrInvalidPayload means the body is not a legal webhook payload.
	ErrInvalidPayload = errors.New("invalid webhook payload")
	// ErrUnknownOrder means the order reference resolves to nothing. The
	// delivery is still marked processed so the gateway stops retrying.
	ErrUnknownOrder = errors.New("unknown order reference")
)
