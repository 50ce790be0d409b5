package webhooklog

import "errors"

// ErrDuplicateDelivery marks an insert that lost to an existing row for the
// same webhook id, either an earlier delivery or a concurrent retry.
var ErrDuplicateDelivery = errors.New("webhook delivery already recorded")
