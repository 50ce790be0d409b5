package checkout

import "errors"

var ErrUnknownPlan = errors.New("unknown plan type")
