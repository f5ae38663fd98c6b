package period

import "errors"

// ErrNilPeriod marks an operation on a nil period.
var ErrNilPeriod = errors.New("period: nil period")
