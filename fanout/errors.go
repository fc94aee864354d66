package fanout

import "errors"

// ErrDeadlineExceeded is the aggregate failure raised when a global hard
// deadline expires under the FailClosed expiry action. It is also recorded
// as the scope's cancellation cause when a harvest deadline fires.
var ErrDeadlineExceeded = errors.New("fanout: deadline exceeded")
