package dispatch

import "errors"

// ErrNilHandler is returned in a Result when a nil handler is dispatched.
var ErrNilHandler = errors.New("dispatch: nil handler")
