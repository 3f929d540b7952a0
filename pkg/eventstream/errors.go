package eventstream

import "errors"

// ErrNilEvent indicates a nil lifecycle event was provided to a publisher.
var ErrNilEvent = errors.New("nil lifecycle event")

// ErrBridgeConfig indicates a bridge was configured without a publisher or
// emitter.
var ErrBridgeConfig = errors.New("bridge requires a publisher and an emitter")
