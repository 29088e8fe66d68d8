package signalclient

import "errors"

var ErrPingTimeout = errors.New("ping timeout")
