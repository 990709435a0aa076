package utils

import (
	"errors"
	"net"
)

// DialFailed reports whether an HTTP transport error happened before a
// connection was established, so the request cannot have reached the server.
// Any other transport error (timeout, reset, EOF mid-response) leaves the
// outcome unknown and must not be retried for non-idempotent calls.
func DialFailed(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
