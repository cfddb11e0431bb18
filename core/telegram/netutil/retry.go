// Package netutil classifies transport failures on the way to the Bot API.
package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	tele "gopkg.in/telebot.v4"
)

// transient are low-level failures after which the same request may succeed.
var transient = []error{io.ErrUnexpectedEOF, syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.EPIPE}

// ShouldRetry reports whether a failed Bot API call is worth repeating.
// Cancellation and 4xx answers are final; flood waits are the caller's job.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var (
		apiErr *tele.Error
		opErr  *net.OpError
		netErr net.Error
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code >= 500
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return true
	case errors.As(err, &netErr) && netErr.Timeout():
		return true
	}
	for _, t := range transient {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
