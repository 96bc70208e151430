package defn

import (
	"errors"
	"fmt"
)

// Sentinel error kinds named by spec §7. No error escapes the forwarder
// goroutine: every pipeline step that can fail wraps one of these, logs it,
// increments a counter, and returns -- it never propagates further up.
var (
	ErrMalformedPacket    = errors.New("malformed packet")
	ErrLoopDetected       = errors.New("loop detected: duplicate nonce from different face")
	ErrNoRoute            = errors.New("no viable nexthop")
	ErrTransientTransport = errors.New("transient transport error")
	ErrFatalTransport     = errors.New("fatal transport error")
	ErrResourceExhaustion = errors.New("resource exhausted")
)

// ErrPolicyViolation is a typed error for the three policy checks spec §7
// names (hop-limit exhausted, name too long, fragcount over limit).
type ErrPolicyViolation struct {
	Reason string
}

// Error renders the policy violation reason.
func (e ErrPolicyViolation) Error() string {
	return fmt.Sprintf("policy violation: %s", e.Reason)
}
