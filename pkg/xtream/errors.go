package xtream

import (
	"context"
	"errors"
	"fmt"
)

// ParseError reports a malformed connection URL or field value.
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Msg)
}

// AuthError reports that the provider rejected the account credentials
// (user_info.auth == 0).
type AuthError struct {
	Host string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("upstream %s: account not authenticated", e.Host)
}

// UpstreamError reports a failed provider call: network failure, non-2xx
// status, or a body that could not be decoded.
type UpstreamError struct {
	Action string // player_api action, "user_info" for the no-action call
	Status int    // HTTP status, 0 when the request never completed
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s: status %d", e.Action, e.Status)
	}
	return fmt.Sprintf("upstream %s: %v", e.Action, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry, so the gateway
// can answer 504 instead of 502.
func (e *UpstreamError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
