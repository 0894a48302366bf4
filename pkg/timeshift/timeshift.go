// Package timeshift resolves time-shifted stream requests into the
// provider's archive URL.
package timeshift

import (
	"context"

	"xc-gateway/pkg/xtream"
)

// Redirector resolves redirect targets for shifted streams.
type Redirector struct {
	upstream *xtream.Factory
}

// NewRedirector creates a Redirector backed by the given client factory.
func NewRedirector(upstream *xtream.Factory) *Redirector {
	return &Redirector{upstream: upstream}
}

// Resolve returns the upstream time-shift URL for a channel, shiftHours
// behind the provider's clock. The result is meant to be handed to the
// player as a redirect target, never fetched by the gateway itself.
func (r *Redirector) Resolve(ctx context.Context, conn xtream.Connection, channelID string, shiftHours int) (string, error) {
	return r.upstream.Client(conn).TimeshiftURL(ctx, channelID, shiftHours)
}
