// Package appctx provides the application context that holds all runtime dependencies.
package appctx

import (
	"fmt"

	"xc-gateway/pkg/config"
	"xc-gateway/pkg/logging"
	"xc-gateway/pkg/timeshift"
	"xc-gateway/pkg/xtream"

	"github.com/panjf2000/ants/v2"
)

// Context holds all application runtime dependencies.
// Pass this single struct to components instead of individual parameters.
type Context struct {
	Config     *config.Config
	Log        *logging.Logger
	Upstream   *xtream.Factory
	Redirector *timeshift.Redirector
	Pool       *ants.Pool
	BaseURL    string
}

// New creates a new application context. BaseURL falls back to localhost
// when the configuration does not pin a public address.
func New(cfg *config.Config, log *logging.Logger) *Context {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	return &Context{
		Config:  cfg,
		Log:     log,
		BaseURL: baseURL,
	}
}

// WithUpstream sets the upstream client factory.
func (c *Context) WithUpstream(f *xtream.Factory) *Context {
	c.Upstream = f
	return c
}

// WithRedirector sets the time-shift redirector.
func (c *Context) WithRedirector(r *timeshift.Redirector) *Context {
	c.Redirector = r
	return c
}

// WithPool sets the worker pool for concurrent upstream fetches.
func (c *Context) WithPool(p *ants.Pool) *Context {
	c.Pool = p
	return c
}
