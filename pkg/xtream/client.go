// Package xtream implements the client side of the Xtream-Codes provider
// API: typed listings from player_api.php and the two stream URL forms
// (direct live and time-shifted).
package xtream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"xc-gateway/pkg/config"
	"xc-gateway/pkg/httpclient"
	"xc-gateway/pkg/logging"
	"xc-gateway/pkg/metrics"

	"go.uber.org/ratelimit"
)

const (
	actionLiveCategories = "get_live_categories"
	actionLiveStreams    = "get_live_streams"
	actionAccountInfo    = "user_info" // metrics label for the no-action call

	timeshiftDuration = "1000"
	// 12-hour clock field, matching what provider panels expect
	timeshiftLayout = "2006-01-02:03-04"
)

// Factory builds per-request clients around shared transport, logging and
// rate limiting. The limiter spans all connections: it protects this
// process's egress, not any single provider.
type Factory struct {
	http    *httpclient.Client
	log     *logging.Logger
	timeout time.Duration
	limiter ratelimit.Limiter
}

// NewFactory creates a client factory from the application configuration.
func NewFactory(cfg *config.Config, hc *httpclient.Client, log *logging.Logger) *Factory {
	limiter := ratelimit.NewUnlimited()
	if cfg.UpstreamRPS > 0 {
		limiter = ratelimit.New(cfg.UpstreamRPS)
	}
	return &Factory{
		http:    hc,
		log:     log.WithComponent("xtream"),
		timeout: cfg.UpstreamTimeout,
		limiter: limiter,
	}
}

// Client builds a client for one Connection. Clients are request-scoped and
// cheap; nothing is shared between them except the factory's transport.
func (f *Factory) Client(conn Connection) *Client {
	return &Client{
		conn:    conn,
		http:    f.http,
		log:     f.log.WithUpstream(conn.Host()),
		timeout: f.timeout,
		limiter: f.limiter,
	}
}

// Client issues the provider calls for a single Connection.
type Client struct {
	conn    Connection
	http    *httpclient.Client
	log     *logging.Logger
	timeout time.Duration
	limiter ratelimit.Limiter
}

// Connection returns the connection this client wraps.
func (c *Client) Connection() Connection { return c.conn }

// GetLiveCategories fetches the provider's live-category listing.
func (c *Client) GetLiveCategories(ctx context.Context) ([]Category, error) {
	body, err := c.playerAPI(ctx, actionLiveCategories)
	if err != nil {
		return nil, err
	}
	raw, err := decodeList[categoryJSON](body, actionLiveCategories, c.conn.Host())
	if err != nil {
		return nil, err
	}
	categories := make([]Category, 0, len(raw))
	for _, cat := range raw {
		categories = append(categories, Category{
			ID:   string(cat.CategoryID),
			Name: cat.CategoryName,
		})
	}
	return categories, nil
}

// GetLiveStreams fetches the provider's live-channel listing.
func (c *Client) GetLiveStreams(ctx context.Context) ([]Channel, error) {
	body, err := c.playerAPI(ctx, actionLiveStreams)
	if err != nil {
		return nil, err
	}
	raw, err := decodeList[channelJSON](body, actionLiveStreams, c.conn.Host())
	if err != nil {
		return nil, err
	}
	channels := make([]Channel, 0, len(raw))
	for _, ch := range raw {
		channels = append(channels, Channel{
			StreamID:     string(ch.StreamID),
			Name:         ch.Name,
			CategoryID:   string(ch.CategoryID),
			EPGChannelID: string(ch.EPGChannelID),
			StreamIcon:   ch.StreamIcon,
			HasArchive:   bool(ch.TVArchive),
		})
	}
	return channels, nil
}

// GetAccountInfo fetches account and server status via the no-action
// player_api call. A rejected account surfaces as AuthError.
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	body, err := c.playerAPI(ctx, "")
	if err != nil {
		return nil, err
	}
	var raw accountJSON
	if err := json.Unmarshal(body, &raw); err != nil || raw.UserInfo == nil {
		return nil, &UpstreamError{Action: actionAccountInfo, Err: fmt.Errorf("malformed account body")}
	}
	if !raw.UserInfo.Auth {
		return nil, &AuthError{Host: c.conn.Host()}
	}
	info := &AccountInfo{Auth: true}
	if raw.ServerInfo != nil {
		info.TimestampNow = int64(raw.ServerInfo.TimestampNow)
		info.Timezone = raw.ServerInfo.Timezone
	}
	return info, nil
}

// LiveURL builds the direct live stream URL for a channel. Pure string
// construction; credentials are percent-encoded as path segments. The
// default extension is m3u8.
func (c *Client) LiveURL(channelID, extension string) string {
	if extension == "" {
		extension = "m3u8"
	}
	return fmt.Sprintf("%s://%s/live/%s/%s/%s.%s",
		c.conn.Scheme, c.conn.Host(),
		url.PathEscape(c.conn.Username), url.PathEscape(c.conn.Password),
		channelID, extension)
}

// TimeshiftURL resolves the provider's time-shift URL for a channel,
// shiftHours back from the provider's own clock. The server clock is fetched
// fresh on every call so upstream clock drift is reflected immediately.
func (c *Client) TimeshiftURL(ctx context.Context, channelID string, shiftHours int) (string, error) {
	info, err := c.GetAccountInfo(ctx)
	if err != nil {
		return "", err
	}
	if info.TimestampNow == 0 || info.Timezone == "" {
		return "", &UpstreamError{
			Action: actionAccountInfo,
			Err:    fmt.Errorf("server_info missing timestamp_now or timezone"),
		}
	}
	loc, err := time.LoadLocation(info.Timezone)
	if err != nil {
		return "", &UpstreamError{
			Action: actionAccountInfo,
			Err:    fmt.Errorf("server timezone %q: %w", info.Timezone, err),
		}
	}

	start := time.Unix(info.TimestampNow, 0).In(loc).Add(-time.Duration(shiftHours) * time.Hour)

	query := encodeQuery([]queryParam{
		{"duration", timeshiftDuration},
		{"username", c.conn.Username},
		{"password", c.conn.Password},
		{"stream", channelID},
		{"start", start.Format(timeshiftLayout)},
	})
	return fmt.Sprintf("%s://%s/streaming/timeshift.php?%s", c.conn.Scheme, c.conn.Host(), query), nil
}

// playerAPI issues one GET to player_api.php and returns the raw body.
// Parameter order is action, username, password, with the action entry
// dropped entirely for the account-info call.
func (c *Client) playerAPI(ctx context.Context, action string) ([]byte, error) {
	label := action
	if label == "" {
		label = actionAccountInfo
	}

	var params []queryParam
	if action != "" {
		params = append(params, queryParam{"action", action})
	}
	params = append(params,
		queryParam{"username", c.conn.Username},
		queryParam{"password", c.conn.Password},
	)
	reqURL := fmt.Sprintf("%s://%s/player_api.php?%s", c.conn.Scheme, c.conn.Host(), encodeQuery(params))

	c.limiter.Take()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	body, status, err := c.get(ctx, reqURL)
	metrics.UpstreamDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.UpstreamErrors.WithLabelValues(label, "transport").Inc()
		return nil, &UpstreamError{Action: label, Err: err}
	}
	if status < 200 || status >= 300 {
		metrics.UpstreamErrors.WithLabelValues(label, "status").Inc()
		return nil, &UpstreamError{Action: label, Status: status}
	}

	c.log.Debug("upstream call completed", "action", label, "bytes", len(body))
	return body, nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// Surface the deadline so callers can tell 504 from 502
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// decodeList decodes an array response. Bad credentials make player_api
// answer the account envelope instead of an array, so a failed array decode
// is re-tried as an auth envelope before being reported as malformed.
func decodeList[T any](body []byte, action, host string) ([]T, error) {
	var list []T
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}

	var envelope struct {
		UserInfo *struct {
			Auth flexBool `json:"auth"`
		} `json:"user_info"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.UserInfo != nil && !bool(envelope.UserInfo.Auth) {
		return nil, &AuthError{Host: host}
	}
	return nil, &UpstreamError{Action: action, Err: fmt.Errorf("malformed listing body")}
}
