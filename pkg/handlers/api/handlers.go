// Package api provides the HTTP handlers for the gateway API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"xc-gateway/pkg/appctx"
	"xc-gateway/pkg/logging"
	"xc-gateway/pkg/metrics"
	"xc-gateway/pkg/playlist"
	"xc-gateway/pkg/xtream"
)

const (
	defaultScheme    = "https"
	defaultExtension = "ts"
	defaultShift     = 1
)

// Handlers contains all API handlers.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", h.handleIndex)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /api/info", h.handleAPIInfo)
	mux.HandleFunc("GET /favicon.ico", h.handleFavicon)

	mux.HandleFunc("GET /xc/live/playlist.m3u8", h.handleLivePlaylist)
	mux.HandleFunc("GET /xc/timeshift/playlist.m3u8", h.handleTimeshiftPlaylist)
	mux.HandleFunc("GET /xc/timeshift/{stream}", h.handleTimeshiftStream)
}

// handleIndex serves a short endpoint listing.
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>xc-gateway</title></head>
<body>
    <h1>xc-gateway</h1>
    <p>Playlist gateway for Xtream-Codes providers.</p>
    <ul>
        <li><code>GET /xc/live/playlist.m3u8?host=...&amp;username=...&amp;password=...</code> &mdash; live playlist</li>
        <li><code>GET /xc/timeshift/playlist.m3u8?host=...&amp;username=...&amp;password=...&amp;shift=1</code> &mdash; plus-one playlist</li>
        <li><code>GET /xc/timeshift/{stream}.ts?host=...&amp;username=...&amp;password=...&amp;shift=1</code> &mdash; time-shift redirect</li>
        <li><code>GET /api/info</code> &mdash; server status (JSON)</li>
    </ul>
</body>
</html>`)
}

// handleHealth is the liveness probe.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAPIInfo returns server status as JSON.
func (h *Handlers) handleAPIInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "running",
		"version": "1.0.0",
	})
}

func (h *Handlers) handleFavicon(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

// handleLivePlaylist renders the filtered live playlist for the credentials
// given in the query string.
func (h *Handlers) handleLivePlaylist(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.connectionFromRequest(w, r)
	if !ok {
		return
	}
	extension := r.URL.Query().Get("extension")
	if extension == "" {
		extension = defaultExtension
	}
	category := r.URL.Query().Get("category")

	client := h.ctx.Upstream.Client(conn)
	categories, channels, err := h.fetchListings(r.Context(), client)
	if err != nil {
		h.writeUpstreamError(w, r, err)
		return
	}

	entries := playlist.BuildLive(categories, channels, category, func(streamID string) string {
		return client.LiveURL(streamID, extension)
	}, h.log)
	metrics.PlaylistEntries.WithLabelValues("live").Add(float64(len(entries)))

	h.log.Debug("live playlist built", "upstream", conn.Host(), "entries", len(entries), "category", category)
	h.writePlaylist(w, entries)
}

// handleTimeshiftPlaylist renders the plus-one playlist. Entry URLs point
// back at this gateway's redirect endpoint, carrying the connection and
// shift in the query string.
func (h *Handlers) handleTimeshiftPlaylist(w http.ResponseWriter, r *http.Request) {
	conn, ok := h.connectionFromRequest(w, r)
	if !ok {
		return
	}
	shift, ok := h.shiftFromRequest(w, r)
	if !ok {
		return
	}

	client := h.ctx.Upstream.Client(conn)
	categories, channels, err := h.fetchListings(r.Context(), client)
	if err != nil {
		h.writeUpstreamError(w, r, err)
		return
	}

	entries := playlist.BuildTimeshift(categories, channels, func(streamID string) string {
		return h.redirectURL(conn, streamID, shift)
	})
	metrics.PlaylistEntries.WithLabelValues("timeshift").Add(float64(len(entries)))

	h.log.Debug("timeshift playlist built", "upstream", conn.Host(), "entries", len(entries), "shift", shift)
	h.writePlaylist(w, entries)
}

// handleTimeshiftStream resolves one shifted stream and answers with a 302
// to the provider's archive URL.
func (h *Handlers) handleTimeshiftStream(w http.ResponseWriter, r *http.Request) {
	channelID, found := strings.CutSuffix(r.PathValue("stream"), ".ts")
	if !found || channelID == "" {
		h.writeError(w, http.StatusBadRequest, "stream path must name a channel id with a .ts extension")
		return
	}
	conn, ok := h.connectionFromRequest(w, r)
	if !ok {
		return
	}
	shift, ok := h.shiftFromRequest(w, r)
	if !ok {
		return
	}

	target, err := h.ctx.Redirector.Resolve(r.Context(), conn, channelID, shift)
	if err != nil {
		h.writeUpstreamError(w, r, err)
		return
	}

	h.log.Debug("timeshift redirect", "upstream", conn.Host(), "channel", channelID, "shift", shift)
	http.Redirect(w, r, target, http.StatusFound)
}

// fetchListings pulls categories and channels for one request. The category
// fetch rides on the shared worker pool so both calls overlap; when the pool
// is saturated the fetch simply runs inline.
func (h *Handlers) fetchListings(ctx context.Context, client *xtream.Client) ([]xtream.Category, []xtream.Channel, error) {
	var (
		wg         sync.WaitGroup
		categories []xtream.Category
		catErr     error
	)
	wg.Add(1)
	fetchCategories := func() {
		defer wg.Done()
		categories, catErr = client.GetLiveCategories(ctx)
	}
	if h.ctx.Pool == nil || h.ctx.Pool.Submit(fetchCategories) != nil {
		fetchCategories()
	}

	channels, chanErr := client.GetLiveStreams(ctx)
	wg.Wait()

	if chanErr != nil {
		return nil, nil, chanErr
	}
	if catErr != nil {
		return nil, nil, catErr
	}
	return categories, channels, nil
}

// connectionFromRequest builds the upstream Connection from query
// parameters. On missing fields it writes a 400 naming every absent
// parameter and returns ok=false.
func (h *Handlers) connectionFromRequest(w http.ResponseWriter, r *http.Request) (xtream.Connection, bool) {
	query := r.URL.Query()

	var missing []string
	for _, name := range []string{"host", "username", "password"} {
		if query.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		h.writeError(w, http.StatusBadRequest, "missing required parameter(s): "+strings.Join(missing, ", "))
		return xtream.Connection{}, false
	}

	scheme := query.Get("scheme")
	if scheme == "" {
		scheme = defaultScheme
	}

	host := query.Get("host")
	server, port := host, 0
	if s, p, ok := strings.Cut(host, ":"); ok {
		if n, err := strconv.Atoi(p); err == nil {
			server, port = s, n
		}
	}

	return xtream.Connection{
		Scheme:   scheme,
		Server:   server,
		Port:     port,
		Username: query.Get("username"),
		Password: query.Get("password"),
	}, true
}

// shiftFromRequest parses the shift parameter, defaulting to one hour.
func (h *Handlers) shiftFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("shift")
	if raw == "" {
		return defaultShift, true
	}
	shift, err := strconv.Atoi(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "shift must be an integer")
		return 0, false
	}
	return shift, true
}

// redirectURL builds the gateway's own redirect address for one shifted
// channel. Parameter order mirrors connectionFromRequest so playlists stay
// byte-stable across requests.
func (h *Handlers) redirectURL(conn xtream.Connection, streamID string, shift int) string {
	return fmt.Sprintf("%s/xc/timeshift/%s.ts?host=%s&username=%s&password=%s&scheme=%s&shift=%d",
		h.ctx.BaseURL,
		url.PathEscape(streamID),
		url.QueryEscape(conn.Host()),
		url.QueryEscape(conn.Username),
		url.QueryEscape(conn.Password),
		url.QueryEscape(conn.Scheme),
		shift)
}

// writeUpstreamError maps client errors onto gateway status codes: bad
// credentials are the caller's fault, timeouts and upstream failures are
// gateway errors.
func (h *Handlers) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	var authErr *xtream.AuthError
	if errors.As(err, &authErr) {
		h.writeError(w, http.StatusUnauthorized, "upstream rejected the credentials")
		return
	}

	var upErr *xtream.UpstreamError
	if errors.As(err, &upErr) {
		h.log.Error("upstream call failed", "path", r.URL.Path, "error", err)
		if upErr.Timeout() {
			h.writeError(w, http.StatusGatewayTimeout, "upstream timed out")
			return
		}
		h.writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}

	var parseErr *xtream.ParseError
	if errors.As(err, &parseErr) {
		h.writeError(w, http.StatusBadRequest, parseErr.Error())
		return
	}

	h.log.Error("request failed", "path", r.URL.Path, "error", err)
	h.writeError(w, http.StatusBadGateway, "upstream request failed")
}

func (h *Handlers) writePlaylist(w http.ResponseWriter, entries []playlist.Entry) {
	w.Header().Set("Content-Type", playlist.ContentType)
	fmt.Fprint(w, playlist.RenderM3U(entries))
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
