package timeshift

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"xc-gateway/pkg/config"
	"xc-gateway/pkg/httpclient"
	"xc-gateway/pkg/logging"
	"xc-gateway/pkg/xtream"
)

func testConn(t *testing.T, srv *httptest.Server) xtream.Connection {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())
	return xtream.Connection{
		Scheme:   "http",
		Server:   u.Hostname(),
		Port:     port,
		Username: "user",
		Password: "pass",
	}
}

func TestRedirector_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user_info":{"auth":1},"server_info":{"timestamp_now":1700000000,"timezone":"UTC"}}`))
	}))
	defer srv.Close()

	log := logging.New("error", false, io.Discard)
	cfg := &config.Config{UpstreamTimeout: 5 * time.Second}
	redirector := NewRedirector(xtream.NewFactory(cfg, httpclient.New(cfg, log), log))

	target, err := redirector.Resolve(t.Context(), testConn(t, srv), "42", 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(target, "/streaming/timeshift.php?") {
		t.Errorf("target = %q", target)
	}
	if !strings.HasSuffix(target, "stream=42&start=2023-11-14%3A09-13") {
		t.Errorf("target = %q", target)
	}
}

func TestRedirector_ResolveAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user_info":{"auth":0}}`))
	}))
	defer srv.Close()

	log := logging.New("error", false, io.Discard)
	cfg := &config.Config{UpstreamTimeout: 5 * time.Second}
	redirector := NewRedirector(xtream.NewFactory(cfg, httpclient.New(cfg, log), log))

	_, err := redirector.Resolve(t.Context(), testConn(t, srv), "42", 1)
	var authErr *xtream.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}
