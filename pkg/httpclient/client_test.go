package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"xc-gateway/pkg/config"
	"xc-gateway/pkg/logging"
)

func newTestClient(cfg *config.Config) *Client {
	return New(cfg, logging.New("debug", false, io.Discard))
}

func TestClient_needsUTLS(t *testing.T) {
	c := newTestClient(&config.Config{
		UTLSDomains: []string{"cf.provider.example", "Shielded.Tv"},
	})

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"matching domain", "https://cf.provider.example/player_api.php", true},
		{"case-insensitive match", "https://shielded.tv/live/u/p/1.ts", true},
		{"non-matching domain", "https://plain.provider.example/player_api.php", false},
		{"empty list never matches", "https://cf.provider.example/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := c
			if tt.name == "empty list never matches" {
				client = newTestClient(&config.Config{})
			}
			if got := client.needsUTLS(tt.url); got != tt.want {
				t.Errorf("needsUTLS(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestClient_getClientForURL(t *testing.T) {
	t.Run("default client without proxies", func(t *testing.T) {
		c := newTestClient(&config.Config{})
		if got := c.getClientForURL("http://provider.example/player_api.php"); got != c.defaultClient {
			t.Error("expected default client")
		}
	})

	t.Run("utls client for configured domain", func(t *testing.T) {
		c := newTestClient(&config.Config{UTLSDomains: []string{"provider.example"}})
		if got := c.getClientForURL("https://provider.example/player_api.php"); got != c.utlsClient {
			t.Error("expected utls client")
		}
	})

	t.Run("proxy client cached per URL", func(t *testing.T) {
		c := newTestClient(&config.Config{GlobalProxies: []string{"http://proxy.local:3128"}})
		first := c.getClientForURL("http://provider.example/")
		second := c.getClientForURL("http://provider.example/")
		if first != second {
			t.Error("proxy client should be cached")
		}
		if first == c.defaultClient {
			t.Error("expected dedicated proxy client")
		}
	})

	t.Run("bad proxy URL falls back to default", func(t *testing.T) {
		c := newTestClient(&config.Config{GlobalProxies: []string{"ftp://nope"}})
		if got := c.getClientForURL("http://provider.example/"); got != c.defaultClient {
			t.Error("unsupported proxy scheme should fall back to default client")
		}
	})
}

func TestClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newTestClient(&config.Config{})
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}
