package xtream

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
)

// newUpstream starts a fake provider and returns a client pointed at it.
func newUpstream(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())
	conn := Connection{
		Scheme:   "http",
		Server:   u.Hostname(),
		Port:     port,
		Username: "user",
		Password: "pass",
	}

	log := logging.New("error", false, io.Discard)
	hc := httpclient.New(&config.Config{}, log)
	factory := NewFactory(&config.Config{UpstreamTimeout: 5 * time.Second}, hc, log)
	return factory.Client(conn), srv
}

func TestClient_GetLiveCategories(t *testing.T) {
	var gotQuery string
	client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"category_id":1,"category_name":"News"},{"category_id":"2","category_name":"Sports"}]`))
	})

	categories, err := client.GetLiveCategories(t.Context())
	if err != nil {
		t.Fatalf("GetLiveCategories: %v", err)
	}

	if gotQuery != "action=get_live_categories&username=user&password=pass" {
		t.Errorf("query = %q, parameter order must be stable", gotQuery)
	}
	if len(categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(categories))
	}
	// Numeric and string ids both decode to strings
	if categories[0].ID != "1" || categories[0].Name != "News" {
		t.Errorf("categories[0] = %+v", categories[0])
	}
	if categories[1].ID != "2" || categories[1].Name != "Sports" {
		t.Errorf("categories[1] = %+v", categories[1])
	}
}

func TestClient_GetLiveStreams(t *testing.T) {
	var gotQuery string
	client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[
			{"stream_id":5,"name":"CNN","category_id":"1","epg_channel_id":"cnn.us","stream_icon":"http://x/cnn.png","tv_archive":1},
			{"stream_id":"6","name":"BBC One","category_id":2,"epg_channel_id":null,"tv_archive":"0"}
		]`))
	})

	channels, err := client.GetLiveStreams(t.Context())
	if err != nil {
		t.Fatalf("GetLiveStreams: %v", err)
	}

	if gotQuery != "action=get_live_streams&username=user&password=pass" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(channels))
	}
	want0 := Channel{StreamID: "5", Name: "CNN", CategoryID: "1", EPGChannelID: "cnn.us", StreamIcon: "http://x/cnn.png", HasArchive: true}
	if channels[0] != want0 {
		t.Errorf("channels[0] = %+v, want %+v", channels[0], want0)
	}
	if channels[1].StreamID != "6" || channels[1].HasArchive || channels[1].EPGChannelID != "" {
		t.Errorf("channels[1] = %+v", channels[1])
	}
}

func TestClient_GetAccountInfo(t *testing.T) {
	var gotQuery string
	client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"user_info":{"auth":"1"},"server_info":{"timestamp_now":"1700000000","timezone":"UTC"}}`))
	})

	info, err := client.GetAccountInfo(t.Context())
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}

	// The action parameter is omitted entirely, not sent empty
	if gotQuery != "username=user&password=pass" {
		t.Errorf("query = %q", gotQuery)
	}
	if info.TimestampNow != 1700000000 || info.Timezone != "UTC" {
		t.Errorf("info = %+v", info)
	}
}

func TestClient_AuthRejected(t *testing.T) {
	t.Run("account info", func(t *testing.T) {
		client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"user_info":{"auth":0}}`))
		})

		_, err := client.GetAccountInfo(t.Context())
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthError, got %v", err)
		}
	})

	t.Run("listing call answered with auth envelope", func(t *testing.T) {
		client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"user_info":{"auth":0}}`))
		})

		_, err := client.GetLiveStreams(t.Context())
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("expected AuthError, got %v", err)
		}
	})
}

func TestClient_UpstreamFailures(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.GetLiveCategories(t.Context())
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if upErr.Status != http.StatusBadGateway {
			t.Errorf("Status = %d, want 502", upErr.Status)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"oops`))
		})

		_, err := client.GetLiveCategories(t.Context())
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		})
		client.timeout = 50 * time.Millisecond

		_, err := client.GetLiveCategories(t.Context())
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if !upErr.Timeout() {
			t.Errorf("Timeout() = false for %v", upErr)
		}
	})
}

func TestClient_LiveURL(t *testing.T) {
	conn := Connection{Scheme: "https", Server: "tv.example.com", Username: "us er", Password: "p/w"}
	client := &Client{conn: conn}

	tests := []struct {
		name      string
		channelID string
		extension string
		want      string
	}{
		{
			name:      "default extension",
			channelID: "5",
			want:      "https://tv.example.com/live/us%20er/p%2Fw/5.m3u8",
		},
		{
			name:      "explicit extension",
			channelID: "5",
			extension: "ts",
			want:      "https://tv.example.com/live/us%20er/p%2Fw/5.ts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.LiveURL(tt.channelID, tt.extension); got != tt.want {
				t.Errorf("LiveURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClient_TimeshiftURL(t *testing.T) {
	// 1700000000 = 2023-11-14 22:13:20 UTC; two hours back is 20:13:20,
	// rendered on a 12-hour clock as 08-13.
	client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user_info":{"auth":1},"server_info":{"timestamp_now":1700000000,"timezone":"UTC"}}`))
	})

	got, err := client.TimeshiftURL(t.Context(), "42", 2)
	if err != nil {
		t.Fatalf("TimeshiftURL: %v", err)
	}

	wantSuffix := "/streaming/timeshift.php?duration=1000&username=user&password=pass&stream=42&start=2023-11-14%3A08-13"
	if !strings.HasSuffix(got, wantSuffix) {
		t.Errorf("TimeshiftURL() = %q, want suffix %q", got, wantSuffix)
	}
}

func TestClient_TimeshiftURL_MissingServerInfo(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no server_info", `{"user_info":{"auth":1}}`},
		{"missing timezone", `{"user_info":{"auth":1},"server_info":{"timestamp_now":1700000000}}`},
		{"bad timezone", `{"user_info":{"auth":1},"server_info":{"timestamp_now":1700000000,"timezone":"Nowhere/Invalid"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.TimeshiftURL(t.Context(), "42", 1)
			var upErr *UpstreamError
			if !errors.As(err, &upErr) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
		})
	}
}
