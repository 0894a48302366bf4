package xtream

import (
	"net/url"
	"strconv"
	"strings"
)

// Connection is an immutable descriptor of an upstream provider endpoint:
// scheme, host, optional port and account credentials. One is built per
// inbound request and never mutated afterwards.
//
// Empty credentials are treated as unset; every upstream call requires both
// username and password, which the gateway validates before a Connection is
// ever used.
type Connection struct {
	Scheme   string // "http" or "https"
	Server   string
	Port     int // 0 = no explicit port
	Username string
	Password string
}

// Host returns "server[:port]", the authority the provider URLs are built on.
func (c Connection) Host() string {
	if c.Port != 0 {
		return c.Server + ":" + strconv.Itoa(c.Port)
	}
	return c.Server
}

// URL renders the canonical diagnostic form
// "scheme://host?username=..&password=..", omitting unset fields.
// It is used for logging only, never for upstream calls.
func (c Connection) URL() string {
	var params []queryParam
	if c.Username != "" {
		params = append(params, queryParam{"username", c.Username})
	}
	if c.Password != "" {
		params = append(params, queryParam{"password", c.Password})
	}
	return c.Scheme + "://" + c.Host() + "?" + encodeQuery(params)
}

func (c Connection) String() string { return c.URL() }

// ParseURL parses an Xtream-style URL into a Connection. Credentials ride
// either as path-segment parameters ("/;username=u&password=p", the form
// provider panels hand out) or as plain query parameters, so URL() output
// round-trips. A URL without a host is a ParseError.
func ParseURL(raw string) (Connection, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Connection{}, &ParseError{Input: raw, Msg: err.Error()}
	}
	if u.Hostname() == "" {
		return Connection{}, &ParseError{Input: raw, Msg: "missing host"}
	}

	conn := Connection{
		Scheme: u.Scheme,
		Server: u.Hostname(),
	}
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			conn.Port = n
		}
	}

	creds := u.Query()
	if semi := strings.Index(u.Path, ";"); semi >= 0 {
		// url.ParseQuery splits on both "&" and ";"
		if segParams, err := url.ParseQuery(u.Path[semi+1:]); err == nil {
			for key, values := range segParams {
				if len(values) > 0 {
					creds.Set(key, values[0])
				}
			}
		}
	}
	conn.Username = creds.Get("username")
	conn.Password = creds.Get("password")

	return conn, nil
}

// queryParam is one entry of an ordered query string. Builders append
// entries in a fixed order and simply skip absent values, keeping the
// rendered parameter order stable.
type queryParam struct {
	key   string
	value string
}

// encodeQuery renders params in insertion order with URL-encoded values.
func encodeQuery(params []queryParam) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}
