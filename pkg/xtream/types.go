package xtream

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Category is one entry of the provider's live-category listing.
type Category struct {
	ID   string
	Name string
}

// Channel is one entry of the provider's live-stream listing, reduced to the
// fields the playlist synthesizer consumes.
type Channel struct {
	StreamID     string
	Name         string
	CategoryID   string
	EPGChannelID string
	StreamIcon   string
	HasArchive   bool
}

// AccountInfo is the typed view of the provider's no-action player_api call.
type AccountInfo struct {
	Auth         bool
	TimestampNow int64  // server clock, unix seconds
	Timezone     string // IANA zone name the server clock is reported in
}

// Wire-format structs. Provider panels emit ids, flags and timestamps as
// numbers or strings interchangeably, so every such field decodes through a
// flexible wrapper.

type categoryJSON struct {
	CategoryID   flexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
}

type channelJSON struct {
	StreamID     flexString `json:"stream_id"`
	Name         string     `json:"name"`
	CategoryID   flexString `json:"category_id"`
	EPGChannelID flexString `json:"epg_channel_id"`
	StreamIcon   string     `json:"stream_icon"`
	TVArchive    flexBool   `json:"tv_archive"`
}

type accountJSON struct {
	UserInfo *struct {
		Auth flexBool `json:"auth"`
	} `json:"user_info"`
	ServerInfo *struct {
		TimestampNow flexInt64 `json:"timestamp_now"`
		Timezone     string    `json:"timezone"`
	} `json:"server_info"`
}

// flexString decodes a JSON string, number or null into a string.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexBool decodes true/false, 0/1 and "0"/"1" into a bool. Any non-zero
// value counts as true, matching the provider's loose archive flags.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	if bytes.Equal(b, []byte("true")) || bytes.Equal(b, []byte("false")) {
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = flexBool(v)
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return err
	}
	*f = n != 0
	return nil
}

// flexInt64 decodes a JSON number or numeric string into an int64.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(s), 10, 64)
	if err != nil {
		return err
	}
	*f = flexInt64(n)
	return nil
}
