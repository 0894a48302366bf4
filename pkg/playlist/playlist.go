// Package playlist turns channel and category listings into ordered
// playlist entries. Everything here is a pure transformation of data that
// has already been fetched; no network access happens in this package.
package playlist

import (
	"strings"

	"xc-gateway/pkg/logging"
	"xc-gateway/pkg/xtream"
)

// separatorMarker prefixes the placeholder rows some providers inject
// between channel groups. They carry no stream and are dropped everywhere.
const separatorMarker = "==="

// unknownCategory is the name a channel compares under when its category id
// is missing from the category listing.
const unknownCategory = "Unknown"

// Entry is one playlist line pair: metadata attributes plus the stream URL.
// Name doubles as tvg-name and the display name after the comma.
type Entry struct {
	CUID  string
	TvgID string
	Name  string
	Logo  string
	Group string
	URL   string
}

// URLBuilder produces the stream URL for one channel id. Callers close over
// whatever else the URL needs (credentials, extension, shift).
type URLBuilder func(streamID string) string

// BuildLive emits one entry per live channel, in input order. Separator rows
// are dropped. A non-empty categoryFilter keeps only channels whose category
// name starts with it, compared case-insensitively; channels without a known
// category compare as "Unknown". Channels without an EPG id are logged and
// kept.
func BuildLive(categories []xtream.Category, channels []xtream.Channel, categoryFilter string, buildURL URLBuilder, log *logging.Logger) []Entry {
	names := categoryNames(categories)
	filter := strings.ToLower(categoryFilter)

	entries := make([]Entry, 0, len(channels))
	for _, ch := range channels {
		name := strings.TrimSpace(ch.Name)
		if strings.HasPrefix(name, separatorMarker) {
			continue
		}
		group, known := names[ch.CategoryID]
		if filter != "" {
			compare := group
			if !known {
				compare = unknownCategory
			}
			if !strings.HasPrefix(strings.ToLower(compare), filter) {
				continue
			}
		}
		if ch.EPGChannelID == "" {
			log.Debug("channel has no EPG id", "channel", name, "stream_id", ch.StreamID, "category", group)
		}
		entries = append(entries, Entry{
			CUID:  ch.StreamID,
			TvgID: ch.EPGChannelID,
			Name:  name,
			Logo:  ch.StreamIcon,
			Group: group,
			URL:   buildURL(ch.StreamID),
		})
	}
	return entries
}

// BuildTimeshift emits a plus-one entry for every archived channel, in input
// order. Names gain a " +1" suffix, CUIDs a "+1" suffix, and EPG ids are
// rewritten with PlusOneEPGID so guide data can resolve the shifted channel.
func BuildTimeshift(categories []xtream.Category, channels []xtream.Channel, buildURL URLBuilder) []Entry {
	names := categoryNames(categories)

	entries := make([]Entry, 0, len(channels))
	for _, ch := range channels {
		name := strings.TrimSpace(ch.Name)
		if strings.HasPrefix(name, separatorMarker) {
			continue
		}
		if !ch.HasArchive {
			continue
		}
		epgID := ""
		if ch.EPGChannelID != "" {
			epgID = PlusOneEPGID(ch.EPGChannelID)
		}
		entries = append(entries, Entry{
			CUID:  ch.StreamID + "+1",
			TvgID: epgID,
			Name:  name + " +1",
			Logo:  ch.StreamIcon,
			Group: names[ch.CategoryID],
			URL:   buildURL(ch.StreamID),
		})
	}
	return entries
}

// PlusOneEPGID rewrites an EPG channel id for the plus-one variant by
// inserting "plus1" before the last dot, or appending it when the id has no
// dot: "bbc1.uk" becomes "bbc1plus1.uk", "bbc1" becomes "bbc1plus1".
func PlusOneEPGID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[:i] + "plus1" + id[i:]
	}
	return id + "plus1"
}

func categoryNames(categories []xtream.Category) map[string]string {
	names := make(map[string]string, len(categories))
	for _, cat := range categories {
		names[cat.ID] = cat.Name
	}
	return names
}
