package playlist

import (
	"fmt"
	"strings"
)

// ContentType is the media type playlist responses are served with.
const ContentType = "application/x-mpegURL"

// RenderM3U serializes entries as an extended-M3U document. Absent
// attributes render as empty strings rather than being omitted, which is
// what most IPTV players expect.
func RenderM3U(entries []Entry) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "#EXTINF:-1 CUID=\"%s\" tvg-id=\"%s\" tvg-name=\"%s\" tvg-logo=\"%s\" group-title=\"%s\",%s\n%s\n",
			e.CUID, e.TvgID, e.Name, e.Logo, e.Group, e.Name, e.URL)
	}
	return b.String()
}
