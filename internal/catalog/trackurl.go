package catalog

import (
	"net/url"
	"regexp"
)

const defaultEmbedOrigin = "https://open.spotify.com"

var trackIDPattern = regexp.MustCompile(`/track/([A-Za-z0-9]+)`)

// ExtractTrackID returns the track identifier from a catalog track link
// such as https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC.
func ExtractTrackID(rawURL string) (string, bool) {
	m := trackIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// EmbedURL converts a track link into its inline-player form, keeping the
// original query string verbatim. Links without a track id are returned unchanged,
// so callers must not assume the result is an embed link.
func EmbedURL(rawURL string) string {
	id, ok := ExtractTrackID(rawURL)
	if !ok {
		return rawURL
	}

	origin := defaultEmbedOrigin
	var rawQuery string
	if u, err := url.Parse(rawURL); err == nil {
		if u.Scheme != "" && u.Host != "" {
			origin = u.Scheme + "://" + u.Host
		}
		rawQuery = u.RawQuery
	}

	embed := origin + "/embed/track/" + id
	if rawQuery != "" {
		embed += "?" + rawQuery
	}
	return embed
}
