package catalog

import "strings"

// TrackMetadata is the display data resolved for a track link.
type TrackMetadata struct {
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	ArtworkURL string   `json:"artwork_url"`
	EmbedURL   string   `json:"embed_url"`
}

// Artist returns the artist names joined by ", " in their given order.
func (m TrackMetadata) Artist() string {
	return strings.Join(m.Artists, ", ")
}

// Failure classifies why a lookup produced no metadata.
type Failure int

const (
	FailureNone Failure = iota
	FailureNoTrackID
	FailureConfig
	FailureAuth
	FailureUpstream
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureNoTrackID:
		return "no_track_id"
	case FailureConfig:
		return "config"
	case FailureAuth:
		return "auth"
	case FailureUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// LookupResult carries either the resolved metadata or the reason there is none.
type LookupResult struct {
	Track   *TrackMetadata
	Failure Failure
	Err     error
}

// OK reports whether the lookup produced metadata.
func (r LookupResult) OK() bool {
	return r.Failure == FailureNone && r.Track != nil
}
