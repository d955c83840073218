// Package catalog resolves catalog track links into display metadata using
// client-credential authentication with an in-memory token cache.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/justestif/songboard/internal/metrics"
)

const (
	// DefaultAPIURL is the catalog Web API base. It must end with a slash.
	DefaultAPIURL = "https://api.spotify.com/v1/"

	// tokenMargin is how long before expiry a cached token stops being reused.
	tokenMargin = 60 * time.Second

	requestTimeout = 10 * time.Second
)

var (
	// ErrMissingCredentials is returned when the client id or secret is not configured.
	ErrMissingCredentials = errors.New("missing catalog client credentials")

	// ErrTokenRejected is returned when the token endpoint answers with a non-success status.
	ErrTokenRejected = errors.New("catalog token request rejected")

	// ErrNoTrackID is returned when a link carries no track identifier.
	ErrNoTrackID = errors.New("link has no track id")
)

// Config holds catalog API configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	APIURL       string
}

// Client resolves track metadata. A single Client is meant to be shared by
// every caller for the lifetime of the process so the token cache is reused.
type Client struct {
	credentials clientcredentials.Config
	apiURL      string
	httpClient  *http.Client
	logger      *zap.Logger
	now         func() time.Time

	// The lock only guards reads and writes of the cached token; it is not
	// held across the exchange, so concurrent misses may each exchange.
	mu         sync.Mutex
	token      *oauth2.Token
	validUntil time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for both the token and API requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used to report swallowed lookup failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a catalog client. Empty credentials are accepted here and
// reported by AccessToken so the rest of the application can still start.
func NewClient(cfg Config, opts ...Option) *Client {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	c := &Client{
		credentials: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken returns the cached bearer token while it is more than a minute
// away from expiry, and otherwise exchanges the client credentials for a new one.
func (c *Client) AccessToken(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	if c.token != nil && c.now().Before(c.validUntil) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	if c.credentials.ClientID == "" || c.credentials.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	token, err := c.credentials.Token(c.httpContext(ctx))
	if err != nil {
		metrics.TokenExchanges.WithLabelValues("error").Inc()
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return nil, fmt.Errorf("%w: status %d", ErrTokenRejected, status)
		}
		return nil, fmt.Errorf("exchanging client credentials: %w", err)
	}
	metrics.TokenExchanges.WithLabelValues("ok").Inc()

	now := c.now()
	var expiry time.Time
	if lifetime, ok := expiresIn(token); ok {
		expiry = now.Add(lifetime)
	} else if !token.Expiry.IsZero() {
		expiry = token.Expiry
	} else {
		// No lifetime reported: use the token once and exchange again next time.
		expiry = now
	}

	c.mu.Lock()
	c.token = token
	c.validUntil = expiry.Add(-tokenMargin)
	c.mu.Unlock()

	return token, nil
}

// expiresIn reads the lifetime the token endpoint reported. The
// client-credentials source drops Token.ExpiresIn, so the raw response field
// is the only copy measured against our own clock.
func expiresIn(token *oauth2.Token) (time.Duration, bool) {
	var seconds float64
	switch v := token.Extra("expires_in").(type) {
	case float64:
		seconds = v
	case int64:
		seconds = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		seconds = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		seconds = f
	default:
		return 0, false
	}
	if seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// Lookup resolves a track link and reports why it failed when it did.
func (c *Client) Lookup(ctx context.Context, rawURL string) LookupResult {
	result := c.lookup(ctx, rawURL)
	metrics.Lookups.WithLabelValues(result.Failure.String()).Inc()
	return result
}

func (c *Client) lookup(ctx context.Context, rawURL string) LookupResult {
	id, ok := ExtractTrackID(rawURL)
	if !ok {
		return LookupResult{Failure: FailureNoTrackID, Err: ErrNoTrackID}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		failure := FailureUpstream
		switch {
		case errors.Is(err, ErrMissingCredentials):
			failure = FailureConfig
		case errors.Is(err, ErrTokenRejected):
			failure = FailureAuth
		}
		return LookupResult{Failure: failure, Err: err}
	}

	httpCtx := c.httpContext(ctx)
	api := spotify.New(
		oauth2.NewClient(httpCtx, oauth2.StaticTokenSource(token)),
		spotify.WithBaseURL(c.apiURL),
	)

	track, err := api.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return LookupResult{Failure: FailureUpstream, Err: fmt.Errorf("fetching track %s: %w", id, err)}
	}

	return LookupResult{Track: convertTrack(track, rawURL)}
}

// TrackInfo resolves a track link into metadata. Every failure (no track id,
// missing credentials, rejected token, network or upstream error) collapses
// into (nil, false); use Lookup to tell them apart.
func (c *Client) TrackInfo(ctx context.Context, rawURL string) (*TrackMetadata, bool) {
	result := c.Lookup(ctx, rawURL)
	if !result.OK() {
		c.logger.Warn("track lookup failed",
			zap.String("url", rawURL),
			zap.Stringer("failure", result.Failure),
			zap.Error(result.Err),
		)
		return nil, false
	}
	return result.Track, true
}

// httpContext carries the configured HTTP client into oauth2 calls.
func (c *Client) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// convertTrack builds TrackMetadata, taking the first album image as the artwork.
func convertTrack(track *spotify.FullTrack, rawURL string) *TrackMetadata {
	artists := make([]string, len(track.Artists))
	for i, a := range track.Artists {
		artists[i] = a.Name
	}

	var artwork string
	if len(track.Album.Images) > 0 {
		artwork = track.Album.Images[0].URL
	}

	return &TrackMetadata{
		Title:      track.Name,
		Artists:    artists,
		ArtworkURL: artwork,
		EmbedURL:   EmbedURL(rawURL),
	}
}
