// Package metrics holds the Prometheus collectors shared by the songboard packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "songboard"

var (
	// TokenExchanges counts client-credential exchanges against the catalog token endpoint.
	TokenExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_token_exchanges_total",
		Help:      "Catalog token exchanges by outcome.",
	}, []string{"outcome"})

	// Lookups counts track metadata lookups by failure reason ("none" on success).
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_lookups_total",
		Help:      "Track metadata lookups by failure reason.",
	}, []string{"failure"})

	// LikeToggles counts like toggles by outcome.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_like_toggles_total",
		Help:      "Like toggles by outcome.",
	}, []string{"outcome"})

	// HTTPRequests counts served requests by route pattern and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"route", "status"})

	// RealtimeClients tracks connected websocket clients.
	RealtimeClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "realtime_clients",
		Help:      "Connected live-refresh clients.",
	})
)
