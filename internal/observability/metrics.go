// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/contactbook/contactbook/internal/auth"
)

// Metrics contains the custom Prometheus metrics for Contactbook.
type Metrics struct {
	HTTPRequestsTotal       *prometheus.CounterVec
	AuthEventsTotal         *prometheus.CounterVec
	CacheLookupsTotal       *prometheus.CounterVec
	RefreshRevocationsTotal prometheus.Counter
}

// NewMetrics creates and registers the Contactbook metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactbook_http_requests_total",
				Help: "Total number of API requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactbook_auth_events_total",
				Help: "Total number of authentication events by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contactbook_session_cache_lookups_total",
				Help: "Total number of session cache lookups by result",
			},
			[]string{"result"},
		),
		RefreshRevocationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "contactbook_refresh_revocations_total",
				Help: "Total number of refresh token families revoked after a replay",
			},
		),
	}

	reg.MustRegister(m.HTTPRequestsTotal)
	reg.MustRegister(m.AuthEventsTotal)
	reg.MustRegister(m.CacheLookupsTotal)
	reg.MustRegister(m.RefreshRevocationsTotal)

	return m
}

// HTTPRequest counts one served API request. route is the route pattern,
// not the raw path.
func (m *Metrics) HTTPRequest(method, route string, status int) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// AuthEvent implements auth.Recorder.
func (m *Metrics) AuthEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// CacheLookup implements auth.Recorder.
func (m *Metrics) CacheLookup(result string) {
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// RefreshRevoked implements auth.Recorder.
func (m *Metrics) RefreshRevoked() {
	m.RefreshRevocationsTotal.Inc()
}

var _ auth.Recorder = (*Metrics)(nil)
