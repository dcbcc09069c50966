// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package metrics exposes Prometheus counters for served requests, backend
calls and route guard decisions.

Each Metrics owns its registry, so several instances (one per test, for
example) never collide.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "presetfe"

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	backendTotal    *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	guardDecisions  *prometheus.CounterVec
}

// New registers all collectors, plus the Go runtime and process collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Requests served, by method and status code",
		}, []string{"method", "code"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time to serve a request",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		backendTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Requests made to the backend, by method, status code and whether the cache answered",
		}, []string{"method", "code", "cached"}),

		backendDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Round trip time of uncached backend requests",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method"}),

		guardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard outcomes for protected routes",
		}, []string{"decision"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware counts every request that reaches it.
func (m *Metrics) Middleware(w http.ResponseWriter, r *http.Request, next http.Handler) {
	if m == nil {
		next.ServeHTTP(w, r)

		return
	}

	snoop := httpsnoop.CaptureMetrics(next, w, r)

	m.requestsTotal.WithLabelValues(r.Method, strconv.Itoa(snoop.Code)).Inc()
	m.requestDuration.WithLabelValues(r.Method).Observe(snoop.Duration.Seconds())
}

// ObserveBackendRequest implements requests.Observer.
func (m *Metrics) ObserveBackendRequest(method string, statusCode int, cached bool, took time.Duration) {
	if m == nil {
		return
	}

	code := "error"
	if statusCode != 0 {
		code = strconv.Itoa(statusCode)
	}

	m.backendTotal.WithLabelValues(method, code, strconv.FormatBool(cached)).Inc()

	if !cached {
		m.backendDuration.WithLabelValues(method).Observe(took.Seconds())
	}
}

// ObserveGuardDecision counts one guard outcome.
func (m *Metrics) ObserveGuardDecision(redirected bool) {
	if m == nil {
		return
	}

	decision := "proceed"
	if redirected {
		decision = "redirect"
	}

	m.guardDecisions.WithLabelValues(decision).Inc()
}
