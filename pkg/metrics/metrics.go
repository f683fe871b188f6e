// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus metrics batchauth records about token
// acquisition.
package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Token acquisition outcomes.
const (
	OutcomeCacheHit      = "cache_hit"
	OutcomeRefresh       = "refresh"
	OutcomeRefreshFailed = "refresh_failed"
	OutcomeRedeem        = "redeem"
	OutcomeError         = "error"
)

// Metrics holds all Prometheus metrics for batchauth. A nil *Metrics records
// nothing.
type Metrics struct {
	TokenAcquisitions        *prometheus.CounterVec
	TokenAcquisitionDuration *prometheus.HistogramVec
	Logins                   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		TokenAcquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batchauth_token_acquisitions_total",
				Help: "Total number of access token requests by outcome",
			},
			[]string{"outcome"},
		),
		TokenAcquisitionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "batchauth_token_acquisition_duration_seconds",
				Help:    "Time to produce an access token by outcome",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"outcome"},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batchauth_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
	}
}

// NewRegistry creates a new Prometheus registry with metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

// RecordAcquisition counts one token request. refresh_failed is counted in
// addition to the outcome of the reauthorization that follows it.
func (m *Metrics) RecordAcquisition(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TokenAcquisitions.WithLabelValues(outcome).Inc()
	if outcome != OutcomeRefreshFailed {
		m.TokenAcquisitionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	}
}

// RecordLogin counts one login by result: success, cancelled or error.
func (m *Metrics) RecordLogin(result string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(result).Inc()
}

// WriteText writes every metric in g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
