// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus instruments for the poll core.
//
// There is no /metrics endpoint. Collectors are registered on a caller-owned
// registry and can be dumped to a node_exporter textfile with WriteTextfile.
//
// Every method is safe on a nil *Metrics so packages can be used without
// instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quickly_poll"

// Toggle results
const (
	ToggleAdded    = "added"
	ToggleRemoved  = "removed"
	ToggleRejected = "rejected"
)

// Transition outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type Metrics struct {
	// TogglesTotal counts vote toggles.
	// Labels: result (added, removed, rejected)
	TogglesTotal *prometheus.CounterVec

	// TransitionsTotal counts lifecycle operations.
	// Labels: transition (create, activate, close, close_active), outcome (ok, rejected, error)
	TransitionsTotal *prometheus.CounterVec

	// StoreRetriesTotal counts transactions re-run after a transient failure or key conflict.
	// Labels: op
	StoreRetriesTotal *prometheus.CounterVec

	// StoreTxDurationSeconds measures whole atomic units including retries.
	// Labels: op
	StoreTxDurationSeconds *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TogglesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "voting",
				Name:      "toggles_total",
				Help:      "Vote toggles by result",
			},
			[]string{"result"},
		),
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Poll lifecycle operations by transition and outcome",
			},
			[]string{"transition", "outcome"},
		),
		StoreRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "retries_total",
				Help:      "Transactions retried after a transient failure or key conflict",
			},
			[]string{"op"},
		),
		StoreTxDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "tx_duration_seconds",
				Help:      "Duration of atomic store units including retries",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"op"},
		),
	}
}

// NewWithRegistry returns metrics registered on a fresh registry
func NewWithRegistry() (*Metrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func (m *Metrics) Toggle(result string) {
	if m == nil {
		return
	}
	m.TogglesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Transition(transition, outcome string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(transition, outcome).Inc()
}

func (m *Metrics) StoreRetry(op string) {
	if m == nil {
		return
	}
	m.StoreRetriesTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) StoreTx(op string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StoreTxDurationSeconds.WithLabelValues(op).Observe(elapsed.Seconds())
}

// WriteTextfile writes every metric in g to path in the text exposition format
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
