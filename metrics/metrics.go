/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metrics holds the Prometheus instrumentation for PersonStore.
// Every recording method is safe on a nil *Metrics, so instrumentation is optional.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/suparena/personstore/datastore"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Cache result labels.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics holds all Prometheus collectors
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TransactionsTotal *prometheus.CounterVec
	CacheRequests     *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personstore_operations_total",
				Help: "Total number of use-case operations",
			},
			[]string{"operation", "backend", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "personstore_operation_duration_seconds",
				Help:    "Use-case operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		TransactionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personstore_transactions_total",
				Help: "Units of work by terminal state",
			},
			[]string{"backend", "state"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personstore_cache_requests_total",
				Help: "Cache lookups by result",
			},
			[]string{"result"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "personstore_events_published_total",
				Help: "Domain events handed to publishers by outcome",
			},
			[]string{"outcome"},
		),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.OperationsTotal, m.OperationDuration, m.TransactionsTotal, m.CacheRequests, m.EventsPublished,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// RecordOperation records one facade operation.
func (m *Metrics) RecordOperation(operation string, backend datastore.Backend, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.OperationsTotal.WithLabelValues(operation, string(backend), outcome).Inc()
	m.OperationDuration.WithLabelValues(operation, string(backend)).Observe(elapsed.Seconds())
}

// TxObserver returns a datastore.TxObserver counting terminal transaction states.
func (m *Metrics) TxObserver() datastore.TxObserver {
	return func(backend datastore.Backend, state datastore.TxState) {
		if m == nil {
			return
		}
		m.TransactionsTotal.WithLabelValues(string(backend), state.String()).Inc()
	}
}

// RecordCache records a cache lookup result.
func (m *Metrics) RecordCache(result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(result).Inc()
}

// RecordPublish records a publish attempt.
func (m *Metrics) RecordPublish(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.EventsPublished.WithLabelValues(outcome).Inc()
}
