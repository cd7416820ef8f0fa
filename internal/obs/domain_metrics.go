package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// GatewayRequestsTotal counts upstream gateway calls by operation and outcome.
	GatewayRequestsTotal *prometheus.CounterVec
	// GatewayRequestDuration records upstream gateway latency in milliseconds.
	GatewayRequestDuration *prometheus.HistogramVec
	// LedgerWritesTotal counts order ledger writes by operation and outcome.
	LedgerWritesTotal *prometheus.CounterVec
	// RelayResponsesTotal counts envelopes written per route and status class.
	RelayResponsesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers relay specific collectors.
// Later calls are no-ops so tests and commands can call it freely.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		GatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Count of payment gateway calls by operation and result.",
		}, []string{"operation", "result"})
		GatewayRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_ms",
			Help:      "Payment gateway call latency in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"operation"})
		LedgerWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_writes_total",
			Help:      "Count of order ledger writes by operation and result.",
		}, []string{"operation", "result"})
		RelayResponsesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_responses_total",
			Help:      "Count of relay envelopes by route and outcome.",
		}, []string{"route", "outcome"})

		mustRegisterCollector(reg, GatewayRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				GatewayRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, GatewayRequestDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				GatewayRequestDuration = v
			}
		})
		mustRegisterCollector(reg, LedgerWritesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				LedgerWritesTotal = v
			}
		})
		mustRegisterCollector(reg, RelayResponsesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RelayResponsesTotal = v
			}
		})
	})
}

// ObserveLedgerWrite increments the ledger counter when metrics are registered.
func ObserveLedgerWrite(operation string, err error) {
	if LedgerWritesTotal == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	LedgerWritesTotal.WithLabelValues(operation, result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
