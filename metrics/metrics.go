// Package metrics exposes the engine's Prometheus collectors. Everything
// is registered on the default registry; serve it with promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratengine",
		Name:      "ticks_processed_total",
		Help:      "Market data ticks ingested, by symbol and timeframe.",
	}, []string{"symbol", "timeframe"})

	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratengine",
		Name:      "orders_submitted_total",
		Help:      "Orders handed to the execution dispatcher, by symbol and side.",
	}, []string{"symbol", "side"})

	OrderRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratengine",
		Name:      "order_rejections_total",
		Help:      "Orders refused by the venue, by symbol.",
	}, []string{"symbol"})

	SizingRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stratengine",
		Name:      "sizing_rejections_total",
		Help:      "Trade intents dropped at sizing, by reason.",
	}, []string{"reason"})

	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stratengine",
		Name:      "condition_parse_failures_total",
		Help:      "Strategy submissions rejected for unparseable conditions.",
	})

	OpenPositions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "stratengine",
		Name:      "open_positions",
		Help:      "Currently open positions, by strategy.",
	}, []string{"strategy"})

	AccountEquity = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stratengine",
		Name:      "account_equity",
		Help:      "Total account equity including realized P/L.",
	})

	AccountReserved = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stratengine",
		Name:      "account_reserved",
		Help:      "Equity reserved against open positions.",
	})

	ActiveStrategies = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stratengine",
		Name:      "active_strategies",
		Help:      "Strategies currently receiving ticks.",
	})
)
