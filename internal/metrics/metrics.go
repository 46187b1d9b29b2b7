package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "dipper"

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Scrape endpoint metrics
	scrapesTotal    *prometheus.CounterVec
	scrapeDuration  prometheus.Histogram
	scrapesInFlight prometheus.Gauge

	// Backtest metrics
	ticksProcessed prometheus.Counter
	ordersTotal    *prometheus.CounterVec
	positionsOpen  prometheus.Gauge
	peakExposure   prometheus.Gauge
	lastPrice      prometheus.Gauge
	quoteBalance   prometheus.Gauge
	baseBalance    prometheus.Gauge
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		scrapesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scrapes_total",
				Help:      "Total number of metrics endpoint requests",
			},
			[]string{"status"},
		),
		scrapeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scrape_duration_seconds",
				Help:      "Metrics endpoint request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		scrapesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scrapes_in_flight",
				Help:      "Number of metrics endpoint requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.scrapesTotal)
	reg.MustRegister(r.scrapeDuration)
	reg.MustRegister(r.scrapesInFlight)

	r.ticksProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_processed_total",
			Help:      "Total number of ticks fed to the strategy engine",
		},
	)
	r.ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Total number of execution requests by side and outcome",
		},
		[]string{"side", "outcome"},
	)
	r.positionsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "positions_open",
			Help:      "Number of currently open positions",
		},
	)
	r.peakExposure = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_exposure",
			Help:      "Largest buy amount held at once during the current run",
		},
	)
	r.lastPrice = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price",
			Help:      "Price of the most recently processed tick",
		},
	)
	r.quoteBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "paper_quote_balance",
			Help:      "Quote currency held by the paper execution account",
		},
	)
	r.baseBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "paper_base_balance",
			Help:      "Base asset held by the paper execution account",
		},
	)
	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of backtest runs by final status",
		},
		[]string{"status"},
	)
	r.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	reg.MustRegister(r.ticksProcessed)
	reg.MustRegister(r.ordersTotal)
	reg.MustRegister(r.positionsOpen)
	reg.MustRegister(r.peakExposure)
	reg.MustRegister(r.lastPrice)
	reg.MustRegister(r.quoteBalance)
	reg.MustRegister(r.baseBalance)
	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)

	return r
}

// RecordScrape records metrics for a metrics endpoint request.
func (r *Registry) RecordScrape(status int, duration float64) {
	r.scrapesTotal.WithLabelValues(statusToString(status)).Inc()
	r.scrapeDuration.Observe(duration)
}

// InFlightInc increments in-flight scrapes.
func (r *Registry) InFlightInc() {
	r.scrapesInFlight.Inc()
}

// InFlightDec decrements in-flight scrapes.
func (r *Registry) InFlightDec() {
	r.scrapesInFlight.Dec()
}

// RecordTick records one processed tick and the state it left behind.
func (r *Registry) RecordTick(price, peak float64, openPositions int) {
	r.ticksProcessed.Inc()
	r.lastPrice.Set(price)
	r.peakExposure.Set(peak)
	r.positionsOpen.Set(float64(openPositions))
}

// RecordBalances records the paper account balances.
func (r *Registry) RecordBalances(quote, base float64) {
	r.quoteBalance.Set(quote)
	r.baseBalance.Set(base)
}

// RecordOrder records an execution request outcome.
func (r *Registry) RecordOrder(side, outcome string) {
	r.ordersTotal.WithLabelValues(side, outcome).Inc()
}

// RecordRun records a finished backtest run.
func (r *Registry) RecordRun(status string, duration float64) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(duration)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
