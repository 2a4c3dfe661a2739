package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Decision metrics
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbot_decisions_total",
			Help: "Total number of evaluated decisions by action",
		},
		[]string{"symbol", "action"},
	)

	rejectedSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbot_rejected_signals_total",
			Help: "Entries that were not taken, by reason",
		},
		[]string{"symbol", "reason"},
	)

	// Trading metrics
	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbot_trades_total",
			Help: "Total number of committed entries and exits",
		},
		[]string{"symbol", "direction", "reason"},
	)

	tradeNotional = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trendbot_trade_notional",
			Help:    "Distribution of trade notionals",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
		[]string{"symbol"},
	)

	// Market and account metrics
	currentPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trendbot_current_price",
			Help: "Close of the last evaluated candle",
		},
		[]string{"symbol"},
	)

	equity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trendbot_equity",
			Help: "Account equity used for sizing",
		},
		[]string{"symbol"},
	)

	drawdown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trendbot_drawdown",
			Help: "Drawdown from the equity high-water mark",
		},
		[]string{"symbol"},
	)

	positionSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trendbot_position_size",
			Help: "Remaining size of the open position, signed by direction",
		},
		[]string{"symbol"},
	)

	// Strategy metrics
	strategyVolatility = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trendbot_strategy_volatility",
			Help: "Normalized ATR behind the current strategy parameters",
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbot_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(rejectedSignals)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeNotional)
	prometheus.MustRegister(currentPrice)
	prometheus.MustRegister(equity)
	prometheus.MustRegister(drawdown)
	prometheus.MustRegister(positionSize)
	prometheus.MustRegister(strategyVolatility)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct {
	handler http.Handler
}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{handler: promhttp.Handler()}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// RecordDecision counts an evaluated decision and, when no action was taken, its reason
func RecordDecision(symbol, action, rejected string) {
	decisionsTotal.WithLabelValues(symbol, action).Inc()
	if rejected != "" {
		rejectedSignals.WithLabelValues(symbol, rejected).Inc()
	}
}

// RecordTrade records a committed entry ("entry" reason) or exit
func RecordTrade(symbol, direction, reason string, notional float64) {
	tradesTotal.WithLabelValues(symbol, direction, reason).Inc()
	tradeNotional.WithLabelValues(symbol).Observe(notional)
}

func UpdatePrice(symbol string, price float64) {
	currentPrice.WithLabelValues(symbol).Set(price)
}

// UpdateAccount sets equity and drawdown gauges
func UpdateAccount(symbol string, eq, dd float64) {
	equity.WithLabelValues(symbol).Set(eq)
	drawdown.WithLabelValues(symbol).Set(dd)
}

func UpdatePosition(symbol string, signedSize float64) {
	positionSize.WithLabelValues(symbol).Set(signedSize)
}

func UpdateVolatility(symbol string, v float64) {
	strategyVolatility.WithLabelValues(symbol).Set(v)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
