package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "flood_"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultPanic   = "panic"
)

var (
	registerOnce sync.Once

	cyclesTotal    *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	cyclesSkipped  *prometheus.CounterVec
	providerTotal  *prometheus.CounterVec
	readingsTotal  *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	subscribers    prometheus.Gauge
	alertsActive   prometheus.Counter
	snapshotsTotal *prometheus.CounterVec
)

// Init registers the collectors with the default registry. Safe to call
// more than once; recording helpers are no-ops until it has run.
func Init() {
	registerOnce.Do(func() {
		cyclesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_total",
				Help: "Scheduled cycles by task and result",
			},
			[]string{"task", "result"},
		)
		cycleDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cycle_duration_seconds",
				Help:    "Scheduled cycle duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"task"},
		)
		cyclesSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_skipped_total",
				Help: "Ticks skipped because the previous cycle was still running",
			},
			[]string{"task"},
		)
		providerTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "provider_requests_total",
				Help: "ThingSpeak requests by endpoint and result",
			},
			[]string{"endpoint", "result"},
		)
		readingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_persisted_total",
				Help: "Reading appends by result (stored, duplicate, error)",
			},
			[]string{"result"},
		)
		notifications = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notification dispatches by channel and result",
			},
			[]string{"channel", "result"},
		)
		subscribers = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "realtime_subscribers",
				Help: "Connected websocket subscribers",
			},
		)
		alertsActive = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_triggered_total",
				Help: "Alert cycles that found the indicator active",
			},
		)
		snapshotsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "snapshot_devices_total",
				Help: "Devices included in broadcasts by outcome",
			},
			[]string{"outcome"},
		)

		prometheus.MustRegister(
			cyclesTotal,
			cycleDuration,
			cyclesSkipped,
			providerTotal,
			readingsTotal,
			notifications,
			subscribers,
			alertsActive,
			snapshotsTotal,
		)
	})
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCycle records one finished scheduler cycle.
func ObserveCycle(task, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if cyclesTotal != nil {
		cyclesTotal.WithLabelValues(task, result).Inc()
	}
	if cycleDuration != nil {
		cycleDuration.WithLabelValues(task).Observe(duration.Seconds())
	}
}

// IncCycleSkipped counts a tick dropped by the overlap guard.
func IncCycleSkipped(task string) {
	if cyclesSkipped != nil {
		cyclesSkipped.WithLabelValues(task).Inc()
	}
}

// ObserveProviderRequest counts one ThingSpeak HTTP attempt.
func ObserveProviderRequest(endpoint, result string) {
	if providerTotal != nil {
		providerTotal.WithLabelValues(endpoint, result).Inc()
	}
}

// IncReadingPersisted counts a reading append outcome.
func IncReadingPersisted(result string) {
	if readingsTotal != nil {
		readingsTotal.WithLabelValues(result).Inc()
	}
}

// IncNotification counts one dispatch on a channel.
func IncNotification(channel, result string) {
	if notifications != nil {
		notifications.WithLabelValues(channel, result).Inc()
	}
}

// SetSubscribers sets the live subscriber gauge.
func SetSubscribers(n int) {
	if subscribers != nil {
		subscribers.Set(float64(n))
	}
}

func IncAlertTriggered() {
	if alertsActive != nil {
		alertsActive.Inc()
	}
}

// AddSnapshotDevices counts broadcast entries by outcome (data, no_data, fetch_failed).
func AddSnapshotDevices(outcome string, n int) {
	if n <= 0 {
		return
	}
	if snapshotsTotal != nil {
		snapshotsTotal.WithLabelValues(outcome).Add(float64(n))
	}
}
