package storage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for one engine.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec   // chunkvault_operations_total{operation,result}
	OperationDuration *prometheus.HistogramVec // chunkvault_operation_duration_seconds{operation}

	BytesUploaded   prometheus.Counter // chunkvault_bytes_uploaded_total
	BytesDownloaded prometheus.Counter // chunkvault_bytes_downloaded_total

	UsedBytes        prometheus.Gauge // chunkvault_used_bytes
	CapacityBytes    prometheus.Gauge // chunkvault_capacity_bytes
	Files            prometheus.Gauge // chunkvault_files
	RetainedVersions prometheus.Gauge // chunkvault_retained_versions
}

// NewMetrics registers the engine collectors with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "chunkvault_operations_total",
			Help: "Engine operations by name and result kind",
		}, []string{"operation", "result"}),

		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chunkvault_operation_duration_seconds",
			Help:    "Engine operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		BytesUploaded: f.NewCounter(prometheus.CounterOpts{
			Name: "chunkvault_bytes_uploaded_total",
			Help: "Content bytes accepted by upload and create_version",
		}),

		BytesDownloaded: f.NewCounter(prometheus.CounterOpts{
			Name: "chunkvault_bytes_downloaded_total",
			Help: "Content bytes returned by downloads and searches",
		}),

		UsedBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "chunkvault_used_bytes",
			Help: "Bytes committed across all retained versions",
		}),

		CapacityBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "chunkvault_capacity_bytes",
			Help: "Global storage capacity in bytes",
		}),

		Files: f.NewGauge(prometheus.GaugeOpts{
			Name: "chunkvault_files",
			Help: "Number of registered files",
		}),

		RetainedVersions: f.NewGauge(prometheus.GaugeOpts{
			Name: "chunkvault_retained_versions",
			Help: "Number of versions whose content is retained",
		}),
	}
}

func (m *Metrics) recordOperation(op string, err error, seconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	m.OperationsTotal.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) recordUpload(n int) {
	if m != nil {
		m.BytesUploaded.Add(float64(n))
	}
}

func (m *Metrics) recordDownload(n int) {
	if m != nil {
		m.BytesDownloaded.Add(float64(n))
	}
}

func (m *Metrics) updateState(used, capacity int64, files, versions int) {
	if m == nil {
		return
	}
	m.UsedBytes.Set(float64(used))
	m.CapacityBytes.Set(float64(capacity))
	m.Files.Set(float64(files))
	m.RetainedVersions.Set(float64(versions))
}
