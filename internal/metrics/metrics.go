package metrics

import (
	"sync"
	"time"

	"catalog-import-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type importMetrics struct {
	batchesTotal  *prometheus.CounterVec
	recordsTotal  *prometheus.CounterVec
	productsTotal *prometheus.CounterVec
	validateTotal *prometheus.CounterVec

	batchDuration *prometheus.HistogramVec
}

var metricsSingleton = sync.OnceValue(func() *importMetrics {
	return &importMetrics{
		batchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog_import",
			Name:      "batches_total",
			Help:      "Total number of executed import batches by outcome.",
		}, []string{"status"}),
		recordsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog_import",
			Name:      "records_total",
			Help:      "Total number of imported category records by action.",
		}, []string{"action"}),
		productsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog_import",
			Name:      "products_total",
			Help:      "Total number of nested products processed by result.",
		}, []string{"result"}),
		validateTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "catalog_import",
			Name:      "validated_records_total",
			Help:      "Total number of records checked by the validate endpoint.",
		}, []string{"valid"}),
		batchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "catalog_import",
			Name:      "batch_duration_seconds",
			Help:      "Latency distribution for executed import batches.",
			Buckets: []float64{
				0.01, 0.05,
				0.1, 0.25, 0.5,
				1, 2.5, 5, 10, 30,
			},
		}, []string{"status"}),
	}
})

func getMetrics() *importMetrics {
	return metricsSingleton()
}

// ObserveBatch records an executed batch
func ObserveBatch(resp *models.ExecuteResponse, elapsed time.Duration) {
	m := getMetrics()
	status := string(resp.Summary.Status)
	m.batchesTotal.WithLabelValues(status).Inc()
	m.batchDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	for action, n := range resp.Summary.Counts {
		if n > 0 {
			m.recordsTotal.WithLabelValues(string(action)).Add(float64(n))
		}
	}
	if resp.Summary.ProductsImported > 0 {
		m.productsTotal.WithLabelValues("imported").Add(float64(resp.Summary.ProductsImported))
	}
	if resp.Summary.ProductsErrors > 0 {
		m.productsTotal.WithLabelValues("error").Add(float64(resp.Summary.ProductsErrors))
	}
}

// ObserveValidation records a validate call
func ObserveValidation(summary models.ValidationSummary) {
	m := getMetrics()
	m.validateTotal.WithLabelValues("true").Add(float64(summary.Valid))
	m.validateTotal.WithLabelValues("false").Add(float64(summary.Invalid))
}

// Handler exposes the default registry
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
