package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_created_total",
		Help: "Total number of sales created",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of failed sale creations",
	}, []string{"reason"})

	SaleStatusFlipFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_status_flip_failed_total",
		Help: "Sales whose vehicle status side effect failed and was queued for reconciliation",
	})

	TradeInsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trade_ins_created_total",
		Help: "Total number of trade-in vehicles created",
	})

	VehicleStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_status_transitions_total",
		Help: "Applied vehicle status transitions",
	}, []string{"from", "to"})

	VehicleStatusTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vehicle_status_transitions_rejected_total",
		Help: "Rejected vehicle status transitions",
	}, []string{"from", "to"})

	ImagesUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "images_uploaded_total",
		Help: "Total number of vehicle images uploaded",
	})

	ImageUploadsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_uploads_failed_total",
		Help: "Total number of failed image uploads",
	}, []string{"reason"})

	BatchUploadFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batch_upload_fallback_total",
		Help: "Batch uploads that fell back to sequential mode",
	})

	ImageUploadLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_upload_latency_seconds",
		Help:    "Latency of single image uploads",
		Buckets: prometheus.DefBuckets,
	})

	ListingCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_cache_hits_total",
		Help: "Listing cache hits by scope",
	}, []string{"scope"})

	ListingCacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_cache_misses_total",
		Help: "Listing cache misses by scope",
	}, []string{"scope"})

	ListingCacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listing_cache_invalidations_total",
		Help: "Listing cache invalidations triggered by mutations",
	})

	ReconcileAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_reconcile_applied_total",
		Help: "Missed status flips re-applied by the reconcile worker",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
