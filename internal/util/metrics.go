package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReceiptsUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_uploaded_total",
		Help: "Total number of receipt images uploaded",
	})

	ReceiptsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "receipts_processed_total",
		Help: "Total number of receipts processed, by outcome",
	}, []string{"outcome"})

	ReceiptsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "receipts_confirmed_total",
		Help: "Total number of receipts confirmed into inventory",
	})

	DuplicateReceiptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_receipts_total",
		Help: "Total number of uploads flagged as duplicates",
	})

	OCRLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocr_extraction_latency_seconds",
		Help:    "Latency of OCR extraction, by provider",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	InventoryItemsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_items_added_total",
		Help: "Total number of inventory items created",
	})

	InventoryItemsWastedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_items_wasted_total",
		Help: "Total number of inventory items marked wasted",
	})

	JobQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "receipt_job_queue_depth",
		Help: "Number of receipt jobs waiting for a worker",
	})
)
