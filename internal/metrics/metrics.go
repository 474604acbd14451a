package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autobot"

// Счётчики регистрируются в дефолтном реестре, который отдаёт
// pkg/metrics.PrometheusServer на /metrics.
//
//nolint:gochecknoglobals
var (
	ScrapeCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_cycles_total",
		Help:      "Завершённые циклы сканирования.",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_cycle_duration_seconds",
		Help:      "Длительность цикла сканирования.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	ListingsScraped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_scraped_total",
		Help:      "Объявления, полученные скрейперами.",
	}, []string{"source"})

	ListingsNew = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listings_new_total",
		Help:      "Объявления, впервые попавшие в базу.",
	})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Отправленные уведомления о сделках.",
	}, []string{"reason"})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Уведомления, которые не удалось отправить.",
	})

	FetchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_failures_total",
		Help:      "Загрузки страниц, исчерпавшие все попытки.",
	})

	ProxyPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "proxy_pool_size",
		Help:      "Текущий размер пула прокси.",
	})
)
