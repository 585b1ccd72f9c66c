// internal/utils/metrics/collector.go
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rovshanmuradov/swap-router/internal/types"
)

// MetricType представляет тип метрики
type MetricType string

const (
	OperationCounterType  MetricType = "operation_counter"
	OperationDurationType MetricType = "operation_duration"
	InFlightType          MetricType = "in_flight"
	RPCLatencyType        MetricType = "rpc_latency"
	PoolCountType         MetricType = "pool_count"
)

const namespace = "swap_router"

var _ types.Observer = (*Collector)(nil)

// Collector управляет набором метрик и реализует types.Observer.
type Collector struct {
	metrics  sync.Map
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inFlight   *prometheus.GaugeVec
	rpcLatency *prometheus.HistogramVec
	pools      *prometheus.GaugeVec
}

// NewCollector регистрирует метрики в собственном реестре.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of operations by outcome",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Operation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"operation"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "operations_in_flight",
				Help:      "Operations currently running",
			},
			[]string{"operation"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "endpoint"},
		),
		pools: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_pools",
				Help:      "Pools known to the registry by venue",
			},
			[]string{"venue"},
		),
	}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		OperationCounterType:  c.operations,
		OperationDurationType: c.duration,
		InFlightType:          c.inFlight,
		RPCLatencyType:        c.rpcLatency,
		PoolCountType:         c.pools,
	}
	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
}

// Registry отдаёт реестр для HTTP-экспорта.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

type span struct {
	c     *Collector
	ctx   context.Context
	name  string
	start time.Time
	once  sync.Once
}

func (c *Collector) Start(ctx context.Context, name string) (context.Context, types.Span) {
	c.inFlight.WithLabelValues(name).Inc()
	return ctx, &span{c: c, ctx: ctx, name: name, start: time.Now()}
}

func (s *span) End(err error) {
	s.once.Do(func() {
		s.c.inFlight.WithLabelValues(s.name).Dec()
		s.c.RecordOperation(s.ctx, s.name, time.Since(s.start), err)
	})
}
