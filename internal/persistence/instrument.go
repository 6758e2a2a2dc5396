package persistence

import (
	"context"
	"time"

	"digitalroom/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Metrics holds the collectors recorded for every row store call.
type Metrics struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewMetrics creates the store collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "digitalroom",
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Row store calls by table, operation and outcome.",
		}, []string{"table", "op", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "digitalroom",
			Subsystem: "store",
			Name:      "operation_seconds",
			Help:      "Row store call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"table", "op"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.operations, m.durations} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// Observe records a store call outcome.
func (m *Metrics) Observe(table, op string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(table, op, status).Inc()
	m.durations.WithLabelValues(table, op).Observe(d.Seconds())
}

// Instrumented decorates a RowStore with metrics and debug logging.
type Instrumented struct {
	next    domain.RowStore
	metrics *Metrics
	logger  *zap.Logger
}

var _ domain.RowStore = (*Instrumented)(nil)

// Instrument wraps next. A nil logger disables logging.
func Instrument(next domain.RowStore, metrics *Metrics, logger *zap.Logger) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{next: next, metrics: metrics, logger: logger}
}

func (s *Instrumented) observe(table, op string, start time.Time, err error) {
	d := time.Since(start)
	if s.metrics != nil {
		s.metrics.Observe(table, op, err, d)
	}
	if err != nil {
		s.logger.Warn("store call failed", zap.String("table", table), zap.String("op", op), zap.Duration("took", d), zap.Error(err))
		return
	}
	s.logger.Debug("store call", zap.String("table", table), zap.String("op", op), zap.Duration("took", d))
}

func (s *Instrumented) Select(ctx context.Context, table string, q domain.Query) ([]domain.Record, error) {
	start := time.Now()
	rows, err := s.next.Select(ctx, table, q)
	s.observe(table, "select", start, err)
	return rows, err
}

func (s *Instrumented) Insert(ctx context.Context, table string, values map[string]any) (domain.Record, error) {
	start := time.Now()
	r, err := s.next.Insert(ctx, table, values)
	s.observe(table, "insert", start, err)
	return r, err
}

func (s *Instrumented) Update(ctx context.Context, table string, id domain.ID, patch map[string]any) (domain.Record, error) {
	start := time.Now()
	r, err := s.next.Update(ctx, table, id, patch)
	s.observe(table, "update", start, err)
	return r, err
}

func (s *Instrumented) Delete(ctx context.Context, table string, id domain.ID) error {
	start := time.Now()
	err := s.next.Delete(ctx, table, id)
	s.observe(table, "delete", start, err)
	return err
}
