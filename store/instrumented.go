package store

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Compile-time interface check.
var _ Backend = (*InstrumentedBackend)(nil)

// InstrumentedBackend records the count, outcome and latency of every
// operation of the backend it wraps.
type InstrumentedBackend struct {
	next     Backend
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Instrument wraps backend with Prometheus metrics registered on reg:
//
//	odm_backend_operations_total{backend, op, status}
//	odm_backend_operation_duration_seconds{backend, op}
//
// Instrumenting several backends against one registry shares the collectors.
func Instrument(backend Backend, reg prometheus.Registerer) (*InstrumentedBackend, error) {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odm_backend_operations_total",
			Help: "Total number of document backend operations",
		},
		[]string{"backend", "op", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odm_backend_operation_duration_seconds",
			Help:    "Document backend operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	var err error
	if ops, err = register(reg, ops); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &InstrumentedBackend{next: backend, ops: ops, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (b *InstrumentedBackend) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case isNotFound(err):
		status = "not_found"
	default:
		status = "error"
	}
	name := b.next.Name()
	b.ops.WithLabelValues(name, op, status).Inc()
	b.duration.WithLabelValues(name, op).Observe(time.Since(start).Seconds())
}

// Unwrap returns the instrumented backend.
func (b *InstrumentedBackend) Unwrap() Backend { return b.next }

func (b *InstrumentedBackend) Name() string { return b.next.Name() }

func (b *InstrumentedBackend) Get(ctx context.Context, collection, id string) (fields map[string]any, err error) {
	defer func(start time.Time) { b.observe("get", start, err) }(time.Now())
	return b.next.Get(ctx, collection, id)
}

func (b *InstrumentedBackend) Put(ctx context.Context, collection, id string, fields map[string]any) (err error) {
	defer func(start time.Time) { b.observe("put", start, err) }(time.Now())
	return b.next.Put(ctx, collection, id, fields)
}

func (b *InstrumentedBackend) Delete(ctx context.Context, collection, id string) (err error) {
	defer func(start time.Time) { b.observe("delete", start, err) }(time.Now())
	return b.next.Delete(ctx, collection, id)
}

func (b *InstrumentedBackend) List(ctx context.Context, collection string) (docs []Document, err error) {
	defer func(start time.Time) { b.observe("list", start, err) }(time.Now())
	return b.next.List(ctx, collection)
}

func (b *InstrumentedBackend) Close() error {
	return b.next.Close()
}
