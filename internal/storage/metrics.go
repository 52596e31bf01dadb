package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/talmud/media-service/internal/media"
)

// Observer captures telemetry for backend operations.
type Observer interface {
	RecordStore(class media.Class, duration time.Duration, sizeBytes int64, err error)
	RecordList(class media.Class, duration time.Duration, count int, err error)
	RecordDelete(class media.Class, duration time.Duration, err error)
}

// PrometheusObserver exports backend metrics to Prometheus.
type PrometheusObserver struct {
	duration    *prometheus.HistogramVec
	failures    *prometheus.CounterVec
	storedBytes *prometheus.CounterVec
	listed      *prometheus.GaugeVec
}

// NewPrometheusObserver registers the storage metrics on reg, reusing
// collectors that are already registered.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "media_storage"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of storage backend operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "class"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Count of failed storage backend operations.",
		}, []string{"operation", "class", "reason"}),
		storedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stored_bytes_total",
			Help:      "Cumulative payload size successfully stored.",
		}, []string{"class"}),
		listed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listed_objects",
			Help:      "Number of objects returned by the last listing.",
		}, []string{"class"}),
	}

	var err error
	if o.duration, err = register(reg, o.duration); err != nil {
		return nil, err
	}
	if o.failures, err = register(reg, o.failures); err != nil {
		return nil, err
	}
	if o.storedBytes, err = register(reg, o.storedBytes); err != nil {
		return nil, err
	}
	if o.listed, err = register(reg, o.listed); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register storage metric: %w", err)
	}
	return c, nil
}

// RecordStore tracks store duration, size, and failures.
func (o *PrometheusObserver) RecordStore(class media.Class, duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues("store", class.String()).Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues("store", class.String(), reason(err)).Inc()
		return
	}
	o.storedBytes.WithLabelValues(class.String()).Add(float64(sizeBytes))
}

func (o *PrometheusObserver) RecordList(class media.Class, duration time.Duration, count int, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues("list", class.String()).Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues("list", class.String(), reason(err)).Inc()
		return
	}
	o.listed.WithLabelValues(class.String()).Set(float64(count))
}

func (o *PrometheusObserver) RecordDelete(class media.Class, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues("delete", class.String()).Observe(duration.Seconds())
	if err != nil {
		o.failures.WithLabelValues("delete", class.String(), reason(err)).Inc()
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidIdentifier):
		return "invalid_identifier"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "backend"
}

type nopObserver struct{}

func (nopObserver) RecordStore(media.Class, time.Duration, int64, error) {}

func (nopObserver) RecordList(media.Class, time.Duration, int, error) {}

func (nopObserver) RecordDelete(media.Class, time.Duration, error) {}

// Instrument wraps s so that every call is reported to obs. A nil obs
// disables reporting.
func Instrument(s Storage, obs Observer) Storage {
	if obs == nil {
		obs = nopObserver{}
	}
	return &instrumented{Storage: s, obs: obs}
}

type instrumented struct {
	Storage
	obs Observer
}

func (i *instrumented) Store(ctx context.Context, in StoreInput, class media.Class) (*Object, error) {
	start := time.Now()
	obj, err := i.Storage.Store(ctx, in, class)
	var size int64
	if obj != nil {
		size = obj.Size
	}
	i.obs.RecordStore(class, time.Since(start), size, err)
	return obj, err
}

func (i *instrumented) List(ctx context.Context, class media.Class) ([]Object, error) {
	start := time.Now()
	objs, err := i.Storage.List(ctx, class)
	i.obs.RecordList(class, time.Since(start), len(objs), err)
	return objs, err
}

func (i *instrumented) Delete(ctx context.Context, id string, class media.Class) error {
	start := time.Now()
	err := i.Storage.Delete(ctx, id, class)
	i.obs.RecordDelete(class, time.Since(start), err)
	return err
}
