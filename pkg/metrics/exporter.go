package metrics

import (
	"errors"
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/kubev2v/engine-scheduler/pkg/scheduler"
)

const defaultNamespace = "engine"

type ExporterOptions struct {
	DurationBuckets []float64
}

// Exporter publishes scheduler events as Prometheus metrics.
type Exporter struct {
	scheduler string

	taskDurationSeconds *prom.HistogramVec
	taskPanicTotal      *prom.CounterVec
	taskFailedTotal     *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	queueDepth          *prom.GaugeVec
}

var _ scheduler.Observer = (*Exporter)(nil)

// NewExporter creates and registers the collectors. Collectors that are
// already registered under the same name are reused.
func NewExporter(namespace, schedulerName string, reg prom.Registerer, opts ExporterOptions) (*Exporter, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"scheduler", "outcome"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"scheduler"})
	failedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_failed_total",
		Help:      "Total number of tasks that returned an error.",
	}, []string{"scheduler"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected tasks.",
	}, []string{"scheduler", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of queued tasks.",
	}, []string{"scheduler"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if failedVec, err = registerCollector(reg, failedVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &Exporter{
		scheduler:           normalizeLabel(schedulerName, "unknown"),
		taskDurationSeconds: durationVec,
		taskPanicTotal:      panicVec,
		taskFailedTotal:     failedVec,
		taskRejectedTotal:   rejectedVec,
		queueDepth:          queueDepthVec,
	}, nil
}

func (e *Exporter) TaskFinished(rec scheduler.TaskRecord) {
	if e == nil {
		return
	}
	e.taskDurationSeconds.WithLabelValues(e.scheduler, outcomeLabel(rec)).Observe(rec.Duration().Seconds())
	switch {
	case rec.Panicked:
		e.taskPanicTotal.WithLabelValues(e.scheduler).Inc()
	case rec.Err != nil:
		e.taskFailedTotal.WithLabelValues(e.scheduler).Inc()
	}
}

func (e *Exporter) TaskRejected(reason string) {
	if e == nil {
		return
	}
	e.taskRejectedTotal.WithLabelValues(e.scheduler, normalizeLabel(reason, "unknown")).Inc()
}

func (e *Exporter) QueueDepth(depth int) {
	if e == nil {
		return
	}
	e.queueDepth.WithLabelValues(e.scheduler).Set(float64(depth))
}

func outcomeLabel(rec scheduler.TaskRecord) string {
	switch {
	case rec.Panicked:
		return "panic"
	case rec.Err != nil:
		return "error"
	default:
		return "success"
	}
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
