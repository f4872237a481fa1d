package prometheus

import (
	"errors"
	"fmt"
	"time"

	"github.com/Swind/go-fiber-jobs/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	jobDurationSeconds *prom.HistogramVec
	jobPanicTotal      *prom.CounterVec
	jobRejectedTotal   *prom.CounterVec
	queueDepth         prom.Gauge
	fiberSwitchTotal   prom.Counter
	waitTotal          *prom.CounterVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "fiberjobs"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.ExponentialBuckets(0.00001, 4, 10)
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Job execution duration in seconds, including time parked in Wait.",
		Buckets:   buckets,
	}, []string{"job"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "job_panic_total",
		Help:      "Total number of job panics.",
	}, []string{"job"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "job_rejected_total",
		Help:      "Total number of rejected jobs.",
	}, []string{"reason"})
	queueDepth := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Job queue depth after the last submission.",
	})
	switchTotal := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "fiber_switch_total",
		Help:      "Total number of thread handovers between fibers.",
	})
	waitVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "wait_total",
		Help:      "Total number of Wait calls by path (fast=already satisfied, slow=fiber yielded).",
	}, []string{"path"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepth, err = registerCollector(reg, queueDepth); err != nil {
		return nil, err
	}
	if switchTotal, err = registerCollector(reg, switchTotal); err != nil {
		return nil, err
	}
	if waitVec, err = registerCollector(reg, waitVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		jobDurationSeconds: durationVec,
		jobPanicTotal:      panicVec,
		jobRejectedTotal:   rejectedVec,
		queueDepth:         queueDepth,
		fiberSwitchTotal:   switchTotal,
		waitTotal:          waitVec,
	}, nil
}

// RecordJobDuration records job execution duration.
func (m *MetricsExporter) RecordJobDuration(jobName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDurationSeconds.WithLabelValues(normalizeLabel(jobName, "anonymous")).Observe(duration.Seconds())
}

// RecordJobPanic records job panic events.
func (m *MetricsExporter) RecordJobPanic(jobName string, panicInfo any) {
	if m == nil {
		return
	}
	m.jobPanicTotal.WithLabelValues(normalizeLabel(jobName, "anonymous")).Inc()
}

// RecordJobRejected records rejected jobs.
func (m *MetricsExporter) RecordJobRejected(count int, reason string) {
	if m == nil {
		return
	}
	m.jobRejectedTotal.WithLabelValues(normalizeLabel(reason, "unknown")).Add(float64(count))
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *MetricsExporter) RecordFiberSwitch() {
	if m == nil {
		return
	}
	m.fiberSwitchTotal.Inc()
}

func (m *MetricsExporter) RecordWait(fast bool) {
	if m == nil {
		return
	}
	m.waitTotal.WithLabelValues(waitPathLabel(fast)).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func waitPathLabel(fast bool) string {
	if fast {
		return "fast"
	}
	return "slow"
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
