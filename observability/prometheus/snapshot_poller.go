package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-fiber-jobs/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// StatsProvider provides current job system stats snapshots.
type StatsProvider interface {
	Stats() core.JobSystemStats
}

// SnapshotPoller periodically exports job system Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	systemsMu sync.RWMutex
	systems   map[string]StatsProvider

	fibers        *prom.GaugeVec
	threads       *prom.GaugeVec
	freeFibers    *prom.GaugeVec
	waitingFibers *prom.GaugeVec
	queuedJobs    *prom.GaugeVec
	jobsExecuted  *prom.GaugeVec
	fiberSwitches *prom.GaugeVec
	running       *prom.GaugeVec

	stateMu sync.Mutex
	stop    func()
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "fiberjobs",
			Name:      name,
			Help:      help,
		}, []string{"system"})
	}

	p := &SnapshotPoller{
		interval:      interval,
		systems:       make(map[string]StatsProvider),
		fibers:        gauge("fibers", "Fiber pool size."),
		threads:       gauge("threads", "Worker thread count."),
		freeFibers:    gauge("fibers_free", "Fibers flagged Free."),
		waitingFibers: gauge("fibers_waiting", "Fibers parked in Wait."),
		queuedJobs:    gauge("jobs_queued", "Jobs waiting in the job queue."),
		jobsExecuted:  gauge("jobs_executed", "Jobs executed snapshot."),
		fiberSwitches: gauge("fiber_switches", "Fiber switch count snapshot."),
		running:       gauge("running", "Job system running state (1=running, 0=stopped)."),
	}

	var err error
	for _, g := range []**prom.GaugeVec{
		&p.fibers, &p.threads, &p.freeFibers, &p.waitingFibers,
		&p.queuedJobs, &p.jobsExecuted, &p.fiberSwitches, &p.running,
	} {
		if *g, err = registerCollector(reg, *g); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// AddSystem adds or replaces a stats provider by name.
func (p *SnapshotPoller) AddSystem(name string, provider StatsProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "jobsystem")
	p.systemsMu.Lock()
	p.systems[name] = provider
	p.systemsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.stop != nil {
		return
	}

	pollCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.loop(pollCtx)
	}()
	p.stop = func() {
		cancel()
		<-done
	}
}

// Stop stops periodic polling and waits for the final collection; repeated
// calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	stop := p.stop
	p.stop = nil
	p.stateMu.Unlock()

	if stop != nil {
		stop()
	}
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.collectOnce()
		select {
		case <-ctx.Done():
			// Final snapshot so stopped systems report their last state.
			p.collectOnce()
			return
		case <-ticker.C:
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.systemsMu.RLock()
	defer p.systemsMu.RUnlock()

	for name, provider := range p.systems {
		stats := provider.Stats()
		p.fibers.WithLabelValues(name).Set(float64(stats.Fibers))
		p.threads.WithLabelValues(name).Set(float64(stats.Threads))
		p.freeFibers.WithLabelValues(name).Set(float64(stats.FreeFibers))
		p.waitingFibers.WithLabelValues(name).Set(float64(stats.WaitingFibers))
		p.queuedJobs.WithLabelValues(name).Set(float64(stats.QueuedJobs))
		p.jobsExecuted.WithLabelValues(name).Set(float64(stats.JobsExecuted))
		p.fiberSwitches.WithLabelValues(name).Set(float64(stats.FiberSwitches))
		if stats.Running {
			p.running.WithLabelValues(name).Set(1)
		} else {
			p.running.WithLabelValues(name).Set(0)
		}
	}
}
