package prometheus

import (
	"context"
	"testing"
	"time"

	"github.com/Swind/go-fiber-jobs/core"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type statsStub struct {
	stats core.JobSystemStats
}

func (s statsStub) Stats() core.JobSystemStats { return s.stats }

func TestSnapshotPoller_CollectsJobSystemStats(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	poller.AddSystem("render", statsStub{stats: core.JobSystemStats{
		Fibers:        16,
		Threads:       4,
		Running:       true,
		FreeFibers:    10,
		WaitingFibers: 2,
		QueuedJobs:    5,
		JobsExecuted:  42,
		FiberSwitches: 99,
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller.Start(ctx)
	defer poller.Stop()

	assertEventually(t, 2*time.Second, func() bool {
		fibers := testutil.ToFloat64(poller.fibers.WithLabelValues("render"))
		queued := testutil.ToFloat64(poller.queuedJobs.WithLabelValues("render"))
		return fibers == 16 && queued == 5
	})

	checks := []struct {
		name  string
		gauge *prom.GaugeVec
		want  float64
	}{
		{"threads", poller.threads, 4},
		{"free", poller.freeFibers, 10},
		{"waiting", poller.waitingFibers, 2},
		{"executed", poller.jobsExecuted, 42},
		{"switches", poller.fiberSwitches, 99},
		{"running", poller.running, 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.gauge.WithLabelValues("render")); got != c.want {
			t.Fatalf("%s gauge = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSnapshotPoller_StoppedSystemReportsNotRunning(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Hour)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	js, err := core.NewJobSystem(4, 1)
	if err != nil {
		t.Fatalf("NewJobSystem failed: %v", err)
	}
	poller.AddSystem("", js)

	poller.collectOnce()

	if got := testutil.ToFloat64(poller.running.WithLabelValues("jobsystem")); got != 0 {
		t.Fatalf("running gauge = %v, want 0", got)
	}
	if got := testutil.ToFloat64(poller.fibers.WithLabelValues("jobsystem")); got != 4 {
		t.Fatalf("fibers gauge = %v, want 4", got)
	}
}

func TestSnapshotPoller_StartStop_Idempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSnapshotPoller failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller.Start(ctx)
	poller.Start(ctx)
	poller.Stop()
	poller.Stop()
}

func assertEventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
