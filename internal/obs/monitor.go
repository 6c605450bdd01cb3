package obs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"

	"tradeflow/internal/clock"
)

const defaultMonitorInterval = 15 * time.Second

// Report is what the monitor publishes on each tick.
type Report struct {
	Seq        uint64    `json:"seq"`
	At         time.Time `json:"at"`
	QueueDepth int       `json:"queueDepth"`
	QueueCap   int       `json:"queueCap"`
	Snapshot
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	Interval time.Duration
	// Depth reports the current and maximum depth of the hand-off channel.
	Depth func() (depth, capacity int)
	Clock clock.Clock
}

// Monitor periodically reports throughput and queue depth. It only reads
// atomics and never blocks the workers.
type Monitor struct {
	metrics *Metrics
	cfg     MonitorConfig
	seq     *Sequence
	last    atomic.Pointer[Report]
}

func NewMonitor(metrics *Metrics, cfg MonitorConfig) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultMonitorInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	return &Monitor{metrics: metrics, cfg: cfg, seq: NewSequence(0)}
}

// Run emits a report every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Report()
			return nil
		case <-ticker.C:
			m.Report()
		}
	}
}

// Report builds, logs and stores a report.
func (m *Monitor) Report() Report {
	r := m.Collect()
	m.last.Store(&r)
	logs.Infof("monitor: processed=%d done=%d failed=%d throughput=%.2f/s queue=%d/%d latency.avg=%s latency.max=%s",
		r.Processed, r.Done, r.Failed, r.Throughput, r.QueueDepth, r.QueueCap,
		r.PipelineLatency.Avg, r.PipelineLatency.Max)
	return r
}

// Collect builds a report without logging it.
func (m *Monitor) Collect() Report {
	now := m.cfg.Clock.Now()
	r := Report{
		Seq:      m.seq.Next(),
		At:       now,
		Snapshot: m.metrics.Snapshot(now),
	}
	if m.cfg.Depth != nil {
		r.QueueDepth, r.QueueCap = m.cfg.Depth()
	}
	return r
}

// Last returns the most recent report, if any.
func (m *Monitor) Last() (Report, bool) {
	r := m.last.Load()
	if r == nil {
		return Report{}, false
	}
	return *r, true
}
