package obs

import (
	"sync/atomic"
	"time"

	"tradeflow/internal/model/enum"
)

// FailureReason classifies why a trade ended FAILED.
type FailureReason uint8

const (
	FailureNone FailureReason = iota
	FailureValidation
	FailureEnrichment
	FailurePersistence
	FailurePanic
	_failure_end
)

func (r FailureReason) String() string {
	switch r {
	case FailureValidation:
		return "validation"
	case FailureEnrichment:
		return "enrichment"
	case FailurePersistence:
		return "persistence"
	case FailurePanic:
		return "panic"
	default:
		return "none"
	}
}

// Metrics collects pipeline counters and latency stats. Safe for concurrent use.
type Metrics struct {
	startedAt time.Time

	processed    uint64
	done         uint64
	failed       uint64
	reasonCounts [_failure_end]uint64

	pipelineLatency LatencyStats
	enrichLatency   LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Processed       uint64            `json:"processed"`
	Done            uint64            `json:"done"`
	Failed          uint64            `json:"failed"`
	FailureReasons  map[string]uint64 `json:"failureReasons"`
	Elapsed         time.Duration     `json:"elapsed"`
	Throughput      float64           `json:"throughputPerSec"`
	PipelineLatency LatencySnapshot   `json:"pipelineLatency"`
	EnrichLatency   LatencySnapshot   `json:"enrichLatency"`
}

// NewMetrics allocates a metrics container whose throughput is measured from startedAt.
func NewMetrics(startedAt time.Time) *Metrics {
	return &Metrics{startedAt: startedAt}
}

// ObserveTrade records a trade that reached a terminal status.
func (m *Metrics) ObserveTrade(status enum.Status, reason FailureReason, latency time.Duration) {
	if m == nil || !status.IsTerminal() {
		return
	}
	atomic.AddUint64(&m.processed, 1)
	switch status {
	case enum.StatusDone:
		atomic.AddUint64(&m.done, 1)
	case enum.StatusFailed:
		atomic.AddUint64(&m.failed, 1)
		if reason > FailureNone && reason < _failure_end {
			atomic.AddUint64(&m.reasonCounts[reason], 1)
		}
	}
	m.pipelineLatency.Observe(latency)
}

// ObserveEnrichment measures one rate lookup.
func (m *Metrics) ObserveEnrichment(d time.Duration) {
	if m == nil {
		return
	}
	m.enrichLatency.Observe(d)
}

// Processed returns the number of trades that reached a terminal status.
func (m *Metrics) Processed() uint64 {
	if m == nil {
		return 0
	}
	return atomic.LoadUint64(&m.processed)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot(now time.Time) Snapshot {
	if m == nil {
		return Snapshot{}
	}
	reasons := make(map[string]uint64)
	for i := range m.reasonCounts {
		if v := atomic.LoadUint64(&m.reasonCounts[i]); v > 0 {
			reasons[FailureReason(i).String()] = v
		}
	}
	processed := atomic.LoadUint64(&m.processed)
	elapsed := now.Sub(m.startedAt)
	var throughput float64
	if elapsed > 0 {
		throughput = float64(processed) / elapsed.Seconds()
	}
	return Snapshot{
		Processed:       processed,
		Done:            atomic.LoadUint64(&m.done),
		Failed:          atomic.LoadUint64(&m.failed),
		FailureReasons:  reasons,
		Elapsed:         elapsed,
		Throughput:      throughput,
		PipelineLatency: m.pipelineLatency.Snapshot(),
		EnrichLatency:   m.enrichLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(sum / count),
	}
}
