// Package monitoring watches the job queue and alerts operators when jobs
// pile up in the dead letter state or wait too long to be claimed.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/alexanderksmi/doffin-hunter/internal/store"
)

// Snapshot holds a point-in-time view of queue health.
type Snapshot struct {
	Pending    int64 `json:"pending"`
	Running    int64 `json:"running"`
	Completed  int64 `json:"completed"`
	DeadLetter int64 `json:"dead_letter"`

	// OldestPendingAge is zero when nothing is pending.
	OldestPendingAge time.Duration `json:"oldest_pending_age"`
	CollectedAt      time.Time     `json:"collected_at"`
}

// StatsSource provides queue counters.
type StatsSource interface {
	QueueStats(ctx context.Context) (store.QueueStats, error)
}

// Collector gathers queue health from the job store.
type Collector struct {
	source StatsSource
	now    func() time.Time
}

// NewCollector creates a new queue health collector.
func NewCollector(src StatsSource) *Collector {
	return &Collector{source: src, now: func() time.Time { return time.Now().UTC() }}
}

// Collect gathers a snapshot of the queue.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	stats, err := c.source.QueueStats(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: queue stats")
	}

	now := c.now()
	snap := &Snapshot{
		Pending:     stats.Pending,
		Running:     stats.Running,
		Completed:   stats.Completed,
		DeadLetter:  stats.DeadLetter,
		CollectedAt: now,
	}
	if stats.OldestPending != nil && stats.OldestPending.Before(now) {
		snap.OldestPendingAge = now.Sub(*stats.OldestPending)
	}
	return snap, nil
}
