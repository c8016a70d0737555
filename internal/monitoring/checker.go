package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alexanderksmi/doffin-hunter/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Checker periodically checks queue health and sends whatever alerts fire.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	log       *zap.Logger
}

// NewChecker wires a collector and an alerter. cfg.CheckInterval sets the
// period; zero or negative means every five minutes.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		log:       zap.L().With(zap.String("component", "monitoring")),
	}
}

// Run checks once right away and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	c.log.Info("queue health watch started", zap.Duration("interval", c.interval))
	defer c.log.Info("queue health watch stopped")

	next := time.NewTimer(0)
	defer next.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-next.C:
			// Failures are logged by Check; the watch keeps going.
			_, _ = c.Check(ctx)
			next.Reset(c.interval)
		}
	}
}

// Check takes one snapshot, evaluates it and sends the resulting alerts. It
// returns the alerts that fired, whether or not they were delivered.
func (c *Checker) Check(ctx context.Context) ([]Alert, error) {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		c.log.Error("queue health check failed", zap.Error(err))
		return nil, err
	}

	fired := c.alerter.Evaluate(snap)
	if len(fired) == 0 {
		c.log.Debug("queue healthy",
			zap.Int64("pending", snap.Pending),
			zap.Int64("dead_letter", snap.DeadLetter),
		)
		return nil, nil
	}

	delivered := c.alerter.SendAlerts(ctx, fired)
	c.log.Warn("queue health alerts fired",
		zap.Int("fired", len(fired)),
		zap.Int("delivered", delivered),
		zap.Int64("pending", snap.Pending),
		zap.Int64("dead_letter", snap.DeadLetter),
		zap.Duration("oldest_pending_age", snap.OldestPendingAge),
	)
	return fired, nil
}
