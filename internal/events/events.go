// Package events broadcasts job lifecycle events to an organization's
// channel so UIs can refresh. Delivery is best effort: a lost event never
// changes a job's outcome.
package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
	"github.com/alexanderksmi/doffin-hunter/internal/resilience"
)

// Publisher delivers an event to the organization's channel.
type Publisher interface {
	Publish(ctx context.Context, ev model.Event) error
}

// Channel is the Postgres and Redis channel name for an organization.
func Channel(orgID string) string {
	return "evaluations:" + orgID
}

// Subject is the NATS subject for an organization.
func Subject(orgID string) string {
	return "evaluations." + orgID
}

func encode(ev model.Event) ([]byte, error) {
	if ev.AffectedProfileIDs == nil {
		ev.AffectedProfileIDs = []string{}
	}
	data, err := json.Marshal(ev)
	return data, eris.Wrap(err, "events: encode")
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, model.Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev model.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BestEffort guards a publisher with a circuit breaker and swallows its
// errors after logging them.
type BestEffort struct {
	name    string
	inner   Publisher
	breaker *resilience.CircuitBreaker
}

// NewBestEffort wraps inner. The breaker is usually taken from a
// resilience.ServiceBreakers registry keyed by backend name.
func NewBestEffort(name string, inner Publisher, breaker *resilience.CircuitBreaker) *BestEffort {
	return &BestEffort{name: name, inner: inner, breaker: breaker}
}

func (b *BestEffort) Publish(ctx context.Context, ev model.Event) error {
	err := b.breaker.Execute(ctx, func(ctx context.Context) error {
		return b.inner.Publish(ctx, ev)
	})
	if err != nil {
		zap.L().Warn("event publish failed",
			zap.String("backend", b.name),
			zap.String("event", string(ev.Type)),
			zap.String("job_id", ev.JobID),
			zap.String("org_id", ev.OrganizationID),
			zap.Error(err),
		)
	}
	return nil
}
