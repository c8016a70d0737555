package events

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

// Execer runs a statement. db.Pool and pgx.Tx satisfy it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresPublisher sends events with pg_notify; listeners use
// LISTEN "evaluations:<org_id>".
type PostgresPublisher struct {
	db Execer
}

func NewPostgres(db Execer) *PostgresPublisher {
	return &PostgresPublisher{db: db}
}

func (p *PostgresPublisher) Publish(ctx context.Context, ev model.Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	_, err = p.db.Exec(ctx, "SELECT pg_notify($1, $2)", Channel(ev.OrganizationID), string(payload))
	return eris.Wrapf(err, "events: pg_notify %s", ev.Type)
}
