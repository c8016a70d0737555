package events

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"

	"github.com/alexanderksmi/doffin-hunter/internal/model"
)

// natsConn is the subset of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subj string, data []byte) error
}

// NATSPublisher sends events to "evaluations.<org_id>".
type NATSPublisher struct {
	conn natsConn
}

// ConnectNATS dials url and returns the connection for use with NewNATS.
func ConnectNATS(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("doffin-hunter"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, eris.Wrapf(err, "events: connect to NATS at %s", url)
	}
	return nc, nil
}

func NewNATS(conn natsConn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

func (p *NATSPublisher) Publish(_ context.Context, ev model.Event) error {
	payload, err := encode(ev)
	if err != nil {
		return err
	}
	return eris.Wrapf(p.conn.Publish(Subject(ev.OrganizationID), payload), "events: nats publish %s", ev.Type)
}
