// Package relay shares broadcasts between gochat instances over NATS, so
// clients connected to different instances chat as if on one server.
package relay

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/logger"
)

// NATS publishes local broadcasts on a subject and hands messages published
// by other instances to a delivery callback. NoEcho keeps an instance from
// receiving its own publications.
type NATS struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
	log     *zap.Logger
}

// Dial connects to url. nodeID names the connection on the server.
func Dial(url, subject, nodeID string, log *zap.Logger) (*NATS, error) {
	log = logger.OrNop(log)

	conn, err := nats.Connect(url,
		nats.Name("gochat-"+nodeID),
		nats.NoEcho(),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "nats connect %s", url)
	}

	return &NATS{conn: conn, subject: subject, log: log}, nil
}

// Publish sends payload to the other instances.
func (r *NATS) Publish(_ context.Context, payload []byte) error {
	return errors.Wrap(r.conn.Publish(r.subject, payload), "nats publish")
}

// Subscribe starts delivering payloads from other instances to deliver.
func (r *NATS) Subscribe(deliver func(payload []byte)) error {
	sub, err := r.conn.Subscribe(r.subject, func(m *nats.Msg) {
		deliver(m.Data)
	})
	if err != nil {
		return errors.Wrapf(err, "nats subscribe %s", r.subject)
	}
	r.sub = sub
	r.log.Info("relay subscribed", zap.String("subject", r.subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (r *NATS) Close() error {
	return r.conn.Drain()
}
