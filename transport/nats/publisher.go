// Package nats publishes game lifecycle events to a NATS server so other
// services can follow games without holding a WebSocket.
//
// Events are JSON encoded service.LifecycleEvent values published on
// "<prefix>.<kind>", for example "battleship.match_made".
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	natsgo "github.com/nats-io/nats.go"

	"github.com/wricardo/mcp-training/battleship/game/service"
)

// DefaultSubjectPrefix is used when no prefix is configured
const DefaultSubjectPrefix = "battleship"

// conn is the part of *natsgo.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher implements service.Publisher on top of a NATS connection
type Publisher struct {
	conn   conn
	prefix string
	logger hclog.Logger
}

var _ service.Publisher = (*Publisher)(nil)

// Connect dials the NATS server at url. The connection reconnects forever;
// events published while disconnected are buffered by the client.
func Connect(url, prefix string, logger hclog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	nc, err := natsgo.Connect(url,
		natsgo.Name("battleship-server"),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}

	logger.Info("connected to nats", "url", nc.ConnectedUrl(), "prefix", prefix)
	return newPublisher(nc, prefix, logger), nil
}

func newPublisher(c conn, prefix string, logger hclog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Publisher{conn: c, prefix: prefix, logger: logger}
}

// Subject returns the subject an event kind is published on
func (p *Publisher) Subject(kind service.LifecycleKind) string {
	return p.prefix + "." + string(kind)
}

// Publish encodes ev and publishes it
func (p *Publisher) Publish(ctx context.Context, ev service.LifecycleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Kind, err)
	}

	subject := p.Subject(ev.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.logger.Trace("published", "subject", subject, "session", ev.SessionID)
	return nil
}

// Close flushes pending events and closes the connection
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
