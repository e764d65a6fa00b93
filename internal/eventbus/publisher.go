// Package eventbus publishes run events to NATS and follows them from
// other processes.
package eventbus

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dante-alpha-assistant/swarm-code/internal/logging"
	"github.com/dante-alpha-assistant/swarm-code/internal/orchestrator"
)

// connectTimeout bounds the initial connection attempt.
const connectTimeout = 5 * time.Second

// Publisher is an orchestrator.EventSink that publishes every event as JSON
// on the run's subject. Publishing never blocks the run: failures are
// counted and logged.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	log    *logging.Logger
	failed atomic.Uint64
}

var _ orchestrator.EventSink = (*Publisher)(nil)

// Connect opens a connection to the NATS server at url.
func Connect(url, prefix string, logger *logging.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	conn, err := nats.Connect(url,
		nats.Name("swarm-code"),
		nats.Timeout(connectTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{conn: conn, prefix: prefix, log: logger.WithComponent("eventbus")}, nil
}

// Emit publishes e on its run subject.
func (p *Publisher) Emit(e orchestrator.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		p.fail(e, err)
		return
	}
	if err := p.conn.Publish(RunSubject(p.prefix, e.RunID), data); err != nil {
		p.fail(e, err)
	}
}

func (p *Publisher) fail(e orchestrator.Event, err error) {
	n := p.failed.Add(1)
	if n%10 == 1 {
		p.log.Warn("event publish failed", "type", string(e.Type), "failed", n, "error", err)
	}
}

// Failed returns the number of events that could not be published.
func (p *Publisher) Failed() uint64 {
	return p.failed.Load()
}

// Close flushes pending events and closes the connection.
func (p *Publisher) Close() error {
	err := p.conn.Flush()
	p.conn.Close()
	return err
}
