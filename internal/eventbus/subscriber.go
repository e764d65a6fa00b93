package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/dante-alpha-assistant/swarm-code/internal/orchestrator"
)

// Follow subscribes to subject and calls handle for every decoded event
// until ctx is done. Messages that do not decode are skipped.
func Follow(ctx context.Context, url, subject string, handle func(orchestrator.Event)) error {
	conn, err := nats.Connect(url, nats.Name("swarm-code-follow"), nats.Timeout(connectTimeout))
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer conn.Close()

	msgs := make(chan *nats.Msg, 64)
	sub, err := conn.ChanSubscribe(subject, msgs)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("flush subscription: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-msgs:
			var e orchestrator.Event
			if err := json.Unmarshal(msg.Data, &e); err != nil {
				continue
			}
			handle(e)
		}
	}
}
