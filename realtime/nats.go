package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSBridge publishes local events on "<subject>.<table>" and injects events
// published by other instances.
type NATSBridge struct {
	conn    *nats.Conn
	hub     *Hub
	subject string
	onError func(error)
}

func NewNATSBridge(url, subject string, hub *Hub, onError func(error)) (*NATSBridge, error) {
	conn, err := nats.Connect(url, nats.Name("restobar-"+hub.Origin()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &NATSBridge{conn: conn, hub: hub, subject: subject, onError: onError}, nil
}

func (b *NATSBridge) Run(ctx context.Context) error {
	sub, err := b.conn.Subscribe(b.subject+".>", func(msg *nats.Msg) {
		if e, ok := decodeRemote(b.hub, msg.Data); ok {
			b.hub.Inject(e)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	local := b.hub.Subscribe(localOnly(b.hub))
	defer local.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-local.C:
			if !ok {
				return nil
			}
			data, err := json.Marshal(e)
			if err != nil {
				b.onError(err)
				continue
			}
			if err := b.conn.Publish(b.subject+"."+e.Table, data); err != nil {
				b.onError(fmt.Errorf("publish %s: %w", e.Table, err))
			}
		}
	}
}

func (b *NATSBridge) Close() error {
	b.conn.Close()
	return nil
}
