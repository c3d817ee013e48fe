package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PGListener injects row changes announced with NOTIFY on a Postgres channel.
// It covers writes made outside the service, such as maintenance scripts or
// triggers; payloads use the ChangeEvent JSON shape.
type PGListener struct {
	conn    *pgx.Conn
	hub     *Hub
	channel string
	onError func(error)
}

const pgOrigin = "postgres"

func NewPGListener(ctx context.Context, dsn, channel string, hub *Hub, onError func(error)) (*PGListener, error) {
	if channel == "" {
		return nil, errors.New("pg listener: channel is required")
	}
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg listener: connect: %w", err)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &PGListener{conn: conn, hub: hub, channel: channel, onError: onError}, nil
}

func (l *PGListener) Run(ctx context.Context) error {
	if _, err := l.conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("pg listener: listen %s: %w", l.channel, err)
	}
	for {
		n, err := l.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("pg listener: wait: %w", err)
		}
		e, ok := decodeRemote(l.hub, []byte(n.Payload))
		if !ok {
			l.onError(fmt.Errorf("pg listener: ignored payload on %s", n.Channel))
			continue
		}
		if e.Origin == "" {
			e.Origin = pgOrigin
		}
		l.hub.Inject(e)
	}
}

func (l *PGListener) Close() error {
	return l.conn.Close(context.Background())
}
