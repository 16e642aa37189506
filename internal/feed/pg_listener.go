package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// DefaultChannel is the Postgres NOTIFY channel written by the change triggers.
const DefaultChannel = "live_changes"

// PGListener turns Postgres notifications into hub changes.
type PGListener struct {
	databaseURL string
	channel     string
	target      Publisher
	logger      *zap.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewPGListener creates a listener on channel that publishes into target.
func NewPGListener(databaseURL, channel string, target Publisher, logger *zap.Logger) *PGListener {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGListener{
		databaseURL: databaseURL,
		channel:     channel,
		target:      target,
		logger:      logger.With(zap.String("component", "pg_listener"), zap.String("channel", channel)),
		minBackoff:  500 * time.Millisecond,
		maxBackoff:  30 * time.Second,
	}
}

// Run listens until ctx is cancelled, reconnecting with exponential backoff.
// After every reconnect a resync change is published because notifications
// sent while disconnected are lost.
func (l *PGListener) Run(ctx context.Context) error {
	backoff := l.minBackoff
	connected := false

	for {
		err := l.listen(ctx, func() {
			if connected {
				l.target.Publish(Change{Type: EventResync})
			}
			connected = true
			backoff = l.minBackoff
		})
		if ctx.Err() != nil {
			return nil
		}

		l.logger.Warn("listener disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, l.maxBackoff)
	}
}

func (l *PGListener) listen(ctx context.Context, onConnected func()) error {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	l.logger.Info("listening for changes")
	onConnected()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("failed waiting for notification: %w", err)
		}

		change, err := DecodeNotification([]byte(n.Payload))
		if err != nil {
			l.logger.Warn("skipping malformed notification", zap.Error(err))
			continue
		}
		l.target.Publish(change)
	}
}

// DecodeNotification parses a trigger payload into a Change.
func DecodeNotification(payload []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return Change{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	switch c.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return Change{}, fmt.Errorf("unknown change type %q", c.Type)
	}
	if c.Table == "" {
		return Change{}, fmt.Errorf("notification has no table")
	}
	return c, nil
}
