package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SubjectPrefix is prepended to the table name to form a NATS subject.
const SubjectPrefix = "live."

// originHeader carries the publishing instance id so a bridge can skip its
// own messages when they come back from the server.
const originHeader = "Live-Origin"

// Subject returns the NATS subject for changes on table.
func Subject(table string) string {
	if table == "" {
		return SubjectPrefix + "_"
	}
	return SubjectPrefix + table
}

// NATSBridge shares changes between server instances. Changes published on
// the bridge are delivered to the local hub immediately and forwarded to
// NATS; changes from other instances are republished into the local hub.
type NATSBridge struct {
	conn   *nats.Conn
	local  Publisher
	origin string
	logger *zap.Logger
}

// ConnectNATS dials url and wraps the connection in a bridge that delivers
// into local.
func ConnectNATS(url string, local Publisher, logger *zap.Logger) (*NATSBridge, error) {
	conn, err := nats.Connect(url,
		nats.Name("resume-live"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNATSBridge(conn, local, logger), nil
}

// NewNATSBridge wraps an existing connection.
func NewNATSBridge(conn *nats.Conn, local Publisher, logger *zap.Logger) *NATSBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	origin := uuid.NewString()
	return &NATSBridge{
		conn:   conn,
		local:  local,
		origin: origin,
		logger: logger.With(zap.String("component", "nats_bridge"), zap.String("origin", origin)),
	}
}

// Origin returns the id stamped on messages from this instance.
func (b *NATSBridge) Origin() string {
	return b.origin
}

// Publish delivers c locally and forwards it to the other instances.
func (b *NATSBridge) Publish(c Change) {
	b.local.Publish(c)

	msg, err := b.encode(c)
	if err != nil {
		b.logger.Error("failed to encode change", zap.Error(err))
		return
	}
	if err := b.conn.PublishMsg(msg); err != nil {
		b.logger.Warn("failed to forward change", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func (b *NATSBridge) encode(c Change) (*nats.Msg, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	msg := nats.NewMsg(Subject(c.Table))
	msg.Header.Set(originHeader, b.origin)
	msg.Data = data
	return msg, nil
}

// Run subscribes to every change subject and republishes remote changes into
// the local hub until ctx is cancelled. A reconnect publishes a resync.
func (b *NATSBridge) Run(ctx context.Context) error {
	b.conn.SetReconnectHandler(func(*nats.Conn) {
		b.logger.Info("reconnected to nats")
		b.local.Publish(Change{Type: EventResync})
	})

	sub, err := b.conn.Subscribe(SubjectPrefix+">", b.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Debug("unsubscribe failed", zap.Error(err))
		}
	}()
	b.logger.Info("bridging changes", zap.String("subject", SubjectPrefix+">"))

	<-ctx.Done()
	return nil
}

func (b *NATSBridge) handle(msg *nats.Msg) {
	if msg.Header.Get(originHeader) == b.origin {
		return
	}
	var c Change
	if err := json.Unmarshal(msg.Data, &c); err != nil {
		b.logger.Warn("skipping malformed change", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	if c.Table == "" {
		c.Table = strings.TrimPrefix(msg.Subject, SubjectPrefix)
	}
	b.local.Publish(c)
}

// Close drains the connection.
func (b *NATSBridge) Close() error {
	return b.conn.Drain()
}
