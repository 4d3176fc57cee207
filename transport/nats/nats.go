// Package nats provides the NATS broker transport for hivewire.
package nats

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	natsio "github.com/nats-io/nats.go"

	"github.com/drblury/hivewire/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// inboxBuffer bounds the shared inbound frame channel. Frames beyond it are
// held by the nats client until drained.
const inboxBuffer = 256

// Subscription is the slice of the nats subscription API the transport uses.
type Subscription interface {
	Unsubscribe() error
}

// Conn is the slice of the nats connection API the transport uses. Kept as
// an interface so tests can substitute a fake broker.
type Conn interface {
	ChanSubscribe(subject string, ch chan *natsio.Msg) (Subscription, error)
	PublishRequest(subject, reply string, data []byte) error
	Publish(subject string, data []byte) error
	IsConnected() bool
	ConnectedUrl() string
	Stats() natsio.Statistics
	Close()
}

// ConnFactory allows overriding connection establishment for testing.
var ConnFactory = func(url string, opts ...natsio.Option) (Conn, error) {
	conn, err := natsio.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &natsConn{conn: conn}, nil
}

type natsConn struct {
	conn *natsio.Conn
}

func (c *natsConn) ChanSubscribe(subject string, ch chan *natsio.Msg) (Subscription, error) {
	return c.conn.ChanSubscribe(subject, ch)
}

func (c *natsConn) PublishRequest(subject, reply string, data []byte) error {
	return c.conn.PublishRequest(subject, reply, data)
}

func (c *natsConn) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

func (c *natsConn) IsConnected() bool { return c.conn.IsConnected() }

func (c *natsConn) ConnectedUrl() string { return c.conn.ConnectedUrl() }

func (c *natsConn) Stats() natsio.Statistics { return c.conn.Stats() }

func (c *natsConn) Close() { c.conn.Close() }

// Register registers the NATS transport with the default registry.
// This should be called from an init() function in an importing package,
// or explicitly before using the transport.
func Register() {
	transport.Register(TransportName, Build)
}

// Build creates a new unconnected NATS transport.
func Build(logger watermill.LoggerAdapter) (transport.Transport, error) {
	return New(logger), nil
}

// New returns an unconnected NATS transport.
func New(logger watermill.LoggerAdapter) *Transport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Transport{
		logger: logger,
		subs:   make(map[string]Subscription),
	}
}

// Transport speaks to a NATS cluster over a single connection. All
// subscriptions deliver into one shared inbox channel, forming the single
// consumable receive stream the connector core expects.
type Transport struct {
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	conn   Conn
	subs   map[string]Subscription
	inbox  chan *natsio.Msg
	closed chan struct{}
}

// Connect dials the cluster. Server candidates are tried in the given order,
// the initial dial retries under the same policy as reconnects, and
// reconnection after a drop is handled entirely by the nats client, which
// also restores active subscriptions.
func (t *Transport) Connect(ctx context.Context, params transport.Params) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	opts := []natsio.Option{
		natsio.Name(params.Name),
		natsio.MaxReconnects(params.MaxReconnects),
		natsio.ReconnectWait(params.ReconnectWait),
		natsio.DontRandomize(),
		natsio.RetryOnFailedConnect(true),
		natsio.ReconnectHandler(func(conn *natsio.Conn) {
			t.logger.Info("reconnected to broker", watermill.LogFields{"server": conn.ConnectedUrl()})
		}),
		natsio.DisconnectErrHandler(func(conn *natsio.Conn, err error) {
			t.logger.Info("disconnected from broker", watermill.LogFields{"error": fmt.Sprint(err)})
		}),
	}
	if params.TLS != nil {
		opts = append(opts, natsio.Secure(params.TLS))
	}

	url := strings.Join(params.Servers, ",")
	if url == "" {
		url = natsio.DefaultURL
	}

	conn, err := ConnFactory(url, opts...)
	if err != nil {
		return fmt.Errorf("connecting to nats: %w", err)
	}

	t.conn = conn
	t.inbox = make(chan *natsio.Msg, inboxBuffer)
	t.closed = make(chan struct{})
	t.logger.Debug("nats transport connected", watermill.LogFields{"url": url, "name": params.Name})
	return nil
}

// Disconnect closes the connection and unblocks any pending Receive. Safe to
// call when never connected.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return
	}

	close(t.closed)
	for subject, sub := range t.subs {
		if err := sub.Unsubscribe(); err != nil {
			t.logger.Debug("unsubscribe during disconnect failed", watermill.LogFields{"subject": subject, "error": err.Error()})
		}
		delete(t.subs, subject)
	}
	t.conn.Close()
	t.conn = nil
}

// Publish sends one frame. A non-empty replyTo is exposed as the native NATS
// reply subject in addition to the envelope's own reply-to header.
func (t *Transport) Publish(subject string, data []byte, replyTo string) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return transport.ErrNotConnected
	}
	if replyTo != "" {
		return conn.PublishRequest(subject, replyTo, data)
	}
	return conn.Publish(subject, data)
}

// Subscribe adds subject to the shared receive stream. Subscribing to an
// already subscribed subject is a no-op.
func (t *Transport) Subscribe(subject string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return transport.ErrNotConnected
	}
	if _, ok := t.subs[subject]; ok {
		return nil
	}

	sub, err := t.conn.ChanSubscribe(subject, t.inbox)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	t.subs[subject] = sub
	return nil
}

// Unsubscribe removes subject from the receive stream. Unknown subjects are
// a no-op.
func (t *Transport) Unsubscribe(subject string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sub, ok := t.subs[subject]
	if !ok {
		return nil
	}
	delete(t.subs, subject)
	return sub.Unsubscribe()
}

// Receive blocks until a frame arrives on any subscribed subject.
func (t *Transport) Receive(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	inbox, closed := t.inbox, t.closed
	t.mu.Unlock()

	if inbox == nil {
		return nil, transport.ErrNotConnected
	}

	select {
	case msg := <-inbox:
		return msg.Data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-closed:
		return nil, natsio.ErrConnectionClosed
	}
}

// Connected reports whether the underlying connection is currently live.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil && t.conn.IsConnected()
}

// ConnectedServer returns the URL of the server currently connected to.
func (t *Transport) ConnectedServer() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ""
	}
	return t.conn.ConnectedUrl()
}

// Stats returns the connection's live statistics.
func (t *Transport) Stats() transport.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return transport.Stats{}
	}
	stats := t.conn.Stats()
	return transport.Stats{
		InMsgs:     stats.InMsgs,
		OutMsgs:    stats.OutMsgs,
		InBytes:    stats.InBytes,
		OutBytes:   stats.OutBytes,
		Reconnects: stats.Reconnects,
	}
}

// ClientVersion reports the nats client library version in use.
func (t *Transport) ClientVersion() string {
	return "nats.go " + natsio.Version
}
