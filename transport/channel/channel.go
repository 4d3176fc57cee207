// Package channel provides an in-memory transport for hivewire built on
// Watermill's gochannel Pub/Sub. It is useful for testing and local
// development, where running a NATS server is not worth the trouble.
package channel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/hivewire/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

const inboxBuffer = 256

// replyToMetadataKey mirrors the native reply routing brokers like NATS
// offer; the envelope headers remain authoritative.
const replyToMetadataKey = "reply-to"

// Factory allows overriding the channel Pub/Sub creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

func init() {
	transport.Register(TransportName, Build)
}

// Build creates a new unconnected channel transport.
func Build(logger watermill.LoggerAdapter) (transport.Transport, error) {
	return New(logger), nil
}

// New returns an unconnected channel transport.
func New(logger watermill.LoggerAdapter) *Transport {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Transport{
		logger: logger,
		subs:   make(map[string]context.CancelFunc),
	}
}

// Transport routes frames between subjects inside one process. Every
// subscription pumps into a single shared inbox, matching the single
// consumable receive stream of the broker transports.
type Transport struct {
	logger watermill.LoggerAdapter

	mu     sync.Mutex
	pubSub *gochannel.GoChannel
	subs   map[string]context.CancelFunc
	inbox  chan []byte
	closed chan struct{}

	inMsgs   atomic.Uint64
	outMsgs  atomic.Uint64
	inBytes  atomic.Uint64
	outBytes atomic.Uint64
}

// Connect initialises the in-memory Pub/Sub. Params are accepted for
// interface compatibility; there is no server to dial and nothing to
// reconnect to.
func (t *Transport) Connect(ctx context.Context, params transport.Params) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pubSub != nil {
		return nil
	}

	t.pubSub = Factory(gochannel.Config{OutputChannelBuffer: inboxBuffer}, t.logger)
	t.inbox = make(chan []byte, inboxBuffer)
	t.closed = make(chan struct{})
	return nil
}

// Disconnect closes the Pub/Sub and unblocks any pending Receive. Safe to
// call when never connected.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pubSub == nil {
		return
	}

	close(t.closed)
	for subject, cancel := range t.subs {
		cancel()
		delete(t.subs, subject)
	}
	if err := t.pubSub.Close(); err != nil {
		t.logger.Debug("closing channel pubsub failed", watermill.LogFields{"error": err.Error()})
	}
	t.pubSub = nil
}

// Publish delivers one frame to all current subscribers of subject.
func (t *Transport) Publish(subject string, data []byte, replyTo string) error {
	t.mu.Lock()
	pubSub := t.pubSub
	t.mu.Unlock()

	if pubSub == nil {
		return transport.ErrNotConnected
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if replyTo != "" {
		msg.Metadata.Set(replyToMetadataKey, replyTo)
	}
	if err := pubSub.Publish(subject, msg); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	t.outMsgs.Add(1)
	t.outBytes.Add(uint64(len(data)))
	return nil
}

// Subscribe adds subject to the shared receive stream. Subscribing to an
// already subscribed subject is a no-op.
func (t *Transport) Subscribe(subject string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pubSub == nil {
		return transport.ErrNotConnected
	}
	if _, ok := t.subs[subject]; ok {
		return nil
	}

	subCtx, cancel := context.WithCancel(context.Background())
	frames, err := t.pubSub.Subscribe(subCtx, subject)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribing to %s: %w", subject, err)
	}

	t.subs[subject] = cancel
	go t.pump(frames)
	return nil
}

// pump moves one subscription's messages onto the shared inbox.
func (t *Transport) pump(frames <-chan *message.Message) {
	for msg := range frames {
		msg.Ack()
		t.inMsgs.Add(1)
		t.inBytes.Add(uint64(len(msg.Payload)))
		select {
		case t.inbox <- msg.Payload:
		case <-t.closed:
			return
		}
	}
}

// Unsubscribe removes subject from the receive stream. Unknown subjects are
// a no-op.
func (t *Transport) Unsubscribe(subject string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cancel, ok := t.subs[subject]
	if !ok {
		return nil
	}
	delete(t.subs, subject)
	cancel()
	return nil
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
	case data := <-inbox:
		return data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-closed:
		return nil, transport.ErrNotConnected
	}
}

// Connected reports whether the transport has been connected.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pubSub != nil
}

// ConnectedServer identifies the in-process broker.
func (t *Transport) ConnectedServer() string {
	if t.Connected() {
		return "inproc://channel"
	}
	return ""
}

// Stats returns the frame counters accumulated since Connect.
func (t *Transport) Stats() transport.Stats {
	return transport.Stats{
		InMsgs:   t.inMsgs.Load(),
		OutMsgs:  t.outMsgs.Load(),
		InBytes:  t.inBytes.Load(),
		OutBytes: t.outBytes.Load(),
	}
}

// ClientVersion identifies the in-memory implementation.
func (t *Transport) ClientVersion() string {
	return "gochannel"
}
