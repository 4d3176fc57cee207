// Package transport defines the broker-facing contract for hivewire. Each
// broker implementation (nats, channel) lives in its own sub-package and
// registers itself with the transport registry.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

// ErrNotConnected is returned by transport operations invoked before Connect
// or after Disconnect.
var ErrNotConnected = errors.New("hivewire: not connected to a broker")

// Params carries the connection parameters assembled by the connection
// manager. Transports must honour them rather than inventing their own
// policy: unlimited reconnect attempts when MaxReconnects is negative, a
// fixed wait between attempts, and the server list tried in the given order.
type Params struct {
	// Name is the client name presented to the broker, derived from the
	// local identity.
	Name string

	// Servers is the ordered candidate server list. Empty means the
	// transport applies its own default discovery.
	Servers []string

	// TLS is the negotiated credential material. Nil connects in plain text.
	TLS *tls.Config

	// ReconnectWait is the fixed delay between reconnect attempts.
	ReconnectWait time.Duration

	// MaxReconnects limits reconnect attempts; a negative value means
	// unlimited.
	MaxReconnects int
}

// Stats reports live connection statistics.
type Stats struct {
	InMsgs     uint64
	OutMsgs    uint64
	InBytes    uint64
	OutBytes   uint64
	Reconnects uint64
}

// Transport is the pub/sub broker client consumed by the connector core. A
// transport carries exactly one connection; Publish, Subscribe, and
// Unsubscribe must be safe for concurrent use, and Receive is the single
// consumable stream of inbound frames.
type Transport interface {
	// Connect establishes the broker connection. Reconnection after an
	// established connection drops is handled internally under the given
	// Params and is never surfaced to callers.
	Connect(ctx context.Context, params Params) error

	// Disconnect tears the connection down. Safe to call when never
	// connected; unblocks any pending Receive.
	Disconnect()

	// Publish sends one frame to a subject. The optional replyTo is exposed
	// to brokers with native reply routing; the envelope headers remain the
	// authoritative reply address.
	Publish(subject string, data []byte, replyTo string) error

	// Subscribe registers interest in a subject, delivering its frames to
	// the shared receive stream.
	Subscribe(subject string) error

	// Unsubscribe removes interest in a subject.
	Unsubscribe(subject string) error

	// Receive blocks until the next inbound frame arrives, the context is
	// cancelled, or the connection is torn down.
	Receive(ctx context.Context) ([]byte, error)

	Connected() bool
	ConnectedServer() string
	Stats() Stats
	ClientVersion() string
}

// Builder is the function signature for creating an unconnected transport.
// Each transport package should provide a Builder function that can be
// registered.
type Builder func(logger watermill.LoggerAdapter) (Transport, error)
