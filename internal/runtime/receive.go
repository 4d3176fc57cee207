package runtime

import (
	"context"

	"github.com/drblury/hivewire/internal/runtime/envelope"
	"github.com/drblury/hivewire/internal/runtime/logging"
	"github.com/drblury/hivewire/transport"
)

// ReceiveLoop drains the transport's inbound frame stream one message at a
// time. It is the single consumer of that stream and runs for the lifetime
// of the connection; tearing the connection down is the only cancellation
// primitive besides the context.
type ReceiveLoop struct {
	transport transport.Transport
	logger    logging.ServiceLogger
	metrics   *Metrics
}

// NewReceiveLoop wires a ReceiveLoop around the transport.
func NewReceiveLoop(tr transport.Transport, logger logging.ServiceLogger, metrics *Metrics) *ReceiveLoop {
	return &ReceiveLoop{transport: tr, logger: logger, metrics: metrics}
}

// Receive blocks until a structurally valid envelope arrives. Malformed
// frames are logged, counted, and skipped; peers sending framing noise must
// never take the receive path down. Transport-level errors, including the
// teardown caused by Disconnect, propagate to the caller.
func (l *ReceiveLoop) Receive(ctx context.Context) (Message, error) {
	for {
		raw, err := l.transport.Receive(ctx)
		if err != nil {
			return Message{}, err
		}

		payload, hdrs, err := envelope.Decode(raw)
		if err != nil {
			l.metrics.MalformedFrame()
			l.logger.Debug("discarding malformed frame", logging.LogFields{
				"error": err.Error(),
				"bytes": len(raw),
			})
			continue
		}

		l.metrics.Received()
		return Message{Payload: payload, Headers: hdrs}, nil
	}
}
