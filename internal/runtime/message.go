package runtime

import (
	"github.com/drblury/hivewire/internal/runtime/headers"
)

// Message is a decoded inbound frame: the peer's payload plus the header
// mapping it travelled with.
type Message struct {
	Payload []byte
	Headers headers.Headers
}

// Sender returns the identity of the node that published the message.
func (m Message) Sender() string {
	return m.Headers.Sender()
}

// ReplyTo returns the subject the sender is listening on for an answer, or
// "" when the message does not expect one.
func (m Message) ReplyTo() string {
	return m.Headers.ReplyTo()
}
