// Package hivewire is the messaging-addressing and connection-lifecycle layer
// for request/reply orchestration frameworks built on a pub/sub broker. It
// maps message intents (broadcast, request, direct_request, directed, reply)
// onto a fixed broker subject grammar, frames payloads in a JSON wire
// envelope, and owns the connection state machine including TLS setup and
// unlimited reconnects.
//
// The Service type bundles the four cooperating components: the Connector
// (connection lifecycle), the Publisher (subject resolution, header
// construction, envelope encoding, and direct-request fan-out), the
// SubscriptionManager (idempotent subject registration keyed by the
// {agent, type, collective} triple), and the ReceiveLoop (the single consumer
// of the inbound frame stream, skipping malformed frames). Each component is
// also usable on its own.
//
// # Transports
//
// Hivewire ships 2 broker transports out of the box:
//   - nats: NATS with reconnect handling and TLS
//   - channel: In-memory Go channels for testing
//
// Transports register themselves in a registry and are selected by the
// Transport config field; the nats transport needs an explicit
// nats.Register() call (or a constructed transport passed through
// ServiceDependencies), the channel transport registers on import.
//
// A minimal setup fills Config with an identity, collective list, and server
// list, creates a Service, calls Connect, and then publishes Descriptors and
// drains Receive; see README.md for a copy/paste quick start snippet.
package hivewire
