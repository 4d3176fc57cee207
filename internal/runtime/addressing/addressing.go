// Package addressing maps message intents onto broker subjects and header
// sets. The subject grammar is fixed; every peer on a collective derives the
// same subject from the same {agent, type, collective, identity} inputs.
package addressing

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/drblury/hivewire/internal/runtime/config"
	errspkg "github.com/drblury/hivewire/internal/runtime/errors"
	"github.com/drblury/hivewire/internal/runtime/headers"
)

// MessageType is the closed set of message intents the connector understands.
type MessageType int

const (
	// Broadcast reaches every instance of an agent within a collective.
	Broadcast MessageType = iota
	// Request is a broadcast that expects replies.
	Request
	// DirectRequest fans a request out to an explicit list of nodes.
	DirectRequest
	// Directed addresses a single node by identity.
	Directed
	// Reply answers a previously received request.
	Reply
)

var messageTypeNames = map[MessageType]string{
	Broadcast:     "broadcast",
	Request:       "request",
	DirectRequest: "direct_request",
	Directed:      "directed",
	Reply:         "reply",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("invalid(%d)", int(t))
}

// Valid reports whether t is one of the defined message types.
func (t MessageType) Valid() bool {
	_, ok := messageTypeNames[t]
	return ok
}

// ParseMessageType converts a wire-level type name back into a MessageType.
func ParseMessageType(name string) (MessageType, error) {
	for t, n := range messageTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errspkg.ErrInvalidTargetType, name)
}

// Descriptor is the unit of intent submitted to the publisher.
type Descriptor struct {
	Type       MessageType
	Agent      string
	Collective string
	Payload    []byte

	// ReplyTo carries the subject to answer on. Required for Reply
	// descriptors; optional on requests being forwarded verbatim.
	ReplyTo string

	// Destination is the identity of the addressed node for Directed sends.
	// Empty means the local identity.
	Destination string

	// DiscoveredHosts is the ordered node list a DirectRequest fans out to.
	DiscoveredHosts []string

	// RequestID correlates replies and diagnostics with the originating
	// request.
	RequestID string
}

// Sequence is the process-wide counter that makes reply subjects unique. It
// is injected rather than hidden in a global so tests can seed it and
// embedders can start it from a random offset.
type Sequence struct {
	n atomic.Uint64
}

// Next returns the next counter value. Safe for concurrent use; no two
// callers ever observe the same value.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1)
}

// Seed sets the counter so the next call to Next returns v+1.
func (s *Sequence) Seed(v uint64) {
	s.n.Store(v)
}

// Resolver derives broker subjects from message descriptors. It is stateless
// apart from the injected reply sequence.
type Resolver struct {
	cfg *config.Config
	seq *Sequence
	pid int
}

// NewResolver builds a Resolver for the given configuration. A nil seq gets
// a fresh counter starting at zero; processes worried about reply-subject
// collisions across restarts can seed one explicitly.
func NewResolver(cfg *config.Config, seq *Sequence) *Resolver {
	if seq == nil {
		seq = &Sequence{}
	}
	return &Resolver{cfg: cfg, seq: seq, pid: os.Getpid()}
}

// Resolve maps {agent, type, collective, identity} onto a subject string.
// The type is validated before the collective; identity defaults to the
// configured local identity when empty.
//
// Grammar:
//
//	reply:                    {collective}.reply.{identity}.{pid}.{seq}
//	broadcast, request:       {collective}.broadcast.agent.{agent}
//	directed, direct_request: {collective}.node.{identity}
func (r *Resolver) Resolve(agent string, mtype MessageType, collective, identity string) (string, error) {
	if !mtype.Valid() {
		return "", fmt.Errorf("%w: %s", errspkg.ErrInvalidTargetType, mtype)
	}
	if !r.cfg.HasCollective(collective) {
		return "", fmt.Errorf("%w: %q", errspkg.ErrUnknownCollective, collective)
	}
	if identity == "" {
		identity = r.cfg.Identity
	}

	switch mtype {
	case Reply:
		return fmt.Sprintf("%s.reply.%s.%d.%d", collective, identity, r.pid, r.seq.Next()), nil
	case Broadcast, Request:
		return fmt.Sprintf("%s.broadcast.agent.%s", collective, agent), nil
	default: // Directed, DirectRequest
		return fmt.Sprintf("%s.node.%s", collective, identity), nil
	}
}

// HeaderBuilder constructs the header set for outgoing messages.
type HeaderBuilder struct {
	cfg      *config.Config
	resolver *Resolver
}

// NewHeaderBuilder builds a HeaderBuilder sharing the resolver's reply
// sequence.
func NewHeaderBuilder(cfg *config.Config, resolver *Resolver) *HeaderBuilder {
	return &HeaderBuilder{cfg: cfg, resolver: resolver}
}

// HeadersFor returns the headers to attach to d. Every message carries the
// sender identity; request-class messages additionally carry a reply-to
// subject, reusing the descriptor's own when it is being forwarded and
// synthesizing a fresh one otherwise. The reply sequence advances at most
// once per call, so a fan-out shares one reply subject across all nodes.
func (b *HeaderBuilder) HeadersFor(d Descriptor) (headers.Headers, error) {
	hdrs := headers.New(headers.Sender, b.cfg.Identity)

	switch d.Type {
	case Request, DirectRequest:
		replyTo := d.ReplyTo
		if replyTo == "" {
			subject, err := b.resolver.Resolve(d.Agent, Reply, d.Collective, "")
			if err != nil {
				return nil, err
			}
			replyTo = subject
		}
		hdrs = hdrs.With(headers.ReplyTo, replyTo)
	}

	return hdrs, nil
}
