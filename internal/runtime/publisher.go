package runtime

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/hivewire/internal/runtime/addressing"
	"github.com/drblury/hivewire/internal/runtime/config"
	"github.com/drblury/hivewire/internal/runtime/envelope"
	errspkg "github.com/drblury/hivewire/internal/runtime/errors"
	"github.com/drblury/hivewire/internal/runtime/logging"
	"github.com/drblury/hivewire/transport"
)

// NodeResult reports the outcome of one node's publish within a direct
// request fan-out. Fan-out is best-effort: one node failing never aborts the
// remaining sends, so callers inspect the per-node results.
type NodeResult struct {
	Identity string
	Subject  string
	Err      error
}

// Publisher turns message descriptors into broker publishes. Addressing
// errors surface before any transport call is made.
type Publisher struct {
	cfg       *config.Config
	resolver  *addressing.Resolver
	builder   *addressing.HeaderBuilder
	transport transport.Transport
	logger    logging.ServiceLogger
	metrics   *Metrics
}

// NewPublisher wires a Publisher around the shared resolver and transport.
func NewPublisher(cfg *config.Config, resolver *addressing.Resolver, builder *addressing.HeaderBuilder, tr transport.Transport, logger logging.ServiceLogger, metrics *Metrics) *Publisher {
	return &Publisher{
		cfg:       cfg,
		resolver:  resolver,
		builder:   builder,
		transport: tr,
		logger:    logger,
		metrics:   metrics,
	}
}

// Publish sends d to the broker. DirectRequest descriptors fan out to every
// discovered host and return one NodeResult per host; all other types make a
// single publish and return nil results.
func (p *Publisher) Publish(ctx context.Context, d addressing.Descriptor) ([]NodeResult, error) {
	ctx, span := otel.Tracer("hivewire-publisher").Start(ctx, "Publish", trace.WithAttributes(
		attribute.String("message.type", d.Type.String()),
		attribute.String("message.agent", d.Agent),
		attribute.String("message.collective", d.Collective),
		attribute.String("message.request_id", d.RequestID),
	))
	defer span.End()

	if d.Type == addressing.DirectRequest {
		return p.publishDirected(ctx, d)
	}
	return nil, p.publishOne(ctx, d)
}

func (p *Publisher) publishOne(ctx context.Context, d addressing.Descriptor) error {
	var subject string
	if d.Type == addressing.Reply {
		// The subject a reply goes to is whatever the request carried; it
		// cannot be synthesized because the requester's listening subject is
		// known only to the requester.
		if d.ReplyTo == "" {
			return errspkg.ErrMissingReplyAddress
		}
		subject = d.ReplyTo
	} else {
		resolved, err := p.resolver.Resolve(d.Agent, d.Type, d.Collective, d.Destination)
		if err != nil {
			return err
		}
		subject = resolved
	}

	hdrs, err := p.builder.HeadersFor(d)
	if err != nil {
		return err
	}

	raw, err := envelope.Encode(d.Payload, hdrs)
	if err != nil {
		return err
	}

	if err := p.transport.Publish(subject, raw, hdrs.ReplyTo()); err != nil {
		p.metrics.PublishError(d.Type.String())
		return fmt.Errorf("publishing %s message to %s: %w", d.Type, subject, err)
	}

	p.metrics.Published(d.Type.String())
	p.logger.Debug("published message", logging.LogFields{
		"type":       d.Type.String(),
		"subject":    subject,
		"request_id": d.RequestID,
	})
	return nil
}

func (p *Publisher) publishDirected(ctx context.Context, d addressing.Descriptor) ([]NodeResult, error) {
	if len(d.DiscoveredHosts) == 0 {
		return nil, errspkg.ErrMissingDiscoveredHosts
	}

	// Headers are built once: every node in the fan-out shares the same
	// reply subject, and the reply sequence advances once per request.
	hdrs, err := p.builder.HeadersFor(d)
	if err != nil {
		return nil, err
	}

	raw, err := envelope.Encode(d.Payload, hdrs)
	if err != nil {
		return nil, err
	}

	results := make([]NodeResult, 0, len(d.DiscoveredHosts))
	for _, host := range d.DiscoveredHosts {
		subject, err := p.resolver.Resolve(d.Agent, addressing.Directed, d.Collective, host)
		if err != nil {
			// Addressing depends only on type and collective, so this can
			// only trip on the first host, before anything was published.
			return nil, err
		}

		result := NodeResult{Identity: host, Subject: subject}
		if err := p.transport.Publish(subject, raw, hdrs.ReplyTo()); err != nil {
			result.Err = fmt.Errorf("publishing to %s: %w", subject, err)
			p.metrics.FanoutNodeError()
			p.logger.Error("fan-out publish failed", err, logging.LogFields{
				"identity":   host,
				"subject":    subject,
				"request_id": d.RequestID,
			})
		} else {
			p.metrics.Published(d.Type.String())
		}
		results = append(results, result)
	}

	p.logger.Debug("published direct request", logging.LogFields{
		"agent":      d.Agent,
		"hosts":      len(d.DiscoveredHosts),
		"request_id": d.RequestID,
	})
	return results, nil
}
