package runtime

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/drblury/hivewire/internal/runtime/addressing"
	"github.com/drblury/hivewire/internal/runtime/config"
	errspkg "github.com/drblury/hivewire/internal/runtime/errors"
	"github.com/drblury/hivewire/internal/runtime/logging"
	"github.com/drblury/hivewire/transport"
)

// Service bundles the connector, publisher, subscription manager, and
// receive loop around a single broker transport. It is the convenience entry
// point; the individual components remain usable on their own.
type Service struct {
	cfg           *config.Config
	connector     *Connector
	publisher     *Publisher
	subscriptions *SubscriptionManager
	receive       *ReceiveLoop
	resolver      *addressing.Resolver
}

// ServiceDependencies carries the optional seams of NewService. Zero values
// select the defaults: the transport named by the config, a slog-backed
// logger, the default Prometheus registerer, and a fresh reply sequence.
type ServiceDependencies struct {
	Transport  transport.Transport
	Logger     logging.ServiceLogger
	Registerer prometheus.Registerer
	Sequence   *addressing.Sequence
}

// NewService validates the configuration and wires all components around one
// shared transport and reply sequence.
func NewService(cfg *config.Config, deps ServiceDependencies) (*Service, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NewSlogServiceLogger(slog.Default())
	}

	tr := deps.Transport
	if tr == nil {
		built, err := transport.Build(cfg.TransportName(), logging.NewWatermillAdapter(logger))
		if err != nil {
			return nil, err
		}
		tr = built
	}

	metrics := NewMetrics(deps.Registerer)
	if err := metrics.Register(); err != nil {
		return nil, err
	}

	resolver := addressing.NewResolver(cfg, deps.Sequence)
	builder := addressing.NewHeaderBuilder(cfg, resolver)

	return &Service{
		cfg:           cfg,
		connector:     NewConnector(cfg, tr, logger, metrics),
		publisher:     NewPublisher(cfg, resolver, builder, tr, logger, metrics),
		subscriptions: NewSubscriptionManager(resolver, tr, logger),
		receive:       NewReceiveLoop(tr, logger, metrics),
		resolver:      resolver,
	}, nil
}

// Connect establishes the broker connection. Idempotent.
func (s *Service) Connect(ctx context.Context) error {
	return s.connector.Connect(ctx)
}

// Disconnect tears the broker connection down. Idempotent.
func (s *Service) Disconnect() {
	s.connector.Disconnect()
}

// Publish sends a message descriptor; see Publisher.Publish.
func (s *Service) Publish(ctx context.Context, d addressing.Descriptor) ([]NodeResult, error) {
	return s.publisher.Publish(ctx, d)
}

// Subscribe registers the subject derived from the triple.
func (s *Service) Subscribe(agent string, mtype addressing.MessageType, collective string) error {
	return s.subscriptions.Subscribe(agent, mtype, collective)
}

// Unsubscribe removes the subject derived from the triple.
func (s *Service) Unsubscribe(agent string, mtype addressing.MessageType, collective string) error {
	return s.subscriptions.Unsubscribe(agent, mtype, collective)
}

// Receive blocks until the next well-formed message arrives.
func (s *Service) Receive(ctx context.Context) (Message, error) {
	return s.receive.Receive(ctx)
}

// Connector exposes the connection lifecycle owner.
func (s *Service) Connector() *Connector {
	return s.connector
}

// Subscriptions exposes the subscription manager.
func (s *Service) Subscriptions() *SubscriptionManager {
	return s.subscriptions
}

// Resolver exposes the shared target resolver.
func (s *Service) Resolver() *addressing.Resolver {
	return s.resolver
}
