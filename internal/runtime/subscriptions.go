package runtime

import (
	"fmt"
	"sync"

	"github.com/drblury/hivewire/internal/runtime/addressing"
	"github.com/drblury/hivewire/internal/runtime/logging"
	"github.com/drblury/hivewire/transport"
)

type subscriptionKey struct {
	agent      string
	mtype      addressing.MessageType
	collective string
}

// SubscriptionManager tracks the subjects this node listens on, keyed by the
// {agent, type, collective} triple they were derived from. Re-subscribing a
// triple is a no-op, never a duplicate delivery registration.
type SubscriptionManager struct {
	resolver  *addressing.Resolver
	transport transport.Transport
	logger    logging.ServiceLogger

	mu   sync.Mutex
	subs map[subscriptionKey]string
}

// NewSubscriptionManager wires a SubscriptionManager around the shared
// resolver and transport.
func NewSubscriptionManager(resolver *addressing.Resolver, tr transport.Transport, logger logging.ServiceLogger) *SubscriptionManager {
	return &SubscriptionManager{
		resolver:  resolver,
		transport: tr,
		logger:    logger,
		subs:      make(map[subscriptionKey]string),
	}
}

// Subscribe derives the subject for the triple and registers it with the
// transport. Addressing errors surface before the transport is touched.
func (s *SubscriptionManager) Subscribe(agent string, mtype addressing.MessageType, collective string) error {
	subject, err := s.resolver.Resolve(agent, mtype, collective, "")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := subscriptionKey{agent: agent, mtype: mtype, collective: collective}
	if existing, ok := s.subs[key]; ok {
		s.logger.Debug("already subscribed", logging.LogFields{"subject": existing})
		return nil
	}

	if err := s.transport.Subscribe(subject); err != nil {
		return fmt.Errorf("subscribing %s/%s in %s: %w", agent, mtype, collective, err)
	}

	s.subs[key] = subject
	s.logger.Debug("subscribed", logging.LogFields{"subject": subject})
	return nil
}

// Unsubscribe removes the triple's subscription. Unknown triples validate
// their addressing and are otherwise a no-op.
func (s *SubscriptionManager) Unsubscribe(agent string, mtype addressing.MessageType, collective string) error {
	s.mu.Lock()
	subject, ok := s.subs[subscriptionKey{agent: agent, mtype: mtype, collective: collective}]
	if ok {
		delete(s.subs, subscriptionKey{agent: agent, mtype: mtype, collective: collective})
	}
	s.mu.Unlock()

	if !ok {
		// Reply subjects are sequence-numbered, so the stored subject is the
		// only reliable record; validate the triple and finish.
		_, err := s.resolver.Resolve(agent, mtype, collective, "")
		return err
	}

	if err := s.transport.Unsubscribe(subject); err != nil {
		return fmt.Errorf("unsubscribing %s/%s in %s: %w", agent, mtype, collective, err)
	}

	s.logger.Debug("unsubscribed", logging.LogFields{"subject": subject})
	return nil
}

// Subjects returns the subjects currently subscribed through the manager.
func (s *SubscriptionManager) Subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	subjects := make([]string, 0, len(s.subs))
	for _, subject := range s.subs {
		subjects = append(subjects, subject)
	}
	return subjects
}
