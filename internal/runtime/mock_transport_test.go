package runtime

import (
	"context"
	"sync"

	"github.com/drblury/hivewire/internal/runtime/addressing"
	"github.com/drblury/hivewire/internal/runtime/config"
	"github.com/drblury/hivewire/transport"
	"github.com/prometheus/client_golang/prometheus"
)

type publishRecord struct {
	subject string
	data    []byte
	replyTo string
}

// mockTransport records every call and answers with configurable results.
type mockTransport struct {
	mu sync.Mutex

	connectCalls int
	connectErr   error
	lastParams   transport.Params

	publishes   []publishRecord
	publishErrs map[string]error

	subscribed     []string
	subscribeErr   error
	unsubscribed   []string
	unsubscribeErr error

	frames  [][]byte
	recvErr error

	disconnects int
	connected   bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{publishErrs: make(map[string]error)}
}

func (m *mockTransport) Connect(_ context.Context, params transport.Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectCalls++
	m.lastParams = params
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockTransport) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
	m.connected = false
}

func (m *mockTransport) Publish(subject string, data []byte, replyTo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishes = append(m.publishes, publishRecord{subject: subject, data: data, replyTo: replyTo})
	return m.publishErrs[subject]
}

func (m *mockTransport) Subscribe(subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.subscribed = append(m.subscribed, subject)
	return nil
}

func (m *mockTransport) Unsubscribe(subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubscribeErr != nil {
		return m.unsubscribeErr
	}
	m.unsubscribed = append(m.unsubscribed, subject)
	return nil
}

func (m *mockTransport) Receive(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		if m.recvErr != nil {
			return nil, m.recvErr
		}
		return nil, transport.ErrNotConnected
	}
	frame := m.frames[0]
	m.frames = m.frames[1:]
	return frame, nil
}

func (m *mockTransport) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockTransport) ConnectedServer() string { return "nats://mock:4222" }

func (m *mockTransport) Stats() transport.Stats { return transport.Stats{} }

func (m *mockTransport) ClientVersion() string { return "mock" }

func (m *mockTransport) published() []publishRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishRecord(nil), m.publishes...)
}

func testConfig() *config.Config {
	return &config.Config{
		Identity:    "node0.example.net",
		Collectives: []string{"mcollective", "subco"},
	}
}

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func newTestResolver(cfg *config.Config) (*addressing.Resolver, *addressing.HeaderBuilder) {
	resolver := addressing.NewResolver(cfg, nil)
	return resolver, addressing.NewHeaderBuilder(cfg, resolver)
}
