package runtime

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"

	"github.com/drblury/hivewire/internal/runtime/config"
	errspkg "github.com/drblury/hivewire/internal/runtime/errors"
	"github.com/drblury/hivewire/internal/runtime/logging"
	"github.com/drblury/hivewire/transport"
)

// ConnState is the connection lifecycle state owned by the Connector.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return fmt.Sprintf("invalid(%d)", int(s))
}

// Connector owns the transport connection's lifecycle. Connect is
// idempotent so callers may invoke it defensively before every operation;
// reconnection after an established connection drops is delegated entirely
// to the transport under the parameters assembled here.
type Connector struct {
	cfg       *config.Config
	transport transport.Transport
	logger    logging.ServiceLogger
	metrics   *Metrics

	mu    sync.Mutex
	state ConnState
}

// NewConnector wires a Connector around the transport.
func NewConnector(cfg *config.Config, tr transport.Transport, logger logging.ServiceLogger, metrics *Metrics) *Connector {
	return &Connector{
		cfg:       cfg,
		transport: tr,
		logger:    logger,
		metrics:   metrics,
		state:     StateDisconnected,
	}
}

func (c *Connector) setState(state ConnState) {
	c.state = state
	c.metrics.ConnectionState(state)
}

// Connect establishes the broker connection. Calling it while connecting or
// connected is a logged no-op. TLS failures fail fast with ErrCredential and
// leave the connection disconnected; once the transport accepts the
// connection it retries forever on its own, with a fixed wait and the server
// list tried in order.
func (c *Connector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateDisconnected {
		c.logger.Debug("connection already started, not starting again", logging.LogFields{"state": c.state.String()})
		return nil
	}
	c.setState(StateConnecting)

	tlsConf, err := c.tlsConfig()
	if err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("%w: %v", errspkg.ErrCredential, err)
	}

	params := transport.Params{
		Name:          c.cfg.Identity,
		Servers:       c.cfg.Servers,
		TLS:           tlsConf,
		ReconnectWait: c.cfg.Wait(),
		MaxReconnects: -1,
	}

	if err := c.transport.Connect(ctx, params); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("connecting transport: %w", err)
	}

	c.setState(StateConnected)
	c.logger.Info("connected to broker", logging.LogFields{
		"server":   c.transport.ConnectedServer(),
		"identity": c.cfg.Identity,
	})
	return nil
}

// tlsConfig loads the configured credential material. With no material
// configured the connection is made in plain text.
func (c *Connector) tlsConfig() (*tls.Config, error) {
	if c.cfg.TLSCert == "" && c.cfg.TLSKey == "" && c.cfg.TLSCA == "" {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.cfg.TLSCert, c.cfg.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("loading client certificate: %w", err)
	}

	caPEM, err := os.ReadFile(c.cfg.TLSCA)
	if err != nil {
		return nil, fmt.Errorf("loading ca certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("ca certificate %s contains no certificates", c.cfg.TLSCA)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Disconnect tears the connection down. Idempotent, and safe to call when
// never connected.
func (c *Connector) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisconnected {
		return
	}

	c.transport.Disconnect()
	c.setState(StateDisconnected)
	c.logger.Info("disconnected from broker", logging.LogFields{"identity": c.cfg.Identity})
}

// State returns the current lifecycle state.
func (c *Connector) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the transport currently holds a live connection.
func (c *Connector) Connected() bool {
	return c.State() == StateConnected && c.transport.Connected()
}

// ConnectedServer returns the broker server currently connected to.
func (c *Connector) ConnectedServer() string {
	return c.transport.ConnectedServer()
}

// Stats returns the transport's live connection statistics.
func (c *Connector) Stats() transport.Stats {
	return c.transport.Stats()
}

// ClientVersion reports the broker client version negotiated by the
// transport.
func (c *Connector) ClientVersion() string {
	return c.transport.ClientVersion()
}
