package hivewire

import (
	runtimepkg "github.com/drblury/hivewire/internal/runtime"
	addressingpkg "github.com/drblury/hivewire/internal/runtime/addressing"
	configpkg "github.com/drblury/hivewire/internal/runtime/config"
	envelopepkg "github.com/drblury/hivewire/internal/runtime/envelope"
	errspkg "github.com/drblury/hivewire/internal/runtime/errors"
	headerspkg "github.com/drblury/hivewire/internal/runtime/headers"
	idspkg "github.com/drblury/hivewire/internal/runtime/ids"
	jsoncodec "github.com/drblury/hivewire/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/hivewire/internal/runtime/logging"
	transportpkg "github.com/drblury/hivewire/transport"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	// Addressing
	MessageType   = addressingpkg.MessageType
	Descriptor    = addressingpkg.Descriptor
	Sequence      = addressingpkg.Sequence
	Resolver      = addressingpkg.Resolver
	HeaderBuilder = addressingpkg.HeaderBuilder
	Headers       = headerspkg.Headers

	// Connector components
	Message             = runtimepkg.Message
	NodeResult          = runtimepkg.NodeResult
	Publisher           = runtimepkg.Publisher
	SubscriptionManager = runtimepkg.SubscriptionManager
	Connector           = runtimepkg.Connector
	ConnState           = runtimepkg.ConnState
	ReceiveLoop         = runtimepkg.ReceiveLoop
	Metrics             = runtimepkg.Metrics

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	ConfigValidationError = errspkg.ConfigValidationError

	// Modular transport types
	Transport         = transportpkg.Transport
	TransportBuilder  = transportpkg.Builder
	TransportParams   = transportpkg.Params
	TransportStats    = transportpkg.Stats
	TransportRegistry = transportpkg.Registry
)

// Message type constants for Descriptor.Type.
const (
	Broadcast     = addressingpkg.Broadcast
	Request       = addressingpkg.Request
	DirectRequest = addressingpkg.DirectRequest
	Directed      = addressingpkg.Directed
	Reply         = addressingpkg.Reply
)

// Connection lifecycle states reported by Connector.State.
const (
	StateDisconnected = runtimepkg.StateDisconnected
	StateConnecting   = runtimepkg.StateConnecting
	StateConnected    = runtimepkg.StateConnected
)

// Wire envelope header keys shared with every peer on the collective.
const (
	HeaderSender  = headerspkg.Sender
	HeaderReplyTo = headerspkg.ReplyTo
)

// DefaultReconnectWait is the fixed delay between reconnect attempts when the
// configuration does not set one.
const DefaultReconnectWait = configpkg.DefaultReconnectWait

var (
	NewService     = runtimepkg.NewService
	ValidateConfig = configpkg.ValidateConfig

	// Addressing
	NewResolver      = addressingpkg.NewResolver
	NewHeaderBuilder = addressingpkg.NewHeaderBuilder
	ParseMessageType = addressingpkg.ParseMessageType
	NewHeaders       = headerspkg.New

	// Connector components, for embedders wiring them individually
	NewPublisher           = runtimepkg.NewPublisher
	NewSubscriptionManager = runtimepkg.NewSubscriptionManager
	NewConnector           = runtimepkg.NewConnector
	NewReceiveLoop         = runtimepkg.NewReceiveLoop
	NewMetrics             = runtimepkg.NewMetrics

	// Wire envelope codec
	EncodeEnvelope = envelopepkg.Encode
	DecodeEnvelope = envelopepkg.Decode

	Marshal   = jsoncodec.Marshal
	Unmarshal = jsoncodec.Unmarshal

	ErrInvalidTargetType      = errspkg.ErrInvalidTargetType
	ErrUnknownCollective      = errspkg.ErrUnknownCollective
	ErrMissingReplyAddress    = errspkg.ErrMissingReplyAddress
	ErrMissingDiscoveredHosts = errspkg.ErrMissingDiscoveredHosts
	ErrCredential             = errspkg.ErrCredential
	ErrMalformedEnvelope      = errspkg.ErrMalformedEnvelope
	ErrMissingOption          = errspkg.ErrMissingOption
	ErrConfigRequired         = errspkg.ErrConfigRequired
	ErrNotConnected           = transportpkg.ErrNotConnected

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NopLogger                 = loggingpkg.Nop

	// NewRequestID generates a unique correlation id using ULID.
	NewRequestID = idspkg.NewRequestID

	// Modular transport registry.
	// Import individual transports via: _ "github.com/drblury/hivewire/transport/channel"
	// or an explicit nats.Register() for the NATS transport.
	DefaultTransportRegistry = transportpkg.DefaultRegistry
	RegisterTransport        = transportpkg.Register
	BuildTransport           = transportpkg.Build
)
