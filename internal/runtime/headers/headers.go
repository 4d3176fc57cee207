package headers

// Header keys used on the wire envelope. These are case-sensitive literals
// shared with every peer on the collective.
const (
	Sender  = "mc_sender"
	ReplyTo = "reply-to"
)

// Headers represents the header mapping carried alongside a message payload.
type Headers map[string]string

// With returns a cloned header map containing the provided key/value pair.
// The receiver is never mutated.
func (h Headers) With(key, value string) Headers {
	cloned := make(Headers, len(h)+1)
	for k, v := range h {
		cloned[k] = v
	}
	cloned[key] = value
	return cloned
}

// Sender returns the sender-identity header, or "" when absent.
func (h Headers) Sender() string {
	return h[Sender]
}

// ReplyTo returns the reply subject header, or "" when absent.
func (h Headers) ReplyTo() string {
	return h[ReplyTo]
}

// New constructs a Headers map from alternating key/value pairs.
func New(pairs ...string) Headers {
	hdrs := make(Headers, len(pairs)/2)
	for i := 0; i < len(pairs)-1; i += 2 {
		hdrs[pairs[i]] = pairs[i+1]
	}
	return hdrs
}
