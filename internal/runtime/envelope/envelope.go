// Package envelope implements the wire format exchanged with the broker: a
// JSON record with exactly two fields, a base64-encoded payload and the
// header mapping.
package envelope

import (
	"encoding/base64"
	"fmt"

	errspkg "github.com/drblury/hivewire/internal/runtime/errors"
	"github.com/drblury/hivewire/internal/runtime/headers"
	"github.com/drblury/hivewire/internal/runtime/jsoncodec"
)

// wireEnvelope uses pointer fields so Decode can tell an absent field apart
// from a present-but-empty one. Unmarshal leaves missing fields nil.
type wireEnvelope struct {
	Data    *string          `json:"data"`
	Headers *headers.Headers `json:"headers"`
}

// Encode serializes payload and hdrs into the wire envelope. The payload is
// base64 encoded so arbitrary bytes survive the JSON transport.
func Encode(payload []byte, hdrs headers.Headers) ([]byte, error) {
	if hdrs == nil {
		hdrs = headers.Headers{}
	}
	data := base64.StdEncoding.EncodeToString(payload)
	env := wireEnvelope{Data: &data, Headers: &hdrs}
	raw, err := jsoncodec.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return raw, nil
}

// Decode parses a wire frame back into payload and headers. Frames that are
// not well-formed envelopes fail with ErrMalformedEnvelope; peers sending
// framing noise or incompatible versions are an expected condition. A JSON
// document that parses but lacks the data or headers field (including "null"
// and "{}") is malformed, not an empty message.
func Decode(raw []byte) ([]byte, headers.Headers, error) {
	var env wireEnvelope
	if err := jsoncodec.Unmarshal(raw, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errspkg.ErrMalformedEnvelope, err)
	}
	if env.Data == nil || env.Headers == nil {
		return nil, nil, fmt.Errorf("%w: frame is not an envelope record", errspkg.ErrMalformedEnvelope)
	}

	payload, err := base64.StdEncoding.DecodeString(*env.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: payload is not valid base64: %v", errspkg.ErrMalformedEnvelope, err)
	}

	return payload, *env.Headers, nil
}
