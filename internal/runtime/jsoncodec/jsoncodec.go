// Package jsoncodec is the JSON seam for the wire envelope, backed by sonic
// in its encoding/json compatible configuration. Compatibility matters here:
// every peer on a collective must parse the same frames the same way.
package jsoncodec

import (
	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

// Marshal serializes v to JSON.
func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

// Unmarshal parses JSON data into v.
func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}
