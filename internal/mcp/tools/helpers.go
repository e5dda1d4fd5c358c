// Package tools contains MCP tool implementations for the IoT hub service API.
package tools

import (
	"encoding/json"
	"fmt"
)

// MimeJSON is the MIME type of resource contents.
const MimeJSON = "application/json"

// ToAny converts v to its generic JSON form so it can be placed in tool
// outputs without a fixed schema.
func ToAny(v any) (any, error) {
	var data []byte
	switch val := v.(type) {
	case json.RawMessage:
		if len(val) == 0 {
			return nil, nil
		}
		data = val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encoding value: %w", err)
		}
		data = b
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding value: %w", err)
	}
	return out, nil
}
