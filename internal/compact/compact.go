// Package compact shrinks decoded twin and query documents for display by
// dropping property metadata and trimming long arrays and strings.
package compact

import (
	"fmt"
	"strings"
)

// Default limits.
const (
	DefaultMaxArrayItems = 10
	DefaultMaxStringLen  = 500
)

// Options controls compaction. Zero limits disable trimming.
type Options struct {
	MaxArrayItems int
	MaxStringLen  int
	// DropMetadata removes $metadata entries, which carry a last-updated
	// timestamp for every twin property and usually dominate the document.
	DropMetadata bool
}

// DefaultOptions returns the limits used by the MCP tools.
func DefaultOptions() Options {
	return Options{
		MaxArrayItems: DefaultMaxArrayItems,
		MaxStringLen:  DefaultMaxStringLen,
		DropMetadata:  true,
	}
}

// Value returns a compacted copy of v. v is not modified.
func Value(v any, opts Options) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			if opts.DropMetadata && k == "$metadata" {
				continue
			}
			out[k] = Value(e, opts)
		}
		return out
	case []any:
		n := len(val)
		if opts.MaxArrayItems > 0 && n > opts.MaxArrayItems {
			n = opts.MaxArrayItems
		}
		out := make([]any, 0, n+1)
		for _, e := range val[:n] {
			out = append(out, Value(e, opts))
		}
		if n < len(val) {
			out = append(out, fmt.Sprintf("... (%d more items)", len(val)-n))
		}
		return out
	case string:
		if opts.MaxStringLen <= 0 || len(val) <= opts.MaxStringLen {
			return val
		}
		cut := strings.ToValidUTF8(val[:opts.MaxStringLen], "")
		return cut + fmt.Sprintf("... (%d more chars)", len(val)-len(cut))
	default:
		return v
	}
}

// Values compacts each element of items in place and returns items.
func Values(items []any, opts Options) []any {
	for i, v := range items {
		items[i] = Value(v, opts)
	}
	return items
}
