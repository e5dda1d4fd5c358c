// Package jq projects query results with jq expressions.
package jq

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"
)

// Engine executes jq expressions against query items.
type Engine struct{}

// NewEngine creates a new projection engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Result contains the values produced by a projection.
type Result struct {
	Values      []any          `json:"values"`                 // Projected values
	Errors      []string       `json:"errors,omitempty"`       // Per-item errors (e.g., type mismatch)
	RawCount    int            `json:"raw_count"`              // Count before deduplication
	LabelCounts map[string]int `json:"label_counts,omitempty"` // Value count per item label
}

// Options controls a projection.
type Options struct {
	Deduplicate bool
	MaxResults  int
	// Labels name each item in error messages, e.g. device ids.
	Labels []string
}

// Apply runs expression once per item. Items may be any JSON-encodable
// value; they are normalized to the generic JSON form jq operates on.
func (e *Engine) Apply(items []any, expression string, opts Options) (*Result, error) {
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Values:      make([]any, 0),
		Errors:      make([]string, 0),
		LabelCounts: make(map[string]int),
	}

	seen := make(map[string]bool)
	seenErrors := make(map[string]bool)

	for i, item := range items {
		if opts.MaxResults > 0 && len(result.Values) >= opts.MaxResults {
			break
		}

		label := fmt.Sprintf("item[%d]", i)
		if i < len(opts.Labels) && opts.Labels[i] != "" {
			label = opts.Labels[i]
		}

		input, err := normalize(item)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", label, err))
			continue
		}

		iter := code.Run(input)
		for {
			if opts.MaxResults > 0 && len(result.Values) >= opts.MaxResults {
				break
			}

			v, ok := iter.Next()
			if !ok {
				break
			}

			if err, isErr := v.(error); isErr {
				errMsg := formatJQError(label, err)
				if !seenErrors[errMsg] {
					result.Errors = append(result.Errors, errMsg)
					seenErrors[errMsg] = true
				}
				continue
			}

			// Skip nil values
			if v == nil {
				continue
			}

			result.RawCount++
			result.LabelCounts[label]++

			if opts.Deduplicate {
				key := valueKey(v)
				if seen[key] {
					continue
				}
				seen[key] = true
			}

			result.Values = append(result.Values, v)
		}
	}

	return result, nil
}

// ApplyJSON is Apply for raw JSON items.
func (e *Engine) ApplyJSON(items []json.RawMessage, expression string, opts Options) (*Result, error) {
	generic := make([]any, len(items))
	for i, it := range items {
		generic[i] = it
	}
	return e.Apply(generic, expression, opts)
}

// ValidateExpression checks if a jq expression is valid without executing it.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		var parseErr *gojq.ParseError
		if errors.As(err, &parseErr) {
			return nil, fmt.Errorf("invalid jq expression at position %d: %w", parseErr.Offset, err)
		}
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return code, nil
}

// normalize converts v to maps, slices and float64s through a JSON round trip.
func normalize(v any) (any, error) {
	var data []byte
	switch val := v.(type) {
	case json.RawMessage:
		data = val
	case []byte:
		data = val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("encoding item: %w", err)
		}
		data = b
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return out, nil
}

// formatJQError creates a helpful error message for jq execution errors.
//
// Runtime errors such as "cannot iterate over: null" are plain errors in
// gojq, so hints are chosen by string matching on the message.
func formatJQError(label string, err error) string {
	var haltErr *gojq.HaltError
	if errors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%s: query halted", label)
		}
		return fmt.Sprintf("%s: query halted with: %v", label, haltErr.Value())
	}

	errStr := err.Error()

	var hint string
	switch {
	case strings.Contains(errStr, "cannot iterate over: null"):
		hint = " (the path may not exist on this item)"
	case strings.Contains(errStr, "cannot index") && strings.Contains(errStr, "with"):
		hint = " (property not found or wrong type)"
	case strings.Contains(errStr, "object") && strings.Contains(errStr, "cannot be iterated"):
		hint = " (expected array but got object, try removing '[]')"
	case strings.Contains(errStr, "array") && strings.Contains(errStr, "cannot be indexed"):
		hint = " (expected object but got array, try adding '[]')"
	}

	return fmt.Sprintf("%s: %s%s", label, errStr, hint)
}

// valueKey creates a string key for deduplication.
func valueKey(v any) string {
	switch val := v.(type) {
	case string:
		return "s:" + val
	case float64:
		return fmt.Sprintf("n:%v", val)
	case bool:
		return fmt.Sprintf("b:%v", val)
	case nil:
		return "null"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("?:%v", val)
		}
		return "j:" + string(b)
	}
}
