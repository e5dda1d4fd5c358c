package schema

import (
	"encoding/json"
	"math"
	"slices"

	invopop "github.com/invopop/jsonschema"
)

// Inferred is a schema derived from a sample of query items.
type Inferred struct {
	Schema      *invopop.Schema
	SampleCount int
	// Uniform is true when every item produced the same schema.
	Uniform bool
}

// Infer derives a schema from decoded query items, for result sets that have
// no declared shape (projections and aggregations). A property is required
// when every sampled object carries it with a non-null value. Returns nil for
// an empty sample.
func Infer(items []any) *Inferred {
	if len(items) == 0 {
		return nil
	}

	schemas := make([]*invopop.Schema, 0, len(items))
	for _, item := range items {
		schemas = append(schemas, inferValue(item))
	}

	uniform := true
	first, _ := json.Marshal(schemas[0])
	for _, s := range schemas[1:] {
		other, _ := json.Marshal(s)
		if string(first) != string(other) {
			uniform = false
			break
		}
	}

	merged := merge(schemas)
	markRequired(merged, items)
	return &Inferred{Schema: merged, SampleCount: len(items), Uniform: uniform}
}

// Map renders the schema as a generic document.
func (in *Inferred) Map() map[string]any {
	if in == nil || in.Schema == nil {
		return nil
	}
	b, err := json.Marshal(in.Schema)
	if err != nil {
		return nil
	}
	var m map[string]any
	if json.Unmarshal(b, &m) != nil {
		return nil
	}
	return m
}

func inferValue(v any) *invopop.Schema {
	switch val := v.(type) {
	case nil:
		return &invopop.Schema{Type: "null"}
	case bool:
		return &invopop.Schema{Type: "boolean"}
	case float64:
		// COUNT() and version fields decode as whole floats.
		if math.Trunc(val) == val && !math.IsInf(val, 0) {
			return &invopop.Schema{Type: "integer"}
		}
		return &invopop.Schema{Type: "number"}
	case json.Number:
		if _, err := val.Int64(); err == nil {
			return &invopop.Schema{Type: "integer"}
		}
		return &invopop.Schema{Type: "number"}
	case string:
		return &invopop.Schema{Type: "string"}
	case []any:
		s := &invopop.Schema{Type: "array"}
		if len(val) > 0 {
			elems := make([]*invopop.Schema, 0, len(val))
			for _, e := range val {
				elems = append(elems, inferValue(e))
			}
			s.Items = merge(elems)
		}
		return s
	case map[string]any:
		s := &invopop.Schema{Type: "object", Properties: invopop.NewProperties()}
		for _, k := range sortedKeys(val) {
			s.Properties.Set(k, inferValue(val[k]))
		}
		return s
	default:
		return &invopop.Schema{}
	}
}

func merge(schemas []*invopop.Schema) *invopop.Schema {
	switch len(schemas) {
	case 0:
		return &invopop.Schema{}
	case 1:
		return schemas[0]
	}

	var objects, arrays []*invopop.Schema
	var scalars []string
	for _, s := range schemas {
		switch s.Type {
		case "":
		case "object":
			objects = append(objects, s)
		case "array":
			arrays = append(arrays, s)
		default:
			if !slices.Contains(scalars, s.Type) {
				scalars = append(scalars, s.Type)
			}
		}
	}
	slices.Sort(scalars)

	var anyOf []*invopop.Schema
	if len(objects) > 0 {
		anyOf = append(anyOf, mergeObjects(objects))
	}
	if len(arrays) > 0 {
		anyOf = append(anyOf, mergeArrays(arrays))
	}
	for _, t := range scalars {
		anyOf = append(anyOf, &invopop.Schema{Type: t})
	}

	switch len(anyOf) {
	case 0:
		return &invopop.Schema{}
	case 1:
		return anyOf[0]
	}
	return &invopop.Schema{AnyOf: anyOf}
}

func mergeObjects(schemas []*invopop.Schema) *invopop.Schema {
	if len(schemas) == 1 {
		return schemas[0]
	}
	props := make(map[string][]*invopop.Schema)
	for _, s := range schemas {
		if s.Properties == nil {
			continue
		}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			props[pair.Key] = append(props[pair.Key], pair.Value)
		}
	}

	merged := &invopop.Schema{Type: "object", Properties: invopop.NewProperties()}
	for _, k := range sortedKeys(props) {
		merged.Properties.Set(k, merge(props[k]))
	}
	return merged
}

func mergeArrays(schemas []*invopop.Schema) *invopop.Schema {
	if len(schemas) == 1 {
		return schemas[0]
	}
	var elems []*invopop.Schema
	for _, s := range schemas {
		if s.Items != nil {
			elems = append(elems, s.Items)
		}
	}
	merged := &invopop.Schema{Type: "array"}
	if len(elems) > 0 {
		merged.Items = merge(elems)
	}
	return merged
}

// markRequired walks object schemas and records the properties present and
// non-null in every sample.
func markRequired(s *invopop.Schema, samples []any) {
	if s == nil || s.Type != "object" || s.Properties == nil {
		return
	}

	var objs []map[string]any
	for _, sample := range samples {
		if obj, ok := sample.(map[string]any); ok {
			objs = append(objs, obj)
		}
	}
	if len(objs) == 0 {
		return
	}

	var required []string
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		always := true
		var nested []any
		for _, obj := range objs {
			v, ok := obj[pair.Key]
			if !ok || v == nil {
				always = false
				continue
			}
			nested = append(nested, v)
		}
		if always {
			required = append(required, pair.Key)
		}

		switch {
		case pair.Value.Type == "object":
			markRequired(pair.Value, nested)
		case pair.Value.Type == "array" && pair.Value.Items != nil && pair.Value.Items.Type == "object":
			var elems []any
			for _, v := range nested {
				if arr, ok := v.([]any); ok {
					elems = append(elems, arr...)
				}
			}
			markRequired(pair.Value.Items, elems)
		}
	}
	slices.Sort(required)
	if len(required) > 0 {
		s.Required = required
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
