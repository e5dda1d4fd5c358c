package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/iothub-service/pkg/client"
	"github.com/usestring/iothub-service/pkg/query"
)

// AddTool registers a tool after checking its output type with
// CheckOutputSchema. It panics on a bad output type so the mistake shows up
// when the server starts rather than on the first call.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	if err := CheckOutputSchema[Out](); err != nil {
		panic(fmt.Sprintf("AddTool %q: %v", t.Name, err))
	}
	sdkmcp.AddTool(srv, t, h)
}

// CheckOutputSchema reports output types whose values would not match the
// schema the SDK infers for them:
//
//   - json.RawMessage fields, which the schema generator sees as []byte. The
//     service types carry several (method payloads, raw query items).
//   - query pages and cursors, which have no exported fields and encode as {}.
//   - nil slices without omitzero, which encode as null against "type": "array".
//
// The untyped any output is always accepted.
func CheckOutputSchema[T any]() error {
	rt := reflect.TypeFor[T]()
	if rt == reflect.TypeFor[any]() {
		return nil
	}
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}

	w := outputWalker{visited: make(map[reflect.Type]bool)}
	w.walk(rt, nil, "")
	if len(w.problems) > 0 {
		return fmt.Errorf("output type %s:\n  %s", rt, strings.Join(w.problems, "\n  "))
	}

	schema, err := jsonschema.ForType(rt, &jsonschema.ForOptions{})
	if err != nil {
		return nil // the SDK reports inference failures itself
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil
	}
	data, err := json.Marshal(reflect.Zero(rt).Interface())
	if err != nil {
		return nil
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	if err := resolved.Validate(&v); err != nil {
		return fmt.Errorf("zero value of %s fails its schema: %v (JSON %s); add omitzero to slice fields or initialise them", rt, err, data)
	}
	return nil
}

var (
	rawMessageType = reflect.TypeFor[json.RawMessage]()
	clientPkg      = reflect.TypeFor[client.Twin]().PkgPath()
	queryPkg       = reflect.TypeFor[query.Type]().PkgPath()
)

type outputWalker struct {
	visited  map[reflect.Type]bool
	problems []string
}

// walk records a problem for every unsupported type under t. owner names the
// nearest service type on the path, for the hint.
func (w *outputWalker) walk(t reflect.Type, path []string, owner string) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	at := strings.Join(path, ".")
	if at == "" {
		at = "(root)"
	}

	if t == rawMessageType {
		msg := fmt.Sprintf("%s is json.RawMessage", at)
		if owner != "" {
			msg += fmt.Sprintf(" (from %s)", owner)
		}
		w.problems = append(w.problems, msg+"; use any and convert with ToAny")
		return
	}
	if t.PkgPath() == queryPkg && t.Kind() == reflect.Struct && !hasExportedFields(t) {
		w.problems = append(w.problems, fmt.Sprintf("%s is %s, which has no exported fields; copy Items() through ToAny into []any", at, t))
		return
	}
	if w.visited[t] {
		return
	}
	w.visited[t] = true
	defer delete(w.visited, t)

	if t.PkgPath() == clientPkg && t.Name() != "" {
		owner = "client." + t.Name()
	}

	switch t.Kind() {
	case reflect.Struct:
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			w.walk(f.Type, append(path, f.Name), owner)
		}
	case reflect.Slice, reflect.Array:
		w.walk(t.Elem(), append(path, "[]"), owner)
	case reflect.Map:
		w.walk(t.Elem(), append(path, "[value]"), owner)
	}
}

func hasExportedFields(t reflect.Type) bool {
	for i := range t.NumField() {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}
