package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"

	"github.com/usestring/iothub-service/internal/jq"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// column extracts one table cell from a generic JSON item.
type column struct {
	header string
	path   []string
}

var (
	twinColumns = []column{
		{"DEVICE", []string{"deviceId"}},
		{"MODULE", []string{"moduleId"}},
		{"STATUS", []string{"status"}},
		{"CONNECTION", []string{"connectionState"}},
		{"LAST ACTIVITY", []string{"lastActivityTime"}},
	}
	deviceJobColumns = []column{
		{"DEVICE", []string{"deviceId"}},
		{"JOB", []string{"jobId"}},
		{"TYPE", []string{"jobType"}},
		{"STATUS", []string{"status"}},
		{"ERROR", []string{"error", "code"}},
	}
	jobColumns = []column{
		{"JOB", []string{"jobId"}},
		{"TYPE", []string{"type"}},
		{"STATUS", []string{"status"}},
		{"START", []string{"startTime"}},
		{"DEVICES", []string{"deviceJobStatistics", "deviceCount"}},
		{"FAILED", []string{"deviceJobStatistics", "failedCount"}},
	}
)

// printer renders items as a table or JSON lines, after an optional jq
// projection.
type printer struct {
	w       io.Writer
	errw    io.Writer
	format  string
	jq      *jq.Engine
	expr    string
	columns []column
}

// print renders items. Projected values and items without fixed columns
// are tabulated by their top-level keys.
func (p *printer) print(items []any) error {
	values := items
	if p.expr != "" {
		res, err := p.jq.Apply(items, p.expr, jq.Options{})
		if err != nil {
			return err
		}
		for _, e := range res.Errors {
			fmt.Fprintln(p.errw, pterm.Warning.Sprint(e))
		}
		values = res.Values
	}

	if p.format == outputJSON {
		enc := json.NewEncoder(p.w)
		for _, v := range values {
			if err := enc.Encode(v); err != nil {
				return err
			}
		}
		return nil
	}

	cols := p.columns
	if p.expr != "" || cols == nil {
		cols = inferColumns(values)
	}
	if cols == nil {
		for _, v := range values {
			fmt.Fprintln(p.w, cell(v))
		}
		return nil
	}
	return pterm.DefaultTable.
		WithHasHeader().
		WithWriter(p.w).
		WithData(tableData(cols, values)).
		Render()
}

// printOne renders a single document as indented JSON.
func printOne(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tableData(cols []column, values []any) pterm.TableData {
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.header
	}
	data := pterm.TableData{header}
	for _, v := range values {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cell(lookup(v, c.path))
		}
		data = append(data, row)
	}
	return data
}

// inferColumns returns one column per top-level key seen in object values,
// or nil when any value is not an object.
func inferColumns(values []any) []column {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	for _, v := range values {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		for k := range obj {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]column, len(keys))
	for i, k := range keys {
		cols[i] = column{header: strings.ToUpper(k), path: []string{k}}
	}
	return cols
}

func lookup(v any, path []string) any {
	for _, key := range path {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = obj[key]
	}
	return v
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// toGeneric converts typed items to the generic JSON form.
func toGeneric[T any](items []T) ([]any, error) {
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encoding items: %w", err)
	}
	out := make([]any, 0, len(items))
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}
	return out, nil
}
