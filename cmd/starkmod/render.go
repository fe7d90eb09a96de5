// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"time"

	"github.com/starkmod/starkmod/internal/loader"
)

// functionPlaceholder stands in for JavaScript functions in rendered exports.
const functionPlaceholder = "[function]"

// jsonSafe converts an exported JavaScript value into a value encoding/json
// can always marshal. Functions become functionPlaceholder and non-finite
// numbers become their string form.
func jsonSafe(v any) any {
	switch x := v.(type) {
	case nil, bool, string, int64, int, time.Time:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Sprint(x)
		}
		return x
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = jsonSafe(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = jsonSafe(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return functionPlaceholder
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = jsonSafe(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fmt.Sprint(v)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = jsonSafe(iter.Value().Interface())
		}
		return out
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// marshalExport renders an export value as indented JSON.
func marshalExport(v any) ([]byte, error) {
	return json.MarshalIndent(jsonSafe(v), "", "  ")
}

// describeExport says where an export came from.
func describeExport(exp loader.Export) string {
	switch exp.Source {
	case loader.ExportInferred:
		return fmt.Sprintf("export %q (inferred)", exp.Name)
	case loader.ExportNamed:
		return fmt.Sprintf("export %q (named)", exp.Name)
	default:
		return "no export found"
	}
}

// printResult writes one successful module result in human-readable form.
func printResult(w io.Writer, res loader.Result) error {
	data, err := marshalExport(res.Export.Value)
	if err != nil {
		return fmt.Errorf("render export of %s: %w", res.Module, err)
	}
	fmt.Fprintf(w, "%s %s %s\n", SuccessStyle.Render("✓"), TitleStyle.Render(res.Module.String()), SubtitleStyle.Render(describeExport(res.Export)))
	fmt.Fprintln(w, string(data))
	return nil
}

// printResultsJSON writes the successful results as one JSON object keyed by
// module name.
func printResultsJSON(w io.Writer, results []loader.Result) error {
	out := make(map[string]any, len(results))
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		out[res.Module.String()] = jsonSafe(res.Export.Value)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("render exports: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}
