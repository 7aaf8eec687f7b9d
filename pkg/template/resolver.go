// Package template resolves {{ path }} placeholders against workflow data and
// renders Go text templates for transform steps.
package template

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
)

var placeholder = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Resolve replaces every {{ path }} in tmpl with the value found at the
// dot-separated path in data. Placeholders whose path does not resolve are
// left verbatim.
func Resolve(tmpl string, data map[string]any) string {
	if tmpl == "" {
		return ""
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		path := strings.TrimSpace(placeholder.FindStringSubmatch(match)[1])

		value, ok := Lookup(data, path)
		if !ok {
			return match
		}

		return Stringify(value)
	})
}

// ResolveContext resolves tmpl against the {trigger, formData, variables,
// history} view of wctx.
func ResolveContext(tmpl string, wctx *models.WorkflowContext) string {
	if wctx == nil {
		return Resolve(tmpl, nil)
	}

	return Resolve(tmpl, wctx.Data())
}

// Lookup walks path through nested maps and sequences. Numeric segments index
// into sequences.
func Lookup(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = data

	for _, segment := range strings.Split(path, ".") {
		next, ok := step(current, segment)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func step(current any, segment string) (any, bool) {
	switch v := current.(type) {
	case map[string]any:
		next, ok := v[segment]
		return next, ok
	case map[string]map[string]any:
		next, ok := v[segment]
		return next, ok
	case []any:
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 || index >= len(v) {
			return nil, false
		}

		return v[index], true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(current)

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}

		value := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !value.IsValid() {
			return nil, false
		}

		return value.Interface(), true
	case reflect.Slice, reflect.Array:
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 || index >= rv.Len() {
			return nil, false
		}

		return rv.Index(index).Interface(), true
	default:
		return nil, false
	}
}

// Stringify renders a resolved value: strings verbatim, numbers in shortest
// form, nil as the empty string, maps and slices as JSON.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		raw, err := json.Marshal(value)
		if err == nil {
			return string(raw)
		}
	}

	return fmt.Sprint(value)
}
