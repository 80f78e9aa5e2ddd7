package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Strategy names the decoding layer that produced a result.
type Strategy string

const (
	StrategyStrict    Strategy = "strict"
	StrategyExtracted Strategy = "extracted" // first '{' to last '}'
	StrategyRepaired  Strategy = "repaired"  // jsonrepair
	StrategyUnwrapped Strategy = "unwrapped" // {"type":..,"value":..} wrappers removed
	StrategyDegraded  Strategy = "degraded"  // fallback value, raw text preserved
)

// ErrNoJSON is returned when the content holds no JSON object at all.
var ErrNoJSON = errors.New("no JSON object found in content")

// RecoveryWarning is a non-fatal notice that strict decoding failed and a
// later layer produced the result. Cause is the strict decoding error.
type RecoveryWarning struct {
	Strategy Strategy
	Cause    error
}

func (w *RecoveryWarning) Error() string {
	if w.Cause == nil {
		return fmt.Sprintf("structured output recovered (%s)", w.Strategy)
	}
	return fmt.Sprintf("structured output recovered (%s): %v", w.Strategy, w.Cause)
}

func (w *RecoveryWarning) Unwrap() error {
	return w.Cause
}

// Degraded reports whether the result is a fallback value.
func (w *RecoveryWarning) Degraded() bool {
	return w != nil && w.Strategy == StrategyDegraded
}

// DecodeTolerant decodes content into T trying each layer in order.
// The warning is nil only for a strict decode. The error is non-nil only
// when every layer failed, in which case the warning is nil too.
func DecodeTolerant[T any](content string) (T, *RecoveryWarning, error) {
	var result T

	strictErr := json.Unmarshal([]byte(content), &result)
	if strictErr == nil {
		FillEmpty(&result)
		return result, nil, nil
	}

	candidate, found := ExtractObject(content)
	if found {
		var extracted T
		if err := json.Unmarshal([]byte(candidate), &extracted); err == nil {
			FillEmpty(&extracted)
			return extracted, &RecoveryWarning{Strategy: StrategyExtracted, Cause: strictErr}, nil
		}
	} else {
		candidate = content
	}

	repaired, repairErr := jsonrepair.JSONRepair(candidate)
	if repairErr != nil {
		if !found {
			return result, nil, fmt.Errorf("%w: %v", ErrNoJSON, strictErr)
		}
		return result, nil, fmt.Errorf("failed to repair JSON: %w (decode error: %v)", repairErr, strictErr)
	}

	var fixed T
	err := json.Unmarshal([]byte(repaired), &fixed)
	if err == nil {
		FillEmpty(&fixed)
		return fixed, &RecoveryWarning{Strategy: StrategyRepaired, Cause: strictErr}, nil
	}

	// Models sometimes echo the schema shape around each value.
	if unwrapped, unwrapErr := unwrapSchemaValues(repaired); unwrapErr == nil {
		var plain T
		if json.Unmarshal([]byte(unwrapped), &plain) == nil {
			FillEmpty(&plain)
			return plain, &RecoveryWarning{Strategy: StrategyUnwrapped, Cause: strictErr}, nil
		}
	}

	return result, nil, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w", result, err)
}

// Decode is DecodeTolerant that never fails: when no layer succeeds the
// result comes from fallback(content) and the warning is StrategyDegraded.
// A nil fallback yields the zero value with empty containers.
func Decode[T any](content string, fallback func(raw string) T) (T, *RecoveryWarning) {
	result, warning, err := DecodeTolerant[T](content)
	if err == nil {
		return result, warning
	}

	var degraded T
	if fallback != nil {
		degraded = fallback(content)
	}
	FillEmpty(&degraded)
	return degraded, &RecoveryWarning{Strategy: StrategyDegraded, Cause: err}
}

// ExtractObject returns the substring from the first '{' to the last '}'.
func ExtractObject(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return content[start : end+1], true
}

// FillEmpty walks the value behind ptr and replaces nil slices and maps with
// empty ones. Nested structs, pointers and slice elements are visited too.
func FillEmpty(ptr any) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	fill(v.Elem())
}

func fill(v reflect.Value) {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			fill(v.Elem())
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if f := v.Field(i); f.CanSet() {
				fill(f)
			}
		}
	case reflect.Slice:
		if v.IsNil() {
			if v.CanSet() {
				v.Set(reflect.MakeSlice(v.Type(), 0, 0))
			}
			return
		}
		for i := 0; i < v.Len(); i++ {
			fill(v.Index(i))
		}
	case reflect.Map:
		if v.IsNil() && v.CanSet() {
			v.Set(reflect.MakeMap(v.Type()))
		}
	}
}

// unwrapSchemaValues rewrites {"type": "...", "value": X} wrappers as X.
//
//	{"name": {"type": "string", "value": "John"}}  ->  {"name": "John"}
func unwrapSchemaValues(jsonStr string) (string, error) {
	var data any
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		return "", err
	}

	result, err := json.Marshal(recursiveUnwrap(data))
	if err != nil {
		return "", err
	}
	return string(result), nil
}

func recursiveUnwrap(data any) any {
	switch v := data.(type) {
	case map[string]any:
		if _, hasType := v["type"]; hasType {
			if value, hasValue := v["value"]; hasValue && len(v) == 2 {
				return recursiveUnwrap(value)
			}
		}
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = recursiveUnwrap(val)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = recursiveUnwrap(val)
		}
		return result

	default:
		return data
	}
}
