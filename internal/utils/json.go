package utils

import (
	"encoding/json"
	"fmt"
	"maps"
)

// MergeExtraParams marshals body and overlays extra on top of its top-level
// fields. With no extra params body is returned unchanged.
//
// Providers use it to pass fields the typed request does not model, such as
// "seed" or "logit_bias", straight through to the API.
func MergeExtraParams(body any, extra map[string]any) (any, error) {
	if len(extra) == 0 {
		return body, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}
	merged := map[string]any{}
	if err = json.Unmarshal(raw, &merged); err != nil {
		return nil, fmt.Errorf("request body is not a JSON object: %w", err)
	}
	maps.Copy(merged, extra)
	return merged, nil
}
