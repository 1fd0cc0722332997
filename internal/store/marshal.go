package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/shorthand/internal/ir"
)

// marshalParams converts parameter values to canonical JSON TEXT for storage.
func marshalParams(params ir.IRObject) (string, error) {
	if params == nil {
		params = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams parses stored JSON TEXT back into IR values. Numbers are
// decoded as json.Number so integers beyond 2^53 keep their precision.
func unmarshalParams(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}

	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("unmarshal params: expected object, got %s", ir.TypeName(v))
	}
	return obj, nil
}
