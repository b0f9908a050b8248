package impex

import (
	"bytes"
	"fmt"
	"math"

	"github.com/goccy/go-yaml"

	"github.com/agebrock/agebrock-mimo/pkg/document"
)

// DecodeSpec decodes a query, projection, update or pipeline written as
// JSON or YAML. Key order is kept where it matters: the value of every
// $sort or sort key becomes a document.D.
func DecodeSpec(data []byte) (interface{}, error) {
	return decode(data, "")
}

// DecodeSort decodes a sort specification, keeping its key order
func DecodeSort(data []byte) (interface{}, error) {
	return decode(data, "$sort")
}

func decode(data []byte, parentKey string) (interface{}, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var raw interface{}
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return FromExtended(convertYAML(raw, parentKey)), nil
}

// DecodeCriteria decodes a single document such as a query or update
func DecodeCriteria(data []byte) (map[string]interface{}, error) {
	v, err := DecodeSpec(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]interface{}{}, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected a document, got %T", ErrInvalidSpec, v)
	}
	return m, nil
}

// DecodePipeline decodes a list of stage documents
func DecodePipeline(data []byte) ([]map[string]interface{}, error) {
	v, err := DecodeSpec(data)
	if err != nil {
		return nil, err
	}
	stages, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: a pipeline must be a list of stages, got %T", ErrInvalidSpec, v)
	}
	out := make([]map[string]interface{}, len(stages))
	for i, s := range stages {
		if out[i], ok = s.(map[string]interface{}); !ok {
			return nil, fmt.Errorf("%w: stage %d is not a document", ErrInvalidSpec, i)
		}
	}
	return out, nil
}

func convertYAML(v interface{}, parentKey string) interface{} {
	switch x := v.(type) {
	case yaml.MapSlice:
		if parentKey == "$sort" || parentKey == "sort" {
			d := make(document.D, 0, len(x))
			for _, item := range x {
				key := fmt.Sprint(item.Key)
				d = append(d, document.E{Key: key, Value: convertYAML(item.Value, key)})
			}
			return d
		}
		m := make(map[string]interface{}, len(x))
		for _, item := range x {
			key := fmt.Sprint(item.Key)
			m[key] = convertYAML(item.Value, key)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, val := range x {
			m[k] = convertYAML(val, k)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = convertYAML(item, "")
		}
		return out
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return float64(x)
	case int:
		return int64(x)
	}
	return v
}
