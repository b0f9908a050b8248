package impex

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/document"
)

// JSONExporter writes documents as a JSON array, or one document per line
// when NDJSON is set. Dates and ObjectIDs use the extended JSON forms
// {"$date": ...} and {"$oid": ...} so they load back with their type.
type JSONExporter struct {
	Pretty bool
	NDJSON bool
}

// NewJSONExporter creates a new JSON exporter
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes docs to writer
func (e *JSONExporter) Export(writer io.Writer, docs []interface{}) error {
	encoder := json.NewEncoder(writer)
	if e.NDJSON {
		for i, doc := range docs {
			if err := encoder.Encode(ToExtended(doc)); err != nil {
				return fmt.Errorf("failed to encode document %d: %w", i, err)
			}
		}
		return nil
	}

	if e.Pretty {
		encoder.SetIndent("", "  ")
	}
	out := make([]interface{}, len(docs))
	for i, doc := range docs {
		out[i] = ToExtended(doc)
	}
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ToExtended converts a document tree into JSON-encodable values
func ToExtended(value interface{}) interface{} {
	switch v := value.(type) {
	case document.ObjectID:
		return map[string]interface{}{"$oid": v.Hex()}
	case time.Time:
		return map[string]interface{}{"$date": v.UTC().Format(time.RFC3339Nano)}
	case *regexp.Regexp:
		return map[string]interface{}{"$regex": v.String()}
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, elem := range v {
			result[i] = ToExtended(elem)
		}
		return result
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			if document.IsUndefined(val) {
				continue
			}
			result[key] = ToExtended(val)
		}
		return result
	}
	if document.IsUndefined(value) {
		return nil
	}
	return value
}

// JSONImporter reads documents from a JSON array or from NDJSON. The form
// is detected from the first non-space byte.
type JSONImporter struct{}

// NewJSONImporter creates a new JSON importer
func NewJSONImporter() *JSONImporter {
	return &JSONImporter{}
}

// Import reads every document from reader
func (i *JSONImporter) Import(reader io.Reader) ([]interface{}, error) {
	br := bufio.NewReader(reader)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return []interface{}{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON: %w", err)
	}

	decoder := json.NewDecoder(br)
	decoder.UseNumber()

	if first == '[' {
		var raw []interface{}
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		docs := make([]interface{}, len(raw))
		for idx, r := range raw {
			if docs[idx], err = asDocument(r); err != nil {
				return nil, fmt.Errorf("document at index %d: %w", idx, err)
			}
		}
		return docs, nil
	}

	docs := make([]interface{}, 0)
	for idx := 0; ; idx++ {
		var raw interface{}
		err := decoder.Decode(&raw)
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", idx, err)
		}
		doc, err := asDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", idx, err)
		}
		docs = append(docs, doc)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsRune([]byte(" \t\r\n"), rune(b)) {
			return b, br.UnreadByte()
		}
	}
}

// asDocument checks that raw is an object and converts its values
func asDocument(raw interface{}) (interface{}, error) {
	v := FromExtended(raw)
	if _, ok := v.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("%w: expected an object, got %T", ErrInvalidDocument, v)
	}
	return v, nil
}

// FromExtended converts decoded JSON into document values. json.Number
// becomes int64 when integral and float64 otherwise; {"$oid": hex} and
// {"$date": value} become ObjectIDs and dates.
func FromExtended(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case float64:
		if v == float64(int64(v)) {
			return int64(v)
		}
		return v
	case []interface{}:
		result := make([]interface{}, len(v))
		for idx, elem := range v {
			result[idx] = FromExtended(elem)
		}
		return result
	case map[string]interface{}:
		if len(v) == 1 {
			if special, ok := fromSpecial(v); ok {
				return special
			}
		}
		result := make(map[string]interface{}, len(v))
		for key, val := range v {
			result[key] = FromExtended(val)
		}
		return result
	}
	return value
}

func fromSpecial(m map[string]interface{}) (interface{}, bool) {
	if hex, ok := m["$oid"].(string); ok {
		if oid, err := document.ObjectIDFromHex(hex); err == nil {
			return oid, true
		}
	}
	if raw, ok := m["$date"]; ok {
		switch d := raw.(type) {
		case string:
			if t, err := time.Parse(time.RFC3339Nano, d); err == nil {
				return t.UTC(), true
			}
		case json.Number:
			if ms, err := d.Int64(); err == nil {
				return time.UnixMilli(ms).UTC(), true
			}
		}
	}
	return nil, false
}
