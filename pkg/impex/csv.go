package impex

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/document"
	"github.com/agebrock/agebrock-mimo/pkg/path"
)

// CSVExporter writes documents as CSV. Fields are dotted paths; when none
// are given every leaf path found in the documents is exported, with the
// id field first.
type CSVExporter struct {
	Fields []string
	IDKey  string
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(fields []string) *CSVExporter {
	return &CSVExporter{Fields: fields, IDKey: "_id"}
}

// Export writes docs to writer
func (e *CSVExporter) Export(writer io.Writer, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}

	fields := e.Fields
	if len(fields) == 0 {
		fields = e.leafPaths(docs)
	}

	w := csv.NewWriter(writer)
	if err := w.Write(fields); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, doc := range docs {
		row := make([]string, len(fields))
		for i, field := range fields {
			row[i] = formatCSV(path.Resolve(doc, field))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func (e *CSVExporter) leafPaths(docs []interface{}) []string {
	set := make(map[string]bool)
	var collect func(prefix string, m map[string]interface{})
	collect = func(prefix string, m map[string]interface{}) {
		for k, v := range m {
			if nested, ok := v.(map[string]interface{}); ok && len(nested) > 0 {
				collect(prefix+k+".", nested)
				continue
			}
			set[prefix+k] = true
		}
	}
	for _, doc := range docs {
		if m, ok := doc.(map[string]interface{}); ok {
			collect("", m)
		}
	}

	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool {
		if fields[i] == e.IDKey {
			return true
		}
		if fields[j] == e.IDKey {
			return false
		}
		return fields[i] < fields[j]
	})
	return fields
}

func formatCSV(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case document.ObjectID:
		return v.Hex()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(ToExtended(v))
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
	if document.IsUndefined(value) {
		return ""
	}
	if f, ok := document.ToFloat64(value); ok && !document.IsInteger(value) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", value)
}

// CSVImporter reads documents from CSV. Dotted headers build nested
// documents. Empty cells are left out.
type CSVImporter struct {
	Headers []string // used instead of a header row when set
}

// NewCSVImporter creates a new CSV importer
func NewCSVImporter(headers []string) *CSVImporter {
	return &CSVImporter{Headers: headers}
}

// Import reads every row of reader as a document
func (i *CSVImporter) Import(reader io.Reader) ([]interface{}, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1

	headers := i.Headers
	if len(headers) == 0 {
		var err error
		if headers, err = r.Read(); err != nil {
			if err == io.EOF {
				return []interface{}{}, nil
			}
			return nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
	}

	docs := make([]interface{}, 0)
	for rowNum := 1; ; rowNum++ {
		row, err := r.Read()
		if err == io.EOF {
			return docs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", rowNum, err)
		}

		doc := make(map[string]interface{})
		for idx, header := range headers {
			if idx >= len(row) || row[idx] == "" {
				continue
			}
			if err := path.SetValue(doc, header, parseCSV(row[idx])); err != nil {
				return nil, fmt.Errorf("CSV row %d column %s: %w", rowNum, header, err)
			}
		}
		docs = append(docs, doc)
	}
}

// parseCSV infers the type of a cell, most specific first
func parseCSV(value string) interface{} {
	if value == "true" || value == "false" {
		return value == "true"
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if len(value) == 24 {
		if oid, err := document.ObjectIDFromHex(value); err == nil {
			return oid
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC()
	}
	if strings.HasPrefix(value, "[") || strings.HasPrefix(value, "{") {
		d := json.NewDecoder(strings.NewReader(value))
		d.UseNumber()
		var v interface{}
		if err := d.Decode(&v); err == nil {
			return FromExtended(v)
		}
	}
	return value
}
