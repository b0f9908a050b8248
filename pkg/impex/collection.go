// Package impex loads and saves document collections as JSON, NDJSON or
// CSV, optionally compressed, and decodes query, pipeline and update
// specs written in JSON or YAML.
package impex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/agebrock/agebrock-mimo/pkg/compression"
)

// Format represents the export/import format
type Format string

const (
	// FormatJSON is a JSON array of documents
	FormatJSON Format = "json"
	// FormatNDJSON is one JSON document per line
	FormatNDJSON Format = "ndjson"
	// FormatCSV is comma separated values with a header row
	FormatCSV Format = "csv"
)

// Options tune Import and Export
type Options struct {
	Pretty  bool     // indent JSON arrays
	Fields  []string // CSV columns to export
	Headers []string // CSV headers when the input has none
}

// FormatFromPath returns the format implied by a file name, ignoring a
// compression extension. Unknown extensions are read as JSON.
func FormatFromPath(name string) Format {
	_, base := compression.FromPath(name)
	switch strings.ToLower(filepath.Ext(base)) {
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	case ".csv":
		return FormatCSV
	}
	return FormatJSON
}

// Export writes docs in the given format
func Export(writer io.Writer, docs []interface{}, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		return (&JSONExporter{Pretty: opts.Pretty}).Export(writer, docs)
	case FormatNDJSON:
		return (&JSONExporter{NDJSON: true}).Export(writer, docs)
	case FormatCSV:
		return NewCSVExporter(opts.Fields).Export(writer, docs)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Import reads documents in the given format. JSON input may be either an
// array or NDJSON.
func Import(reader io.Reader, format Format, opts Options) ([]interface{}, error) {
	switch format {
	case FormatJSON, FormatNDJSON:
		return NewJSONImporter().Import(reader)
	case FormatCSV:
		return NewCSVImporter(opts.Headers).Import(reader)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// Load reads a collection file. Format and compression are taken from
// the file name, for example "orders.ndjson.zst". The name "-" reads
// standard input as JSON.
func Load(name string) ([]interface{}, error) {
	if name == "-" {
		return Import(os.Stdin, FormatJSON, Options{})
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	algorithm, _ := compression.FromPath(name)
	r, err := compression.NewReader(bufio.NewReader(f), algorithm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer r.Close()

	docs, err := Import(r, FormatFromPath(name), Options{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return docs, nil
}

// Save writes a collection file, choosing format and compression from the
// file name like Load
func Save(name string, docs []interface{}, opts Options) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	algorithm, _ := compression.FromPath(name)
	w, err := compression.NewWriter(f, &compression.Config{Algorithm: algorithm})
	if err != nil {
		return err
	}
	if err := Export(w, docs, FormatFromPath(name), opts); err != nil {
		w.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	return w.Close()
}
