package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agebrock/agebrock-mimo/pkg/compression"
	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/impex"
	"github.com/agebrock/agebrock-mimo/pkg/mimo"
	"github.com/agebrock/agebrock-mimo/pkg/schema"
	"github.com/agebrock/agebrock-mimo/pkg/server"
)

// --- Global flags ---
var (
	outputPath string
	format     string
	fields     []string
	compress   string
	pretty     bool
	scripts    bool
	logFormat  string
	logLevel   string

	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:   "mimo",
		Short: "Query, aggregate and update document files with MongoDB syntax",
		Long: `mimo loads a collection from a JSON, NDJSON or CSV file and runs a
MongoDB query, aggregation pipeline or update over it. Files ending in
.gz, .zst, .sz or .zz are decompressed. Arguments are JSON or YAML; an
argument starting with @ is read from the named file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = server.NewLogger(os.Stderr, logFormat, logLevel)
			return err
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&outputPath, "output", "o", "", "write results to a file; format and compression follow its name")
	flags.StringVarP(&format, "format", "f", "json", "stdout format: json, ndjson or csv")
	flags.StringSliceVar(&fields, "fields", nil, "CSV columns, in order")
	flags.StringVar(&compress, "compress", "none", "stdout compression: none, gzip, zlib, zstd or snappy")
	flags.BoolVar(&pretty, "pretty", false, "indent JSON output")
	flags.BoolVar(&scripts, "scripts", true, "allow $where and $function")
	flags.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(findCmd, countCmd, aggregateCmd, updateCmd, removeCmd, convertCmd)
}

// openCollection loads the file into a fresh in-memory collection
func openCollection(path string) (*mimo.Collection, error) {
	docs, err := impex.Load(path)
	if err != nil {
		return nil, err
	}

	opts := core.DefaultOptions()
	opts.ScriptEnabled = scripts
	opts.Logger = logger
	schema.Install(opts)

	config := mimo.DefaultConfig()
	config.Options = opts
	db, err := mimo.Open(config)
	if err != nil {
		return nil, err
	}

	coll := db.Collection(collectionName(path))
	batch := make([]map[string]interface{}, 0, len(docs))
	for i, doc := range docs {
		m, ok := doc.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: entry %d: %w", path, i, impex.ErrInvalidDocument)
		}
		batch = append(batch, m)
	}
	if _, err := coll.InsertMany(batch); err != nil {
		return nil, err
	}
	logger.Debug("collection loaded", "path", path, "documents", coll.Len())
	return coll, nil
}

func collectionName(path string) string {
	if path == "-" {
		return "stdin"
	}
	_, base := compression.FromPath(path)
	base = filepath.Base(base)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

// readArg returns the bytes of a JSON or YAML argument, reading @file
// arguments from disk
func readArg(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "@") {
		return os.ReadFile(arg[1:])
	}
	return []byte(arg), nil
}

func criteriaArg(arg string) (map[string]interface{}, error) {
	if arg == "" {
		return nil, nil
	}
	data, err := readArg(arg)
	if err != nil {
		return nil, err
	}
	return impex.DecodeCriteria(data)
}

func pipelineArg(arg string) ([]map[string]interface{}, error) {
	if arg == "" {
		return nil, nil
	}
	data, err := readArg(arg)
	if err != nil {
		return nil, err
	}
	return impex.DecodePipeline(data)
}

// writeDocs writes results to --output, or to w in --format
func writeDocs(w io.Writer, docs []interface{}) error {
	opts := impex.Options{Pretty: pretty, Fields: fields}
	if outputPath != "" {
		return impex.Save(outputPath, docs, opts)
	}

	algorithm, err := compression.ParseAlgorithm(compress)
	if err != nil {
		return err
	}
	cw, err := compression.NewWriter(w, &compression.Config{Algorithm: algorithm})
	if err != nil {
		return err
	}
	if err := impex.Export(cw, docs, impex.Format(format), opts); err != nil {
		cw.Close()
		return err
	}
	return cw.Close()
}
