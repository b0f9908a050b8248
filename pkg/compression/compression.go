// Package compression reads and writes document files compressed with
// gzip, zlib, zstd or snappy. The algorithm is picked by file extension
// when loading collections and by name when exporting results.
package compression

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknownAlgorithm is returned for unsupported algorithm names
var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

// Algorithm represents a compression algorithm
type Algorithm int

const (
	// AlgorithmNone leaves data as is
	AlgorithmNone Algorithm = iota
	// AlgorithmSnappy is fast compression with moderate ratio
	AlgorithmSnappy
	// AlgorithmZstd is balanced compression with good speed and ratio
	AlgorithmZstd
	// AlgorithmGzip is standard compression with good ratio
	AlgorithmGzip
	// AlgorithmZlib is similar to gzip
	AlgorithmZlib
)

var names = map[Algorithm]string{
	AlgorithmNone:   "none",
	AlgorithmSnappy: "snappy",
	AlgorithmZstd:   "zstd",
	AlgorithmGzip:   "gzip",
	AlgorithmZlib:   "zlib",
}

var extensions = map[string]Algorithm{
	".gz":     AlgorithmGzip,
	".gzip":   AlgorithmGzip,
	".zst":    AlgorithmZstd,
	".zstd":   AlgorithmZstd,
	".sz":     AlgorithmSnappy,
	".snappy": AlgorithmSnappy,
	".zz":     AlgorithmZlib,
	".zlib":   AlgorithmZlib,
}

// String returns the string representation of the algorithm
func (a Algorithm) String() string {
	if n, ok := names[a]; ok {
		return n
	}
	return "unknown"
}

// Extension returns the file extension used for a
func (a Algorithm) Extension() string {
	switch a {
	case AlgorithmGzip:
		return ".gz"
	case AlgorithmZstd:
		return ".zst"
	case AlgorithmSnappy:
		return ".sz"
	case AlgorithmZlib:
		return ".zz"
	}
	return ""
}

// ParseAlgorithm returns the algorithm with the given name. The empty
// string means none.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return AlgorithmNone, nil
	}
	for a, n := range names {
		if n == name {
			return a, nil
		}
	}
	return AlgorithmNone, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// FromPath returns the algorithm implied by the extension of a file name
// and the name without that extension. Unknown extensions mean none.
func FromPath(name string) (Algorithm, string) {
	ext := strings.ToLower(filepath.Ext(name))
	if a, ok := extensions[ext]; ok {
		return a, strings.TrimSuffix(name, filepath.Ext(name))
	}
	return AlgorithmNone, name
}

// Config holds compression configuration
type Config struct {
	Algorithm Algorithm
	Level     int // meaning varies by algorithm, 0 uses the default
}

// DefaultConfig returns the default compression configuration (Zstd with default level)
func DefaultConfig() *Config {
	return &Config{Algorithm: AlgorithmZstd, Level: 3}
}

func (c *Config) gzipLevel() int {
	if c.Level < gzip.HuffmanOnly || c.Level > gzip.BestCompression || c.Level == 0 {
		return gzip.DefaultCompression
	}
	return c.Level
}

func (c *Config) zstdLevel() zstd.EncoderLevel {
	// zstd levels range from 1 (fastest) to 19 (best compression)
	if c.Level < 1 || c.Level > 19 {
		return zstd.SpeedDefault
	}
	return zstd.EncoderLevelFromZstd(c.Level)
}

// NewReader returns a reader decompressing r with algorithm a
func NewReader(r io.Reader, a Algorithm) (io.ReadCloser, error) {
	switch a {
	case AlgorithmNone:
		return io.NopCloser(r), nil
	case AlgorithmSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case AlgorithmZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return dec.IOReadCloser(), nil
	case AlgorithmGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	case AlgorithmZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib reader: %w", err)
		}
		return zr, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, a)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// NewWriter returns a writer compressing into w. Close flushes the
// compressed stream but does not close w.
func NewWriter(w io.Writer, config *Config) (io.WriteCloser, error) {
	if config == nil {
		config = DefaultConfig()
	}
	switch config.Algorithm {
	case AlgorithmNone:
		return nopWriteCloser{w}, nil
	case AlgorithmSnappy:
		return snappy.NewBufferedWriter(w), nil
	case AlgorithmZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(config.zstdLevel()))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		return enc, nil
	case AlgorithmGzip:
		gw, err := gzip.NewWriterLevel(w, config.gzipLevel())
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
		return gw, nil
	case AlgorithmZlib:
		zw, err := zlib.NewWriterLevel(w, config.gzipLevel())
		if err != nil {
			return nil, fmt.Errorf("failed to create zlib writer: %w", err)
		}
		return zw, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, config.Algorithm)
}
