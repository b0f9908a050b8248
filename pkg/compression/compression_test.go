package compression

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

var algorithms = []Algorithm{AlgorithmNone, AlgorithmSnappy, AlgorithmZstd, AlgorithmGzip, AlgorithmZlib}

func compress(t *testing.T, data []byte, a Algorithm) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, &Config{Algorithm: a})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat(`{"name":"quick brown fox","qty":12}`+"\n", 200))

	for _, a := range algorithms {
		t.Run(a.String(), func(t *testing.T) {
			compressed := compress(t, data, a)
			if a != AlgorithmNone && len(compressed) >= len(data) {
				t.Errorf("Expected %s to shrink repetitive data, got %d >= %d", a, len(compressed), len(data))
			}

			r, err := NewReader(bytes.NewReader(compressed), a)
			if err != nil {
				t.Fatalf("NewReader failed: %v", err)
			}
			defer r.Close()
			decompressed, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Error("Decompressed data doesn't match original")
			}
		})
	}
}

func TestStreaming(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, &Config{Algorithm: AlgorithmZstd, Level: 19})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for i := 0; i < 50; i++ {
		if _, err := io.WriteString(w, "line\n"); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := NewReader(&buf, AlgorithmZstd)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if got := strings.Count(string(out), "line\n"); got != 50 {
		t.Errorf("Expected 50 lines, got %d", got)
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Algorithm
		base string
	}{
		{"docs.json", AlgorithmNone, "docs.json"},
		{"docs.json.gz", AlgorithmGzip, "docs.json"},
		{"docs.ndjson.ZST", AlgorithmZstd, "docs.ndjson"},
		{"/tmp/a.csv.snappy", AlgorithmSnappy, "/tmp/a.csv"},
		{"a.zlib", AlgorithmZlib, "a"},
	}
	for _, tt := range tests {
		a, base := FromPath(tt.path)
		if a != tt.want || base != tt.base {
			t.Errorf("FromPath(%q) = %v %q, expected %v %q", tt.path, a, base, tt.want, tt.base)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, a := range algorithms {
		got, err := ParseAlgorithm(strings.ToUpper(a.String()))
		if err != nil || got != a {
			t.Errorf("ParseAlgorithm(%s) = %v, %v", a, got, err)
		}
	}
	if a, err := ParseAlgorithm(""); err != nil || a != AlgorithmNone {
		t.Errorf("Expected none for empty name, got %v %v", a, err)
	}
	if _, err := ParseAlgorithm("lz4"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("Expected ErrUnknownAlgorithm, got %v", err)
	}
}

func TestCorruptInput(t *testing.T) {
	if _, err := NewReader(strings.NewReader("not gzip"), AlgorithmGzip); err == nil {
		t.Error("Expected error decoding corrupt gzip data")
	}

	r, err := NewReader(strings.NewReader("not zstd"), AlgorithmZstd)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	if _, err := io.ReadAll(r); err == nil {
		t.Error("Expected error decoding corrupt zstd data")
	}
}
