package server

import (
	"fmt"
	"log/slog"
	"time"
)

// Config holds server configuration settings
type Config struct {
	Host           string        // Server host address
	Port           int           // Server port
	ReadTimeout    time.Duration // HTTP read timeout
	WriteTimeout   time.Duration // HTTP write timeout
	IdleTimeout    time.Duration // HTTP idle timeout
	RequestTimeout time.Duration // Per-request processing timeout
	MaxRequestSize int64         // Maximum request body size in bytes
	EnableCORS     bool          // Enable CORS middleware
	AllowedOrigins []string      // CORS allowed origins
	AllowedMethods []string      // CORS allowed methods
	AllowedHeaders []string      // CORS allowed headers
	EnableLogging  bool          // Enable request logging
	LogFormat      string        // Log format (text or json)
	LogLevel       string        // debug, info, warn or error

	// Engine
	CacheSize     int           // Compiled queries and pipelines kept
	CacheTTL      time.Duration // Compiled entry lifetime, zero keeps them until evicted
	CursorTimeout time.Duration // Idle time before a server cursor is dropped
	ScriptEnabled bool          // Allow $where and $function
	EnableSchema  bool          // Back $jsonSchema with the JSON schema validator

	// Protection
	RateLimit float64 // Requests per second, zero disables limiting
	RateBurst int     // Burst size for RateLimit

	EnableMetrics      bool          // Serve Prometheus metrics on /_metrics
	SlowQueryThreshold time.Duration // Operations slower than this go to the slow log

	// TLS/SSL configuration
	EnableTLS   bool   // Enable TLS/SSL
	TLSCertFile string // Path to TLS certificate file
	TLSKeyFile  string // Path to TLS private key file
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		RequestTimeout: 60 * time.Second,
		MaxRequestSize: 10 * 1024 * 1024, // 10MB
		EnableCORS:     true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		EnableLogging:  true,
		LogFormat:      "text",
		LogLevel:       "info",
		CacheSize:      256,
		CacheTTL:       10 * time.Minute,
		CursorTimeout:  10 * time.Minute,
		ScriptEnabled:  false,
		EnableSchema:   true,
		RateLimit:      0,
		RateBurst:      50,
		EnableMetrics:  true,

		SlowQueryThreshold: 100 * time.Millisecond,
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("max request size must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1")
	}
	if c.SlowQueryThreshold < 0 {
		return fmt.Errorf("slow query threshold must not be negative")
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.EnableTLS && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		return fmt.Errorf("TLS enabled but certificate or key file not specified")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
