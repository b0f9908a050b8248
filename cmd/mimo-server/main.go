// Command mimo-server serves in-memory collections over HTTP for trying
// out queries, pipelines and updates.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agebrock/agebrock-mimo/pkg/server"
)

func main() {
	if err := newCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	config := server.DefaultConfig()
	var corsOrigin string

	cmd := &cobra.Command{
		Use:          "mimo-server",
		Short:        "HTTP playground for MongoDB-style queries over in-memory collections",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.AllowedOrigins = []string{corsOrigin}

			logger, err := server.NewLogger(os.Stderr, config.LogFormat, config.LogLevel)
			if err != nil {
				return err
			}
			srv, err := server.New(config, logger)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			// Blocks until SIGINT or SIGTERM
			return srv.Start()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&config.Host, "host", config.Host, "Server host address")
	flags.IntVar(&config.Port, "port", config.Port, "Server port")
	flags.StringVar(&corsOrigin, "cors-origin", "*", "CORS allowed origin")
	flags.Int64Var(&config.MaxRequestSize, "max-request-size", config.MaxRequestSize, "Maximum request body in bytes")
	flags.DurationVar(&config.RequestTimeout, "request-timeout", config.RequestTimeout, "Per-request timeout")
	flags.IntVar(&config.CacheSize, "cache-size", config.CacheSize, "Compiled queries and pipelines to keep")
	flags.DurationVar(&config.CacheTTL, "cache-ttl", config.CacheTTL, "Expiry of compiled queries, 0 disables")
	flags.DurationVar(&config.CursorTimeout, "cursor-timeout", config.CursorTimeout, "Idle time before a cursor is closed")
	flags.BoolVar(&config.ScriptEnabled, "scripts", config.ScriptEnabled, "Allow $where and $function expressions")
	flags.BoolVar(&config.EnableSchema, "schema", config.EnableSchema, "Enable $jsonSchema queries")
	flags.Float64Var(&config.RateLimit, "rate-limit", config.RateLimit, "Requests per second, 0 disables limiting")
	flags.IntVar(&config.RateBurst, "rate-burst", config.RateBurst, "Requests allowed in a burst")
	flags.BoolVar(&config.EnableMetrics, "metrics", config.EnableMetrics, "Serve Prometheus metrics on /_metrics")
	flags.DurationVar(&config.SlowQueryThreshold, "slow-threshold", config.SlowQueryThreshold, "Operations slower than this are logged and listed on /_slow")
	flags.BoolVar(&config.EnableLogging, "log-requests", config.EnableLogging, "Log every request")
	flags.StringVar(&config.LogFormat, "log-format", config.LogFormat, "Log format: text or json")
	flags.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level: debug, info, warn or error")
	flags.BoolVar(&config.EnableTLS, "tls", false, "Enable TLS/SSL")
	flags.StringVar(&config.TLSCertFile, "tls-cert", "", "Path to TLS certificate file")
	flags.StringVar(&config.TLSKeyFile, "tls-key", "", "Path to TLS private key file")
	flags.DurationVar(&config.ReadTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	flags.DurationVar(&config.WriteTimeout, "write-timeout", 30*time.Second, "HTTP write timeout")
	return cmd
}
