// Command mimo runs MongoDB-style queries, aggregations and updates over
// JSON, NDJSON or CSV files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mimo: %v\n", err)
		os.Exit(1)
	}
}
