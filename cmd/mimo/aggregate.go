package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate FILE PIPELINE",
	Short: "Run an aggregation pipeline",
	Example: `  mimo aggregate sales.csv '[{"$group": {"_id": "$region", "total": {"$sum": "$amount"}}}]'
  mimo aggregate events.ndjson.gz @pipeline.yaml -o summary.json`,
	Args: cobra.ExactArgs(2),
	RunE: runAggregate,
}

func runAggregate(cmd *cobra.Command, args []string) error {
	coll, err := openCollection(args[0])
	if err != nil {
		return err
	}
	pipeline, err := pipelineArg(args[1])
	if err != nil {
		return err
	}
	if len(pipeline) == 0 {
		return errors.New("pipeline is empty")
	}
	docs, err := coll.Aggregate(pipeline)
	if err != nil {
		return err
	}
	return writeDocs(cmd.OutOrStdout(), docs)
}
