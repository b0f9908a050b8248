package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agebrock/agebrock-mimo/pkg/mimo"
)

var (
	updateFilter       string
	updateArrayFilters string
	updateOne          bool
	removeOne          bool

	updateCmd = &cobra.Command{
		Use:   "update FILE UPDATE",
		Short: "Apply an update expression and print the whole collection",
		Example: `  mimo update people.json '{"$inc": {"age": 1}}' --filter '{"name": "ann"}'
  mimo update orders.json '{"$set": {"items.$[i].qty": 0}}' --array-filters '[{"i.qty": {"$lt": 0}}]' -o orders.json`,
		Args: cobra.ExactArgs(2),
		RunE: runUpdate,
	}

	removeCmd = &cobra.Command{
		Use:   "remove FILE QUERY",
		Short: "Remove matching documents and print what is left",
		Args:  cobra.ExactArgs(2),
		RunE:  runRemove,
	}
)

func init() {
	updateCmd.Flags().StringVar(&updateFilter, "filter", "", "only update documents matching this query")
	updateCmd.Flags().StringVar(&updateArrayFilters, "array-filters", "", "filters for $[identifier] path segments")
	updateCmd.Flags().BoolVar(&updateOne, "one", false, "update the first match only")
	removeCmd.Flags().BoolVar(&removeOne, "one", false, "remove the first match only")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	coll, err := openCollection(args[0])
	if err != nil {
		return err
	}
	expr, err := criteriaArg(args[1])
	if err != nil {
		return err
	}
	filter, err := criteriaArg(updateFilter)
	if err != nil {
		return err
	}
	arrayFilters, err := pipelineArg(updateArrayFilters)
	if err != nil {
		return err
	}

	var res *mimo.UpdateResult
	if updateOne {
		res, err = coll.UpdateOne(filter, expr, arrayFilters)
	} else {
		res, err = coll.UpdateMany(filter, expr, arrayFilters)
	}
	if err != nil {
		return err
	}
	logger.Info("update applied", "matched", res.Matched, "modified", res.Modified, "paths", res.Paths)

	docs, err := coll.All()
	if err != nil {
		return err
	}
	return writeDocs(cmd.OutOrStdout(), docs)
}

func runRemove(cmd *cobra.Command, args []string) error {
	coll, err := openCollection(args[0])
	if err != nil {
		return err
	}
	filter, err := criteriaArg(args[1])
	if err != nil {
		return err
	}
	var n int
	if removeOne {
		n, err = coll.RemoveOne(filter)
	} else {
		n, err = coll.Remove(filter)
	}
	if err != nil {
		return err
	}
	logger.Info("documents removed", "count", n)

	docs, err := coll.All()
	if err != nil {
		return fmt.Errorf("read collection: %w", err)
	}
	return writeDocs(cmd.OutOrStdout(), docs)
}
