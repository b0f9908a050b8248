package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agebrock/agebrock-mimo/pkg/impex"
)

var (
	findProjection string
	findSort       string
	findSkip       int
	findLimit      int

	findCmd = &cobra.Command{
		Use:   "find FILE [QUERY]",
		Short: "Print the documents matching a query",
		Example: `  mimo find people.json '{"age": {"$gte": 30}}' --sort '{"age": -1}'
  mimo find orders.ndjson.zst 'status: open' --projection 'total: 1' -f csv`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runFind,
	}

	countCmd = &cobra.Command{
		Use:   "count FILE [QUERY]",
		Short: "Print the number of documents matching a query",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCount,
	}
)

func init() {
	findCmd.Flags().StringVarP(&findProjection, "projection", "p", "", "projection document")
	findCmd.Flags().StringVarP(&findSort, "sort", "s", "", "sort document, keys applied in order")
	findCmd.Flags().IntVar(&findSkip, "skip", 0, "documents to skip")
	findCmd.Flags().IntVarP(&findLimit, "limit", "n", -1, "maximum documents to print")
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

func runFind(cmd *cobra.Command, args []string) error {
	coll, err := openCollection(args[0])
	if err != nil {
		return err
	}
	filter, err := criteriaArg(optionalArg(args, 1))
	if err != nil {
		return err
	}
	projection, err := criteriaArg(findProjection)
	if err != nil {
		return err
	}

	cur, err := coll.Find(filter, projection)
	if err != nil {
		return err
	}
	if findSort != "" {
		data, err := readArg(findSort)
		if err != nil {
			return err
		}
		sortSpec, err := impex.DecodeSort(data)
		if err != nil {
			return err
		}
		cur.Sort(sortSpec)
	}
	if findSkip > 0 {
		cur.Skip(findSkip)
	}
	if findLimit >= 0 {
		cur.Limit(findLimit)
	}

	docs, err := cur.All()
	if err != nil {
		return err
	}
	return writeDocs(cmd.OutOrStdout(), docs)
}

func runCount(cmd *cobra.Command, args []string) error {
	coll, err := openCollection(args[0])
	if err != nil {
		return err
	}
	filter, err := criteriaArg(optionalArg(args, 1))
	if err != nil {
		return err
	}
	n, err := coll.Count(filter)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), n)
	return nil
}
