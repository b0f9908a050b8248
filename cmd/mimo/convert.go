package main

import (
	"github.com/spf13/cobra"

	"github.com/agebrock/agebrock-mimo/pkg/impex"
)

var convertCmd = &cobra.Command{
	Use:     "convert IN OUT",
	Short:   "Convert a collection file between formats and compressions",
	Example: `  mimo convert people.csv people.ndjson.zst`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := impex.Load(args[0])
		if err != nil {
			return err
		}
		return impex.Save(args[1], docs, impex.Options{Pretty: pretty, Fields: fields})
	},
}
