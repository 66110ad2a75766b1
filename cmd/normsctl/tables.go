package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-norms/internal/instrument"
)

var tablesInstrument string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the active normative tables of an instrument",
	Args:  cobra.NoArgs,
	RunE:  runTables,
}

func runTables(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)
	t, err := instrument.ParseType(tablesInstrument)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	tables, err := store.ListActiveTables(ctx, t, nil)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDIMENSION\tCRITERION\tSUBSCALE\tGENERIC")
	for _, tb := range tables {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n",
			tb.ID, tb.Name, tb.Dimension, tb.CriterionValue, tb.Subscale, tb.Generic)
	}
	return w.Flush()
}
