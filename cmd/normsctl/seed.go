package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-norms/internal/norms"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate normative tables from a YAML file",
	Long: `Upserts every table of the file by name. Re-running an unchanged file is
a no-op; bands are reconciled by (subscale, criterion value, lower bound).`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)
	specs, err := norms.LoadSpecs(seedFile)
	if err != nil {
		return err
	}
	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	tables, err := norms.Seed(ctx, store, specs)
	if err != nil {
		return err
	}
	for _, tb := range tables {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", tb.ID, tb.Name, tb.Instrument)
	}
	logger.Info("seeded normative tables", zap.String("file", seedFile), zap.Int("tables", len(tables)))
	return nil
}
