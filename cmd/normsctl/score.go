package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-norms/internal/scoring"
)

var queryFile string

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one protocol and print the result as JSON",
	Long: `Reads a scoring query such as

  {"instrument":"attention_concentration",
   "inputs":{"correct":80,"errors":5,"omissions":3},
   "criteria":{"education":"Superior"}}

and prints the normative result.`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmdContext(cmd)
	raw, err := readQuery(cmd)
	if err != nil {
		return err
	}
	var q scoring.Query
	if err := json.Unmarshal(raw, &q); err != nil {
		return fmt.Errorf("decode query: %w", err)
	}

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := scoring.NewEngine(store, scoring.WithLogger(logger)).Score(ctx, q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func readQuery(cmd *cobra.Command) ([]byte, error) {
	if queryFile == "" || queryFile == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(queryFile)
}
