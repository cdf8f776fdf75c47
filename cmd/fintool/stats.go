package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jask/fintool/internal/database/repository"
)

var (
	statsFrom string
	statsTo   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize ledger totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := repository.LedgerFilters{}
		if statsFrom != "" {
			d, err := time.Parse(time.DateOnly, statsFrom)
			if err != nil {
				return fmt.Errorf("parse --from: %w", err)
			}
			f.From = d
		}
		if statsTo != "" {
			d, err := time.Parse(time.DateOnly, statsTo)
			if err != nil {
				return fmt.Errorf("parse --to: %w", err)
			}
			f.To = d
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.ledger.Summarize(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Printf("Entries: %d\n", sum.Count)
		fmt.Printf("Income:  %s\n", sum.Income.StringFixed(2))
		fmt.Printf("Outcome: %s\n", sum.Outcome.StringFixed(2))
		fmt.Printf("Net:     %s\n", sum.Net.StringFixed(2))
		if len(sum.ByTag) > 0 {
			fmt.Println("By tag:")
			for _, t := range sum.ByTag {
				fmt.Printf("  %-20s %10s\n", t.Tag, t.Total.StringFixed(2))
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "Earliest date (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "Latest date (YYYY-MM-DD)")

	rootCmd.AddCommand(statsCmd)
}
