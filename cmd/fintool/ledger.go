package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jask/fintool/internal/database/repository"
	"github.com/jask/fintool/internal/service"
	"github.com/jask/fintool/internal/tagging"
)

var (
	addType        string
	addDate        string
	addAmount      string
	addDescription string
	addTags        string

	editID          string
	editType        string
	editDate        string
	editAmount      string
	editDescription string
	editTags        string

	removeID string

	listFrom string
	listTo   string
	listType string
	listTag  string
	listMin  string
	listMax  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a manual ledger entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.ledger.Add(cmd.Context(), service.AddInput{
			Type:        addType,
			Date:        addDate,
			Amount:      addAmount,
			Description: addDescription,
			Tags:        tagging.Split(addTags),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added %s\n", t.ID)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Change fields of a ledger entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		in := service.EditInput{}
		if cmd.Flags().Changed("type") {
			in.Type = &editType
		}
		if cmd.Flags().Changed("date") {
			in.Date = &editDate
		}
		if cmd.Flags().Changed("amount") {
			in.Amount = &editAmount
		}
		if cmd.Flags().Changed("description") {
			in.Description = &editDescription
		}
		if cmd.Flags().Changed("tags") {
			in.Tags = tagging.Split(editTags)
			if in.Tags == nil {
				in.Tags = []string{}
			}
		}
		t, err := a.ledger.Edit(cmd.Context(), editID, in)
		if err != nil {
			return err
		}
		fmt.Printf("Updated %s\n", t.ID)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete a ledger entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ledger.Remove(cmd.Context(), removeID); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", removeID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filters, err := buildFilters()
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.ledger.List(cmd.Context(), filters)
		if err != nil {
			return err
		}
		for _, t := range rows {
			fmt.Printf("%s  %s %10s  %-8s %-30s %s\n",
				t.ID, t.Date.Format(time.DateOnly), t.Amount.StringFixed(2),
				t.Type, t.Description, strings.Join(t.Tags, "|"))
		}
		fmt.Printf("%d entries\n", len(rows))
		return nil
	},
}

func buildFilters() (repository.LedgerFilters, error) {
	f := repository.LedgerFilters{Type: listType, Tag: listTag}
	if listFrom != "" {
		d, err := time.Parse(time.DateOnly, listFrom)
		if err != nil {
			return f, fmt.Errorf("parse --from: %w", err)
		}
		f.From = d
	}
	if listTo != "" {
		d, err := time.Parse(time.DateOnly, listTo)
		if err != nil {
			return f, fmt.Errorf("parse --to: %w", err)
		}
		f.To = d
	}
	if listMin != "" {
		v, err := decimal.NewFromString(listMin)
		if err != nil {
			return f, fmt.Errorf("parse --min: %w", err)
		}
		f.MinAmount = &v
	}
	if listMax != "" {
		v, err := decimal.NewFromString(listMax)
		if err != nil {
			return f, fmt.Errorf("parse --max: %w", err)
		}
		f.MaxAmount = &v
	}
	return f, nil
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", "", "Entry type: income or outcome")
	addCmd.Flags().StringVar(&addDate, "date", "", "Date (YYYY-MM-DD)")
	addCmd.Flags().StringVar(&addAmount, "amount", "", "Signed decimal amount")
	addCmd.Flags().StringVar(&addDescription, "description", "", "Entry description")
	addCmd.Flags().StringVar(&addTags, "tags", "", "Pipe-separated tags (a|b|c)")
	_ = addCmd.MarkFlagRequired("type")
	_ = addCmd.MarkFlagRequired("date")
	_ = addCmd.MarkFlagRequired("amount")
	_ = addCmd.MarkFlagRequired("description")

	editCmd.Flags().StringVar(&editID, "id", "", "Entry id")
	editCmd.Flags().StringVar(&editType, "type", "", "Entry type: income or outcome")
	editCmd.Flags().StringVar(&editDate, "date", "", "Date (YYYY-MM-DD)")
	editCmd.Flags().StringVar(&editAmount, "amount", "", "Signed decimal amount")
	editCmd.Flags().StringVar(&editDescription, "description", "", "Entry description")
	editCmd.Flags().StringVar(&editTags, "tags", "", "Pipe-separated tags, empty clears")
	_ = editCmd.MarkFlagRequired("id")

	removeCmd.Flags().StringVar(&removeID, "id", "", "Entry id")
	_ = removeCmd.MarkFlagRequired("id")

	listCmd.Flags().StringVar(&listFrom, "from", "", "Earliest date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listTo, "to", "", "Latest date (YYYY-MM-DD)")
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by type")
	listCmd.Flags().StringVar(&listTag, "tag", "", "Filter by tag")
	listCmd.Flags().StringVar(&listMin, "min", "", "Minimum amount")
	listCmd.Flags().StringVar(&listMax, "max", "", "Maximum amount")

	rootCmd.AddCommand(addCmd, editCmd, removeCmd, listCmd)
}
