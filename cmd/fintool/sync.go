package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jask/fintool/internal/database/repository"
	"github.com/jask/fintool/internal/mailbox"
	"github.com/jask/fintool/internal/service"
)

var (
	syncProvider       string
	syncMailbox        string
	syncBank           string
	syncPending        bool
	syncUntagged       bool
	syncConcepts       bool
	syncTag            bool
	syncCommit         bool
	syncAcceptUntagged bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Stage, tag and commit transactions from bank emails",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validateSyncMode(); err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		switch {
		case syncPending:
			return listStaged(a.sync.PendingEntries(ctx))
		case syncUntagged:
			return listStaged(a.sync.UntaggedEntries(ctx))
		case syncConcepts:
			return listConcepts(ctx, a)
		case syncTag:
			return runTag(ctx, a)
		case syncCommit:
			return runCommit(ctx, a)
		default:
			return runSync(ctx, a)
		}
	},
}

func validateSyncMode() error {
	modes := 0
	for _, set := range []bool{syncPending, syncUntagged, syncConcepts, syncTag, syncCommit} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return errors.New("--pending, --untagged, --concepts, --tag and --commit are mutually exclusive")
	}
	if syncAcceptUntagged && !syncCommit {
		return errors.New("--accept-untagged requires --commit")
	}
	return nil
}

func runSync(ctx context.Context, a *app) error {
	opts := service.SyncOptions{
		Provider: syncProvider,
		Mailbox:  syncMailbox,
		Bank:     syncBank,
	}
	if opts.Provider == "" {
		opts.Provider = a.cfg.Mail.Provider
	}
	if opts.Mailbox == "" {
		opts.Mailbox = a.cfg.Mail.Mailbox
	}

	conn, err := mailbox.NewConnector(opts.Provider, a.cfg.Mail.Root)
	if err != nil {
		return err
	}

	report, err := a.sync.Run(ctx, conn, opts)
	if err != nil {
		return err
	}
	for _, e := range report.Errors {
		a.logger.Warn("sync", "error", e)
	}
	fmt.Printf("Fetched %d, parsed %d, staged %d (%d tagged)\n",
		report.Fetched, report.Parsed, report.Staged, report.Tagged)
	fmt.Printf("Skipped: %d duplicates, %d unrecognized, %d ambiguous, %d malformed\n",
		report.Duplicates, report.Unrecognized, report.Ambiguous, report.Malformed)
	return nil
}

func runTag(ctx context.Context, a *app) error {
	report, err := a.sync.Tag(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Tagged %d entries, %d still untagged\n", report.Tagged, report.Untagged)
	return nil
}

func runCommit(ctx context.Context, a *app) error {
	report, err := a.sync.Commit(ctx, syncAcceptUntagged)
	if err != nil {
		return err
	}
	for _, e := range report.Errors {
		a.logger.Warn("commit", "error", e)
	}
	fmt.Printf("Committed %d entries, %d failed\n", report.Committed, report.Failed)
	if report.Failed > 0 && report.Committed == 0 {
		return fmt.Errorf("all %d commit candidates failed", report.Failed)
	}
	return nil
}

func listStaged(entries []repository.PendingTransaction, err error) error {
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s %10s  %-8s %-30s %s\n",
			e.Date.Format(time.DateOnly), e.Amount.StringFixed(2), e.Status,
			e.Concept, strings.Join(e.Tags, "|"))
	}
	fmt.Printf("%d entries\n", len(entries))
	return nil
}

func listConcepts(ctx context.Context, a *app) error {
	concepts, err := a.sync.Concepts(ctx)
	if err != nil {
		return err
	}
	for _, c := range concepts {
		if c.Nearest != "" {
			fmt.Printf("%4d  %-30s (near rule %q)\n", c.Count, c.Concept, c.Nearest)
		} else {
			fmt.Printf("%4d  %s\n", c.Count, c.Concept)
		}
	}
	return nil
}

func init() {
	syncCmd.Flags().StringVar(&syncProvider, "provider", "", "Mail provider (default from config)")
	syncCmd.Flags().StringVar(&syncMailbox, "mailbox", "", "Mailbox to read (default from config)")
	syncCmd.Flags().StringVar(&syncBank, "bank", "", "Only parse messages from this bank")
	syncCmd.Flags().BoolVar(&syncPending, "pending", false, "List staged entries")
	syncCmd.Flags().BoolVar(&syncUntagged, "untagged", false, "List staged entries without tags")
	syncCmd.Flags().BoolVar(&syncConcepts, "concepts", false, "Summarize untagged entries by concept")
	syncCmd.Flags().BoolVar(&syncTag, "tag", false, "Apply tag rules to untagged entries")
	syncCmd.Flags().BoolVar(&syncCommit, "commit", false, "Move tagged entries into the ledger")
	syncCmd.Flags().BoolVar(&syncAcceptUntagged, "accept-untagged", false, "Commit untagged entries too")

	rootCmd.AddCommand(syncCmd)
}
