package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jask/fintool/internal/bank"
	"github.com/jask/fintool/internal/config"
	"github.com/jask/fintool/internal/database"
	"github.com/jask/fintool/internal/database/repository"
	"github.com/jask/fintool/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "fintool",
	Short: "Personal ledger fed by bank notification emails",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
	SilenceUsage: true,
}

// app wires config, database and services for one command invocation.
type app struct {
	cfg    config.Config
	logger *log.Logger
	db     *sql.DB
	sync   *service.SyncService
	ledger *service.LedgerService
	rules  *service.RuleService
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "fintool",
		Level:           level,
	})

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	pending := repository.NewPendingRepo(db)
	ledger := repository.NewLedgerRepo(db)
	rules := repository.NewRuleRepo(db)
	state := repository.NewSyncStateRepo(db)

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		sync: &service.SyncService{
			Pending: pending,
			Ledger:  ledger,
			Rules:   rules,
			State:   state,
			Banks:   bank.Default(),
			Log:     logger,
		},
		ledger: &service.LedgerService{Ledger: ledger, Log: logger},
		rules:  &service.RuleService{Rules: rules, Log: logger},
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
