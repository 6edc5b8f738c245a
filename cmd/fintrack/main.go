// Command fintrack administers a ledger store: it bootstraps the schema,
// manages users, records transactions and budgets, and prints reports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

const usage = `Usage: fintrack [-backend mongo|sqlite|postgres] [-db path] <command> [flags]

Commands:
  init                         create collections, tables and indexes
  user add -user NAME          create a user (password prompted when -password is omitted)
  user passwd -user NAME       reset a user's password
  tx add -user NAME ...        record a transaction
  tx list -user NAME ...       list transactions, newest first
  budget add -user NAME ...    add a monthly budget
  budget list -user NAME       list budgets
  budget rm -user NAME -id ID  delete a budget
  report -user NAME            dashboard and six-month trend
`

func main() {
	cli.LoadEnvFile()
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	repo   *storage.Repository
	ledger *services.LedgerService
	stdin  io.Reader
	stdout io.Writer
	now    func() time.Time
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("fintrack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	backendName := fs.String("backend", "", "storage backend (overrides DATA_BACKEND)")
	dbPath := fs.String("db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg := config.Load()
	if *backendName != "" {
		cfg.DataBackend = *backendName
	}
	if *dbPath != "" {
		cfg.SQLiteDBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lvl, _ := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentCLI, Output: stderr})

	ctx := log.NewContext(context.Background(), logger.WithComponent(log.ComponentLedger))
	res, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.DataBackend, err)
	}
	defer res.Cleanup()

	opts := []services.Option{
		services.WithRecentLimit(cfg.RecentLimit),
		services.WithReportMonths(cfg.ReportMonths),
	}
	if client := cli.InitAMQP(logger, cfg); client != nil {
		opts = append(opts, services.WithPublisher(client))
	}
	ledger := services.NewLedgerService(res.Repository, opts...)
	defer ledger.Close()

	a := &app{
		repo:   res.Repository,
		ledger: ledger,
		stdin:  stdin,
		stdout: stdout,
		now:    time.Now,
	}
	return a.dispatch(ctx, rest)
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, args := args[0], args[1:]
	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}

	switch {
	case cmd == "init":
		fmt.Fprintf(a.stdout, "Storage ready (%s)\n", a.repo.Backend())
		return nil
	case cmd == "report":
		return a.report(ctx, args)
	case cmd == "user" && sub == "add":
		return a.userAdd(ctx, args[1:])
	case cmd == "user" && sub == "passwd":
		return a.userPasswd(ctx, args[1:])
	case cmd == "tx" && sub == "add":
		return a.txAdd(ctx, args[1:])
	case cmd == "tx" && sub == "list":
		return a.txList(ctx, args[1:])
	case cmd == "budget" && sub == "add":
		return a.budgetAdd(ctx, args[1:])
	case cmd == "budget" && sub == "list":
		return a.budgetList(ctx, args[1:])
	case cmd == "budget" && sub == "rm":
		return a.budgetRemove(ctx, args[1:])
	default:
		fmt.Fprint(a.stdout, usage)
		return fmt.Errorf("unknown command %q", joinCmd(cmd, sub))
	}
}

func joinCmd(cmd, sub string) string {
	if sub == "" {
		return cmd
	}
	return cmd + " " + sub
}
