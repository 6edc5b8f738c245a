// Command fintrack-worker watches ledger change events and warns when a
// month's spending goes over budget.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger("info", log.ComponentWorker))
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker)

	if err := run(logger, cfg); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
}

// run returns once the process is signalled or consumption fails, after the
// store and broker connections are closed.
func run(logger *log.Logger, cfg *config.Config) error {
	logger.Info("Starting fintrack-worker", log.FieldBackend, cfg.DataBackend)

	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}

	res, err := cli.OpenBackend(context.Background(), logger, cfg)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	client := cli.InitAMQP(logger, cfg)
	if client == nil {
		return errors.New("AMQP broker unreachable")
	}
	defer client.Close()

	watcher := worker.NewBudgetWatcher(res.Repository, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)
	ctx = log.NewContext(ctx, logger)

	if err := watcher.Run(ctx, client); err != nil {
		return fmt.Errorf("consume changes: %w", err)
	}
	<-done
	return nil
}
